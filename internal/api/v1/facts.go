package v1

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// ReturnEventType classifies a return fact.
type ReturnEventType string

const (
	EventCancel ReturnEventType = "CANCEL"
	EventRefund ReturnEventType = "REFUND"
)

// ReturnFact is one row of the fact store, unique per (OrderID, EventType, EventDate).
type ReturnFact struct {
	OrderID   int64
	EventType ReturnEventType
	EventDate time.Time // civil date, midnight UTC
	Amount    decimal.Decimal
}

// DateRange is a closed interval of civil dates.
type DateRange struct {
	Min time.Time
	Max time.Time
}

// Contains reports whether d lies in the range, inclusive on both ends.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Min) && !d.After(r.Max)
}

// Days is the number of calendar days covered by the range.
func (r DateRange) Days() int {
	if r.Max.Before(r.Min) {
		return 0
	}
	return int(r.Max.Sub(r.Min).Hours()/24) + 1
}

// HourlySessions is one hour of session counters.
type HourlySessions struct {
	Date        time.Time
	Hour        int
	Sessions    int64
	ATCSessions int64
}

// DailySessions is one day of session counters. Adjusted is maintained by
// operators and is never overwritten by the refresh.
type DailySessions struct {
	Date        time.Time
	Sessions    int64
	ATCSessions int64
	Adjusted    sql.NullInt64
}
