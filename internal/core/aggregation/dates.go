package aggregation

import "time"

// DateLayout is the wire and storage form of a civil date.
const DateLayout = "2006-01-02"

// CivilDate returns the calendar date of t as observed in loc, represented as
// midnight UTC so that dates compare and key maps independent of zone.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HourSlot truncates t to the start of its hour in loc.
// time.Truncate works on absolute time and is wrong for zones with
// non-hour offsets, so the slot is rebuilt from wall-clock fields.
func HourSlot(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), 0, 0, 0, loc)
}

// LocalHour is the wall-clock hour of t in loc.
func LocalHour(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

// DateOf keeps t's own calendar date and drops the time and zone. Use it for
// values that already are dates, such as scanned DATE columns.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
