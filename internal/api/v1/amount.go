package v1

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Amount is a money field as sent upstream. The API sends decimal strings,
// but bare JSON numbers are accepted too. Any other JSON value is kept as its
// raw text so that parsing it later fails for that field alone.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount(data)
			return nil
		}
		*a = Amount(s)
	default:
		*a = Amount(data)
	}
	return nil
}

func (a Amount) String() string { return string(a) }

// Quantity is a line item count. Numbers and numeric strings are accepted;
// anything else leaves it invalid.
type Quantity struct {
	Value int64
	Valid bool
}

// NewQuantity returns a valid quantity of n.
func NewQuantity(n int64) Quantity {
	return Quantity{Value: n, Valid: true}
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, q.Value, 10), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = Quantity{}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*q = NewQuantity(n)
		return nil
	}
	// 2.0 from loosely typed producers
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == float64(int64(f)) {
		*q = NewQuantity(int64(f))
	}
	return nil
}
