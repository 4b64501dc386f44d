package config

import (
	"log/slog"
	"strings"
	"time"
)

var backfillLayouts = []string{"2006-01-02T15:04:05", "2006-01-02"}

// ParseBackfillTime parses "YYYY-MM-DD" or "YYYY-MM-DDTHH:MM:SS" as wall-clock
// time in loc.
func ParseBackfillTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range backfillLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BackfillWindow returns the explicit override window when backfill is enabled
// and both bounds parse with start < end. Anything else is logged and treated
// as no override.
func (c *Config) BackfillWindow() (start, end time.Time, ok bool) {
	if !c.Backfill.Enabled {
		return time.Time{}, time.Time{}, false
	}
	loc := c.Location()

	start, startOK := ParseBackfillTime(c.Backfill.Start, loc)
	end, endOK := ParseBackfillTime(c.Backfill.End, loc)
	if !startOK || !endOK {
		slog.Warn("[Config] Backfill enabled but start/end missing or invalid, ignoring override",
			"start", c.Backfill.Start,
			"end", c.Backfill.End,
		)
		return time.Time{}, time.Time{}, false
	}
	if !start.Before(end) {
		slog.Warn("[Config] Backfill start is not before end, ignoring override",
			"start", start,
			"end", end,
		)
		return time.Time{}, time.Time{}, false
	}

	slog.Info("[Config] Backfill override active", "start", start, "end", end, "timezone", loc.String())
	return start, end, true
}
