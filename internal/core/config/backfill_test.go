package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseBackfillTime(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	got, ok := ParseBackfillTime("2024-03-01", ist)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, ist), got)

	got, ok = ParseBackfillTime("2024-03-01T10:30:00", ist)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, ist), got)

	_, ok = ParseBackfillTime("", ist)
	require.False(t, ok)
	_, ok = ParseBackfillTime("01/03/2024", ist)
	require.False(t, ok)
}

func TestBackfillWindow(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name   string
		cfg    BackfillConfig
		wantOK bool
	}{
		{name: "disabled", cfg: BackfillConfig{Start: "2024-03-01", End: "2024-03-02"}},
		{name: "valid", cfg: BackfillConfig{Enabled: true, Start: "2024-03-01", End: "2024-03-02T12:00:00"}, wantOK: true},
		{name: "missing end", cfg: BackfillConfig{Enabled: true, Start: "2024-03-01"}},
		{name: "unparseable start", cfg: BackfillConfig{Enabled: true, Start: "yesterday", End: "2024-03-02"}},
		{name: "inverted", cfg: BackfillConfig{Enabled: true, Start: "2024-03-02", End: "2024-03-01"}},
		{name: "equal bounds", cfg: BackfillConfig{Enabled: true, Start: "2024-03-01", End: "2024-03-01"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Backfill: tc.cfg, loc: ist}
			start, end, ok := cfg.BackfillWindow()
			require.Equal(t, tc.wantOK, ok)
			if ok {
				require.True(t, start.Before(end))
				require.Equal(t, ist, start.Location())
			}
		})
	}
}
