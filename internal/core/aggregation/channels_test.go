package aggregation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultChannels(t *testing.T) {
	c := DefaultChannels()
	require.Len(t, c.Channels, 9)
	require.Equal(t, "builtin", c.Fingerprint)

	ch, ok := c.Lookup("HYPD_store")
	require.True(t, ok)
	require.True(t, ch.External)

	ch, ok = c.Lookup("Online Store")
	require.True(t, ok)
	require.Equal(t, "online_store", ch.Name)
	require.False(t, ch.External)

	_, ok = c.Lookup("Point of Sale")
	require.False(t, ok)
}

func TestLoadChannels(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
		check   func(t *testing.T, c *ChannelCatalog)
	}{
		{
			name: "valid catalogue",
			body: `
channels:
  - name: web
    app_names: ["Online Store", "Draft Order"]
  - name: marketplace
    app_names: ["Marketplace"]
    external: true
`,
			check: func(t *testing.T, c *ChannelCatalog) {
				require.Len(t, c.Channels, 2)
				require.Len(t, c.Fingerprint, 64)
				ch, ok := c.Lookup("Draft Order")
				require.True(t, ok)
				require.Equal(t, "web", ch.Name)
			},
		},
		{name: "empty catalogue", body: "channels: []\n", wantErr: "at least one channel"},
		{
			name: "duplicate app name",
			body: `
channels:
  - name: a
    app_names: ["X"]
  - name: b
    app_names: ["X"]
`,
			wantErr: `app name "X" mapped to both`,
		},
		{
			name: "missing app names",
			body: `
channels:
  - name: a
`,
			wantErr: "app_names must not be empty",
		},
		{name: "bad yaml", body: "channels: [", wantErr: "parsing channel catalogue"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "channels.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))

			c, err := LoadChannels(path)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, c)
		})
	}
}

func TestLoadChannels_EmptyPathUsesDefaults(t *testing.T) {
	c, err := LoadChannels("")
	require.NoError(t, err)
	require.Equal(t, "builtin", c.Fingerprint)
}
