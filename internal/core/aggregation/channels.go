package aggregation

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Channel is one sales channel of the sales summary. Orders are attributed to
// a channel by their mapped app name.
type Channel struct {
	Name     string   `yaml:"name"`
	AppNames []string `yaml:"app_names"`
	// External channels are left out of the direct sales totals.
	External bool `yaml:"external"`
}

// ChannelCatalog is the ordered set of channels the sales summary reports.
type ChannelCatalog struct {
	Channels    []Channel
	Fingerprint string // SHA-256 of the source file; "builtin" for the default catalogue
	byApp       map[string]int
}

type rawCatalog struct {
	Channels []Channel `yaml:"channels"`
}

// DefaultChannels is used when no catalogue file is configured.
func DefaultChannels() *ChannelCatalog {
	c, err := newCatalog([]Channel{
		{Name: "gokwik", AppNames: []string{"GoKwik"}},
		{Name: "kwik_engage", AppNames: []string{"KwikEngage"}},
		{Name: "online_store", AppNames: []string{"Online Store"}},
		{Name: "hypd_store", AppNames: []string{"HYPD_store"}, External: true},
		{Name: "draft_order", AppNames: []string{"Draft Order"}},
		{Name: "dpanda", AppNames: []string{"Dpanda"}},
		{Name: "gkappbrew", AppNames: []string{"GKAppbrew"}},
		{Name: "buykaro", AppNames: []string{"BuyKaro"}},
		{Name: "appbrewplus", AppNames: []string{"AppbrewPlus"}},
	})
	if err != nil {
		panic(err)
	}
	c.Fingerprint = "builtin"
	return c
}

// LoadChannels reads a catalogue file. An empty path yields DefaultChannels.
func LoadChannels(path string) (*ChannelCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultChannels(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading channel catalogue %s: %w", path, err)
	}

	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing channel catalogue %s: %w", path, err)
	}
	c, err := newCatalog(raw.Channels)
	if err != nil {
		return nil, fmt.Errorf("channel catalogue %s: %w", path, err)
	}
	c.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))
	return c, nil
}

func newCatalog(channels []Channel) (*ChannelCatalog, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}
	c := &ChannelCatalog{Channels: channels, byApp: make(map[string]int)}
	names := make(map[string]struct{}, len(channels))
	for i, ch := range channels {
		if ch.Name == "" {
			return nil, fmt.Errorf("channel %d: name must not be empty", i)
		}
		if _, dup := names[ch.Name]; dup {
			return nil, fmt.Errorf("channel %q: duplicate name", ch.Name)
		}
		names[ch.Name] = struct{}{}
		if len(ch.AppNames) == 0 {
			return nil, fmt.Errorf("channel %q: app_names must not be empty", ch.Name)
		}
		for _, app := range ch.AppNames {
			if prev, taken := c.byApp[app]; taken {
				return nil, fmt.Errorf("app name %q mapped to both %q and %q", app, channels[prev].Name, ch.Name)
			}
			c.byApp[app] = i
		}
	}
	return c, nil
}

// Lookup returns the channel an app name belongs to.
func (c *ChannelCatalog) Lookup(appName string) (Channel, bool) {
	i, ok := c.byApp[appName]
	if !ok {
		return Channel{}, false
	}
	return c.Channels[i], true
}
