package config

import (
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve on minimal images

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const envPrefix = "ORDERPULSE_"

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig            `koanf:"server"`
	Log      LogConfig               `koanf:"log"`
	Pipeline PipelineConfig          `koanf:"pipeline"`
	Backfill BackfillConfig          `koanf:"backfill"`
	Tenants  map[string]TenantConfig `koanf:"tenants"`

	loc         *time.Location
	grossFactor decimal.Decimal
}

type ServerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Port    int    `koanf:"port"`
	Host    string `koanf:"host"`
	Mode    string `koanf:"mode"` // debug | release
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // text | json
}

type PipelineConfig struct {
	Interval            time.Duration `koanf:"interval"`
	WorkerCount         int           `koanf:"worker_count"` // 0 = derive from available CPUs
	Timezone            string        `koanf:"timezone"`
	FetchTimeout        time.Duration `koanf:"fetch_timeout"`
	RunTimeout          time.Duration `koanf:"run_timeout"`
	ConnAcquireAttempts int           `koanf:"conn_acquire_attempts"`
	ConnAcquireInterval time.Duration `koanf:"conn_acquire_interval"`
	ConnAcquireTimeout  time.Duration `koanf:"conn_acquire_timeout"`
	ChannelsFile        string        `koanf:"channels_file"`
	GrossSalesFactor    string        `koanf:"gross_sales_factor"`
	AutoMigrate         bool          `koanf:"auto_migrate"`
}

// BackfillConfig holds the optional explicit window. Values are wall-clock
// times in pipeline.timezone.
type BackfillConfig struct {
	Enabled bool   `koanf:"enabled"`
	Start   string `koanf:"start"`
	End     string `koanf:"end"`
}

// TenantConfig is the configuration record of one tenant, keyed by its stable id.
type TenantConfig struct {
	Name         string            `koanf:"name"`
	Database     DatabaseConfig    `koanf:"database"`
	Shop         ShopConfig        `koanf:"shop"`
	Sessions     SessionsConfig    `koanf:"sessions"`
	AppIDMapping map[string]string `koanf:"app_id_mapping"`
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // postgres | pgx | mysql
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

type ShopConfig struct {
	BaseURL             string  `koanf:"base_url"`
	ShopName            string  `koanf:"shop_name"`
	APIVersion          string  `koanf:"api_version"`
	AccessToken         string  `koanf:"access_token"`
	PageSize            int     `koanf:"page_size"`
	RequestsPerSecond   float64 `koanf:"requests_per_second"`
	MaxRateLimitRetries int     `koanf:"max_rate_limit_retries"`
}

type SessionsConfig struct {
	Enabled      bool   `koanf:"enabled"`
	URL          string `koanf:"url"`
	Brand        string `koanf:"brand"`
	CollectorKey string `koanf:"collector_key"`
}

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// Location is the timezone all calendar dates are computed in.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// GrossSalesFactor is the multiplier from line-item sales to gross sales.
func (c *Config) GrossSalesFactor() decimal.Decimal {
	return c.grossFactor
}

// TenantIDs returns the configured tenant ids in sorted order.
func (c *Config) TenantIDs() []string {
	ids := make([]string, 0, len(c.Tenants))
	for id := range c.Tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EffectiveWorkerCount sizes the tenant worker pool: the configured value, or
// max(2, NumCPU/2), never more than the number of tenants.
func (c PipelineConfig) EffectiveWorkerCount(tenants int) int {
	n := c.WorkerCount
	if n <= 0 {
		n = max(2, runtime.NumCPU()/2)
	}
	if tenants > 0 && n > tenants {
		n = tenants
	}
	return max(n, 1)
}

// APIBaseURL is the orders API root for the tenant's shop.
func (s ShopConfig) APIBaseURL() string {
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", s.ShopName, s.APIVersion)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q (must be text or json)", c.Log.Format)
	}

	if c.Pipeline.Interval < time.Minute {
		return fmt.Errorf("pipeline.interval must be >= 1m, got %s", c.Pipeline.Interval)
	}
	if c.Pipeline.WorkerCount < 0 {
		return fmt.Errorf("pipeline.worker_count must be >= 0")
	}
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return fmt.Errorf("invalid pipeline.timezone %q: %w", c.Pipeline.Timezone, err)
	}
	c.loc = loc
	if c.Pipeline.FetchTimeout <= 0 {
		return fmt.Errorf("pipeline.fetch_timeout must be > 0")
	}
	if c.Pipeline.RunTimeout <= 0 {
		return fmt.Errorf("pipeline.run_timeout must be > 0")
	}
	if c.Pipeline.ConnAcquireAttempts <= 0 {
		return fmt.Errorf("pipeline.conn_acquire_attempts must be > 0")
	}
	if c.Pipeline.ConnAcquireInterval < 0 || c.Pipeline.ConnAcquireTimeout <= 0 {
		return fmt.Errorf("pipeline.conn_acquire_interval must be >= 0 and conn_acquire_timeout > 0")
	}
	factor, err := decimal.NewFromString(c.Pipeline.GrossSalesFactor)
	if err != nil || !factor.IsPositive() {
		return fmt.Errorf("invalid pipeline.gross_sales_factor %q (must be a positive decimal)", c.Pipeline.GrossSalesFactor)
	}
	c.grossFactor = factor

	if len(c.Tenants) == 0 {
		return fmt.Errorf("at least one tenant must be configured")
	}
	for _, id := range c.TenantIDs() {
		if err := c.Tenants[id].validate(id); err != nil {
			return err
		}
	}

	return nil
}

func (t TenantConfig) validate(id string) error {
	if !tenantIDPattern.MatchString(id) {
		return fmt.Errorf("tenant %q: id must match %s", id, tenantIDPattern)
	}

	switch t.Database.Driver {
	case "postgres", "pgx", "mysql":
	default:
		return fmt.Errorf("tenant %q: unsupported database.driver %q", id, t.Database.Driver)
	}
	if strings.TrimSpace(t.Database.DSN) == "" {
		return fmt.Errorf("tenant %q: database.dsn is required", id)
	}
	if t.Database.MaxOpenConns <= 0 || t.Database.MaxIdleConns < 0 {
		return fmt.Errorf("tenant %q: database.max_open_conns must be > 0 and max_idle_conns >= 0", id)
	}

	if t.Shop.BaseURL == "" && (t.Shop.ShopName == "" || t.Shop.APIVersion == "") {
		return fmt.Errorf("tenant %q: shop.base_url or shop.shop_name with shop.api_version is required", id)
	}
	if strings.TrimSpace(t.Shop.AccessToken) == "" {
		return fmt.Errorf("tenant %q: shop.access_token is required", id)
	}
	if t.Shop.PageSize <= 0 || t.Shop.PageSize > 250 {
		return fmt.Errorf("tenant %q: shop.page_size must be 1-250", id)
	}
	if t.Shop.RequestsPerSecond <= 0 {
		return fmt.Errorf("tenant %q: shop.requests_per_second must be > 0", id)
	}
	if t.Shop.MaxRateLimitRetries < 0 {
		return fmt.Errorf("tenant %q: shop.max_rate_limit_retries must be >= 0", id)
	}

	if t.Sessions.Enabled {
		if t.Sessions.URL == "" || t.Sessions.Brand == "" || t.Sessions.CollectorKey == "" {
			return fmt.Errorf("tenant %q: sessions.url, sessions.brand and sessions.collector_key are required when sessions are enabled", id)
		}
	}
	return nil
}

// tenantDefaults apply below every tenants.<id> key that was not set
// explicitly, so an explicit zero is kept.
var tenantDefaults = map[string]interface{}{
	"database.driver":             "postgres",
	"database.max_open_conns":     4,
	"database.max_idle_conns":     2,
	"shop.api_version":            "2024-01",
	"shop.page_size":              250,
	"shop.requests_per_second":    2,
	"shop.max_rate_limit_retries": 5,
}

// setTenantDefaults fills tenantDefaults once tenant ids are known; static
// koanf defaults cannot address keys below a map.
func setTenantDefaults(k *koanf.Koanf) {
	for _, id := range k.MapKeys("tenants") {
		prefix := "tenants." + id + "."
		for key, value := range tenantDefaults {
			if !k.Exists(prefix + key) {
				k.Set(prefix+key, value)
			}
		}
	}
}

func (t *TenantConfig) applyDefaults(id string) {
	if t.Name == "" {
		t.Name = id
	}
	if t.AppIDMapping == nil {
		t.AppIDMapping = map[string]string{}
	}
}

// Load parses config from defaults, file and env, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.enabled":                 true,
		"server.port":                    8080,
		"server.host":                    "0.0.0.0",
		"server.mode":                    "release",
		"log.level":                      "info",
		"log.format":                     "text",
		"pipeline.interval":              "10m",
		"pipeline.worker_count":          0,
		"pipeline.timezone":              "Asia/Kolkata",
		"pipeline.fetch_timeout":         "5m",
		"pipeline.run_timeout":           "30m",
		"pipeline.conn_acquire_attempts": 10,
		"pipeline.conn_acquire_interval": "200ms",
		"pipeline.conn_acquire_timeout":  "2s",
		"pipeline.channels_file":         "",
		"pipeline.gross_sales_factor":    "0.84",
		"pipeline.auto_migrate":          true,
		"backfill.enabled":               false,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	setTenantDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for id, t := range cfg.Tenants {
		t.applyDefaults(id)
		cfg.Tenants[id] = t
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
