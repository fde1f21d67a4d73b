package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// Config es la configuración completa del core de decisión.
type Config struct {
	Sizing  SizingConfig           `yaml:"sizing"`
	Router  RouterConfig           `yaml:"router"`
	Venues  map[string]VenueConfig `yaml:"venues"` // overrides sobre la tabla por defecto
	Feed    FeedConfig             `yaml:"feed"`
	Storage StorageConfig          `yaml:"storage"`
	Metrics MetricsConfig          `yaml:"metrics"`
	Log     LogConfig              `yaml:"log"`
}

// SizingConfig controla el Kelly dinámico.
type SizingConfig struct {
	InitialBankroll   float64 `yaml:"initial_bankroll"`
	BaseMultiplier    float64 `yaml:"base_multiplier"`
	MaxKelly          float64 `yaml:"max_kelly"`
	MinKelly          float64 `yaml:"min_kelly"`
	LookbackTrades    int     `yaml:"lookback_trades"`
	MaxDrawdown       float64 `yaml:"max_drawdown"`
	DrawdownReduction float64 `yaml:"drawdown_reduction"`
}

// RouterConfig controla el smart router.
type RouterConfig struct {
	Mode           string  `yaml:"mode"`         // best_price | best_liquidity | lowest_fee | balanced
	MaxSlippage    float64 `yaml:"max_slippage"` // porcentaje
	PreferMaker    bool    `yaml:"prefer_maker"`
	AllowSplitting bool    `yaml:"allow_splitting"`
	ImpactPercent  float64 `yaml:"impact_percent"`
	VenueTimeoutMs int     `yaml:"venue_timeout_ms"`
	TimeoutMs      int     `yaml:"timeout_ms"`
	MaxParallel    int     `yaml:"max_parallel"`
	Workers        int     `yaml:"workers"` // decisiones concurrentes en batch
}

// VenueConfig sobreescribe fees y latencia de un venue. Los campos nil mantienen el default.
type VenueConfig struct {
	TakerBps  *float64 `yaml:"taker_bps"`
	MakerBps  *float64 `yaml:"maker_bps"`
	LatencyMs *int     `yaml:"latency_ms"`
}

// FeedConfig elige de dónde salen las cotizaciones.
type FeedConfig struct {
	Fixtures   string           `yaml:"fixtures"` // YAML usado en dry-run
	Polymarket PolymarketConfig `yaml:"polymarket"`
	Redis      RedisConfig      `yaml:"redis"`
}

// PolymarketConfig configura la fuente CLOB.
type PolymarketConfig struct {
	Enabled   bool              `yaml:"enabled"`
	CLOBBase  string            `yaml:"clob_base"`
	TimeoutMs int               `yaml:"timeout_ms"`
	DepthBand float64           `yaml:"depth_band"` // fracción sobre el best ask
	Tokens    map[string]string `yaml:"tokens"`     // market id → token id
}

// RedisConfig configura las fuentes de exchanges publicadas en Redis.
type RedisConfig struct {
	Addr      string   `yaml:"addr"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	MaxAgeMs  int      `yaml:"max_age_ms"`
	Platforms []string `yaml:"platforms"`
}

// StorageConfig controla dónde se persisten las decisiones.
type StorageConfig struct {
	DSN           string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
	RetentionDays int    `yaml:"retention_days"`
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = desactivado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug | info | warn | error
	Format     string `yaml:"format"` // text | json
	File       string `yaml:"file"`   // vacío = solo stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse construye la configuración a partir de YAML en memoria.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ROUTER_MODE"); v != "" {
		cfg.Router.Mode = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Feed.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Feed.Redis.Password = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	ds := domain.DefaultSizingConfig()
	s := &cfg.Sizing
	if s.InitialBankroll <= 0 {
		s.InitialBankroll = 1000
	}
	if s.BaseMultiplier <= 0 {
		s.BaseMultiplier = ds.BaseMultiplier
	}
	if s.MaxKelly <= 0 {
		s.MaxKelly = ds.MaxKelly
	}
	if s.MinKelly <= 0 {
		s.MinKelly = ds.MinKelly
	}
	if s.LookbackTrades <= 0 {
		s.LookbackTrades = ds.LookbackTrades
	}
	if s.MaxDrawdown <= 0 {
		s.MaxDrawdown = ds.MaxDrawdown
	}
	if s.DrawdownReduction <= 0 {
		s.DrawdownReduction = ds.DrawdownReduction
	}

	dr := domain.DefaultRouterConfig()
	r := &cfg.Router
	if r.Mode == "" {
		r.Mode = string(dr.Mode)
	}
	if r.MaxSlippage <= 0 {
		r.MaxSlippage = dr.MaxSlippage
	}
	if r.ImpactPercent <= 0 {
		r.ImpactPercent = dr.ImpactPercent
	}
	if r.VenueTimeoutMs <= 0 {
		r.VenueTimeoutMs = int(dr.VenueTimeout / time.Millisecond)
	}
	if r.TimeoutMs <= 0 {
		r.TimeoutMs = int(dr.Timeout / time.Millisecond)
	}
	if r.Workers <= 0 {
		r.Workers = 4
	}

	pm := &cfg.Feed.Polymarket
	if pm.CLOBBase == "" {
		pm.CLOBBase = "https://clob.polymarket.com"
	}
	if pm.TimeoutMs <= 0 {
		pm.TimeoutMs = 10000
	}
	if pm.DepthBand <= 0 {
		pm.DepthBand = 0.02
	}
	if cfg.Feed.Redis.KeyPrefix == "" {
		cfg.Feed.Redis.KeyPrefix = "quote:"
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "tradecore.db"
	}
	if cfg.Storage.RetentionDays <= 0 {
		cfg.Storage.RetentionDays = 90
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 28
	}
}

// Validate comprueba que la configuración se pueda convertir a los tipos de dominio.
// Los nombres de venue desconocidos se rechazan.
func (c *Config) Validate() error {
	if err := c.SizingConfig().Validate(); err != nil {
		return fmt.Errorf("sizing: %w", err)
	}
	rc, err := c.RouterConfig()
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("router: %w", err)
	}
	if _, err := c.VenueTable(); err != nil {
		return fmt.Errorf("venues: %w", err)
	}
	if _, err := c.RedisPlatforms(); err != nil {
		return fmt.Errorf("feed.redis: %w", err)
	}
	if c.Feed.Polymarket.DepthBand >= 1 {
		return fmt.Errorf("feed.polymarket: %w: depth_band must be < 1, got %v",
			domain.ErrInvalidInput, c.Feed.Polymarket.DepthBand)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log: %w: unknown format %q", domain.ErrInvalidInput, c.Log.Format)
	}
	return nil
}

// SizingConfig convierte la sección sizing al tipo de dominio.
func (c *Config) SizingConfig() domain.SizingConfig {
	return domain.SizingConfig{
		BaseMultiplier:    c.Sizing.BaseMultiplier,
		MaxKelly:          c.Sizing.MaxKelly,
		MinKelly:          c.Sizing.MinKelly,
		LookbackTrades:    c.Sizing.LookbackTrades,
		MaxDrawdown:       c.Sizing.MaxDrawdown,
		DrawdownReduction: c.Sizing.DrawdownReduction,
	}
}

// RouterConfig convierte la sección router al tipo de dominio.
func (c *Config) RouterConfig() (domain.RouterConfig, error) {
	mode, err := domain.ParseRouteMode(c.Router.Mode)
	if err != nil {
		return domain.RouterConfig{}, err
	}
	return domain.RouterConfig{
		Mode:           mode,
		MaxSlippage:    c.Router.MaxSlippage,
		PreferMaker:    c.Router.PreferMaker,
		AllowSplitting: c.Router.AllowSplitting,
		ImpactPercent:  c.Router.ImpactPercent,
		VenueTimeout:   time.Duration(c.Router.VenueTimeoutMs) * time.Millisecond,
		Timeout:        time.Duration(c.Router.TimeoutMs) * time.Millisecond,
		MaxParallel:    c.Router.MaxParallel,
	}, nil
}

// VenueTable aplica los overrides de venues sobre la tabla por defecto.
func (c *Config) VenueTable() (domain.VenueTable, error) {
	table := domain.DefaultVenueTable()

	names := make([]string, 0, len(c.Venues))
	for name := range c.Venues {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, err := domain.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		v := c.Venues[name]
		prof := table[p]
		if v.TakerBps != nil {
			prof.TakerBps = *v.TakerBps
		}
		if v.MakerBps != nil {
			prof.MakerBps = *v.MakerBps
		}
		if v.LatencyMs != nil {
			prof.LatencyMs = *v.LatencyMs
		}
		table[p] = prof
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// RedisPlatforms devuelve los venues servidos desde Redis.
func (c *Config) RedisPlatforms() ([]domain.Platform, error) {
	out := make([]domain.Platform, 0, len(c.Feed.Redis.Platforms))
	for _, name := range c.Feed.Redis.Platforms {
		p, err := domain.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		if p == domain.PlatformPolymarket && c.Feed.Polymarket.Enabled {
			return nil, fmt.Errorf("%w: polymarket is served by the CLOB source", domain.ErrInvalidInput)
		}
		out = append(out, p)
	}
	return out, nil
}

// Retention devuelve la retención del journal.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// RedisMaxAge devuelve la antigüedad máxima aceptada para una cotización de Redis.
func (c *Config) RedisMaxAge() time.Duration {
	return time.Duration(c.Feed.Redis.MaxAgeMs) * time.Millisecond
}

// PolymarketTimeout devuelve el timeout HTTP del cliente CLOB.
func (c *Config) PolymarketTimeout() time.Duration {
	return time.Duration(c.Feed.Polymarket.TimeoutMs) * time.Millisecond
}
