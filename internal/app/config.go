package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"dollar-bars/internal/dollarbar"
	"dollar-bars/internal/saver"
	"dollar-bars/internal/source"
)

// Config holds application configuration from env
type Config struct {
	LogLevel      string          `env:"LOG_LEVEL" envDefault:"info"` // debug | info | warn | error
	Profile       string          `env:"PROFILE"`
	DataDir       string          `env:"DATA_DIR" envDefault:"data"`
	Threshold     decimal.Decimal `env:"BAR_THRESHOLD" envDefault:"100000"`
	MinTicks      int             `env:"BAR_MIN_TICKS" envDefault:"1"`
	ChunkSize     int             `env:"CHUNK_SIZE" envDefault:"100000"`
	SaveFormat    string          `env:"SAVE_FORMAT"`
	Workers       int             `env:"WORKERS" envDefault:"4"`
	PolygonAPIKey string          `env:"POLYGON_API_KEY"`
	Columns       ColumnsConfig   `envPrefix:"TICK_"`
}

// ColumnsConfig names the tick file columns. Empty values keep the default names.
type ColumnsConfig struct {
	Symbol    string `env:"SYMBOL_COL"`
	Timestamp string `env:"TIMESTAMP_COL"`
	Price     string `env:"PRICE_COL"`
	Volume    string `env:"VOLUME_COL"`
}

// Overrides are command-line values that win over the environment. Empty or nil fields keep
// the env value.
type Overrides struct {
	Threshold string
	MinTicks  *int
	ChunkSize *int
	Format    string
	LogLevel  string
	Workers   *int
	Columns   ColumnsConfig
}

// LoadConfig reads .env (if present) and the environment, then applies o.
func LoadConfig(o Overrides) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SaveFormat == "" {
		cfg.SaveFormat = defaultSaveFormat(cfg.Profile)
	}
	if err := o.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultSaveFormat(profile string) string {
	switch strings.ToLower(profile) {
	case "dev", "development":
		return saver.FormatCSV
	default:
		return saver.FormatParquet
	}
}

func (o Overrides) apply(cfg *Config) error {
	if o.Threshold != "" {
		d, err := decimal.NewFromString(o.Threshold)
		if err != nil {
			return fmt.Errorf("threshold %q: %w", o.Threshold, err)
		}
		cfg.Threshold = d
	}
	if o.MinTicks != nil {
		cfg.MinTicks = *o.MinTicks
	}
	if o.ChunkSize != nil {
		cfg.ChunkSize = *o.ChunkSize
	}
	if o.Format != "" {
		cfg.SaveFormat = o.Format
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	setIf(&cfg.Columns.Symbol, o.Columns.Symbol)
	setIf(&cfg.Columns.Timestamp, o.Columns.Timestamp)
	setIf(&cfg.Columns.Price, o.Columns.Price)
	setIf(&cfg.Columns.Volume, o.Columns.Volume)
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate fails fast on values the pipeline would reject later.
func (c *Config) Validate() error {
	if err := c.BarConfig().Validate(); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	f, err := saver.NormalizeFormat(c.SaveFormat)
	if err != nil {
		return err
	}
	c.SaveFormat = f
	return nil
}

// BarConfig returns the aggregator configuration.
func (c *Config) BarConfig() dollarbar.Config {
	return dollarbar.Config{Threshold: c.Threshold, MinTicks: c.MinTicks}
}

// SourceOptions returns the options every tick file is opened with.
func (c *Config) SourceOptions() []source.Option {
	return []source.Option{source.WithColumns(source.Columns(c.Columns))}
}

// BarsDir returns data/bars, the default output directory.
func (c *Config) BarsDir() string {
	return filepath.Join(c.DataDir, "bars")
}
