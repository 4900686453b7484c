package app

import (
	"log/slog"

	"dollar-bars/internal/dollarbar"
	"dollar-bars/internal/saver"
	"dollar-bars/internal/slogx"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *Config
	Logger *slog.Logger
	Bars   dollarbar.Config
	Output Output
}

// Output opens bar files in the configured format.
type Output struct {
	Open saver.Factory
	Ext  string
}

// ProvideConfig loads config from environment and flags (for Wire).
func ProvideConfig(o Overrides) (*Config, error) {
	return LoadConfig(o)
}

// ProvideLogger creates the process logger and installs it as slog default (for Wire).
func ProvideLogger(cfg *Config) *slog.Logger {
	l := slogx.NewDefault(cfg.LogLevel)
	slog.SetDefault(l)
	return l
}

// ProvideBarConfig returns the validated aggregator config (for Wire).
func ProvideBarConfig(cfg *Config) (dollarbar.Config, error) {
	bc := cfg.BarConfig()
	return bc, bc.Validate()
}

// ProvideOutput creates the bar file factory from SaveFormat (for Wire).
// Returns error if SaveFormat is not supported.
func ProvideOutput(cfg *Config) (Output, error) {
	open, ext, err := saver.NewFactory(cfg.SaveFormat)
	if err != nil {
		return Output{}, err
	}
	return Output{Open: open, Ext: ext}, nil
}
