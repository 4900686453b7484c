//go:build wireinject
// +build wireinject

package main

import (
	"dollar-bars/internal/app"

	"github.com/google/wire"
)

// InitializeApp builds App (Config, Logger, bar config, output factory) via Wire.
func InitializeApp(o app.Overrides) (*app.App, error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideLogger,
		app.ProvideBarConfig,
		app.ProvideOutput,
		wire.Struct(new(app.App), "*"),
	)
	return nil, nil
}
