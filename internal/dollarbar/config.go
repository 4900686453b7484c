package dollarbar

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config is supplied once at construction and never changes afterwards.
type Config struct {
	// Threshold is the dollar value a bar must reach before it can close.
	Threshold decimal.Decimal
	// MinTicks keeps a bar open until it holds at least this many ticks, even past Threshold.
	MinTicks int
}

// Validate checks Threshold > 0 and MinTicks >= 0.
func (c Config) Validate() error {
	if !c.Threshold.IsPositive() {
		return fmt.Errorf("%w: threshold must be positive, got %s", ErrInvalidConfig, c.Threshold)
	}
	if c.MinTicks < 0 {
		return fmt.Errorf("%w: min ticks must not be negative, got %d", ErrInvalidConfig, c.MinTicks)
	}
	return nil
}
