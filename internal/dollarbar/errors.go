package dollarbar

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is returned by New and Restore for a non-positive threshold or negative min ticks.
	ErrInvalidConfig = errors.New("dollarbar: invalid config")
	// ErrOutOfOrderTick is returned when a tick is older than the last accepted one.
	ErrOutOfOrderTick = errors.New("dollarbar: out of order tick")
	// ErrInvalidTick is returned for a non-positive price or a negative volume.
	ErrInvalidTick = errors.New("dollarbar: invalid tick")
	// ErrCheckpointMismatch is returned when a checkpoint was taken with a different config.
	ErrCheckpointMismatch = errors.New("dollarbar: checkpoint does not match config")
)

// OutOfOrderTickError carries both timestamps of a rejected tick.
type OutOfOrderTickError struct {
	Last time.Time
	Got  time.Time
}

func (e *OutOfOrderTickError) Error() string {
	return fmt.Sprintf("%v: got %s, last accepted %s",
		ErrOutOfOrderTick, e.Got.Format(time.RFC3339Nano), e.Last.Format(time.RFC3339Nano))
}

func (e *OutOfOrderTickError) Unwrap() error { return ErrOutOfOrderTick }
