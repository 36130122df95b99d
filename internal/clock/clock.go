package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the reference instant for recency computations. The pipeline
// never reads wall-clock time directly so runs stay reproducible in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystemClock returns a Clock backed by the system wall clock.
func NewSystemClock() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
