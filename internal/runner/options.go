package runner

import (
	"log/slog"

	"github.com/san-kum/drivesim/internal/goal"
	"github.com/san-kum/drivesim/internal/physics"
	"github.com/san-kum/drivesim/internal/sim"
)

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithObserver adds a notification sink; may be repeated.
func WithObserver(o sim.Observer) Option {
	return func(c *Controller) { c.obs = append(c.obs, o) }
}

func WithEvaluator(e goal.Evaluator) Option {
	return func(c *Controller) { c.eval = e }
}

// WithRand replaces the sensor noise source. A nil Rand disables noise.
func WithRand(r physics.Rand) Option {
	return func(c *Controller) {
		c.rng = r
		c.rngSet = true
	}
}
