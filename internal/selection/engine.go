package selection

import (
	"log/slog"
	"time"

	"hashtools/internal/logging"
	"hashtools/internal/record"
)

// Engine runs selection operations against record sets.
type Engine struct {
	ranker *Ranker
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine ranking by the given roots.
func NewEngine(roots *record.RootTable, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		ranker: NewRanker(roots),
		logger: logging.NewComponentLogger(logger, "selection"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if roots.Len() == 0 {
		logging.WarnWithImpact(e.logger, "no storage roots configured",
			"roots_unconfigured",
			"ties on modification time fall through to the path order",
		)
	}
	return e
}

// Ranker exposes the engine's ordering.
func (e *Engine) Ranker() *Ranker { return e.ranker }
