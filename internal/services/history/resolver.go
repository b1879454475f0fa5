package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/models"
)

// Strategy is one way of obtaining a symbol's bars for a range. A strategy
// fails by returning an error of any class or by returning no bars; both
// advance the resolver to the next strategy.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error)
}

// Attempt records one failed strategy for the exhaustion report.
type Attempt struct {
	Strategy string
	Reason   string
}

// ExhaustedError is the terminal failure after every configured strategy has
// been tried: each attempt and its reason, for diagnosis.
type ExhaustedError struct {
	Symbol   string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		reasons[i] = fmt.Sprintf("%s: %s", a.Strategy, a.Reason)
	}
	return fmt.Sprintf("all sources exhausted for %s: %s", e.Symbol, strings.Join(reasons, "; "))
}

// Resolver walks retrieval strategies in priority order, short-circuiting on
// the first non-empty result. Constructed explicitly with its strategy list;
// there is no process-wide default instance.
type Resolver struct {
	strategies []Strategy
	logger     *common.Logger
}

// NewResolver creates a resolver over the given strategy order.
func NewResolver(logger *common.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Resolver{strategies: strategies, logger: logger}
}

// Resolve tries each strategy until one yields bars. Authentication errors
// are recorded like any other failure and never abort the walk — a broken
// credential for one source says nothing about the others. Only exhaustion
// is fatal. Never returns an empty result with a nil error: callers get data
// or a terminal error naming every attempt.
func (r *Resolver) Resolve(ctx context.Context, symbol string, dr models.DateRange) ([]models.Bar, error) {
	if len(r.strategies) == 0 {
		return nil, common.ConfigError("resolver", "no strategies configured", nil)
	}

	attempts := make([]Attempt, 0, len(r.strategies))

	for _, strategy := range r.strategies {
		r.logger.Debug().Str("symbol", symbol).Str("strategy", strategy.Name()).Msg("Trying source")

		bars, err := strategy.Fetch(ctx, symbol, dr)
		switch {
		case err != nil:
			r.logger.Warn().
				Str("symbol", symbol).
				Str("strategy", strategy.Name()).
				Str("class", common.ClassOf(err).String()).
				Err(err).
				Msg("Source failed, advancing")
			attempts = append(attempts, Attempt{Strategy: strategy.Name(), Reason: err.Error()})
		case len(bars) == 0:
			r.logger.Warn().Str("symbol", symbol).Str("strategy", strategy.Name()).Msg("Source returned no data, advancing")
			attempts = append(attempts, Attempt{Strategy: strategy.Name(), Reason: "empty result"})
		default:
			r.logger.Info().
				Str("symbol", symbol).
				Str("strategy", strategy.Name()).
				Int("bars", len(bars)).
				Msg("Source resolved")
			return bars, nil
		}

		if ctx.Err() != nil {
			attempts = append(attempts, Attempt{Strategy: "context", Reason: ctx.Err().Error()})
			break
		}
	}

	return nil, &ExhaustedError{Symbol: symbol, Attempts: attempts}
}
