// Package interfaces defines source-client contracts for psxgo
package interfaces

import (
	"context"

	"github.com/psxlabs/psxgo/internal/models"
)

// MonthSource fetches one calendar month of daily bars for a symbol.
// Implementations must be safe for concurrent use: the bounded fetcher calls
// FetchMonth from multiple workers of one batch.
type MonthSource interface {
	// FetchMonth retrieves and parses the bars for one fetch unit.
	// An empty month is an empty slice with a nil error.
	FetchMonth(ctx context.Context, unit models.FetchUnit) ([]models.Bar, models.ParseStats, error)
}

// RangeSource fetches daily bars for a symbol across a whole date range in
// one request.
type RangeSource interface {
	GetHistory(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error)
}

// IntradaySource fetches the current day's tick sequence for a symbol,
// ascending by timestamp.
type IntradaySource interface {
	GetIntraday(ctx context.Context, symbol string) ([]models.Tick, error)
}

// SymbolDirectory lists the symbols the exchange currently quotes.
type SymbolDirectory interface {
	GetSymbols(ctx context.Context) ([]models.SymbolInfo, error)
}

// ChartSource fetches bars from an external charting service. Authenticate
// runs once per client; after a credential failure every later call fails
// fast with the same authentication error.
type ChartSource interface {
	Authenticate(ctx context.Context) error
	GetHistory(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error)
}
