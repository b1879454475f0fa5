package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/psxlabs/psxgo/internal/clients/psxapi"
	"github.com/psxlabs/psxgo/internal/clients/psxweb"
	"github.com/psxlabs/psxgo/internal/clients/tradingview"
	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/services/history"
	"github.com/psxlabs/psxgo/internal/services/ticker"
)

func main() {
	var (
		symbol   = flag.String("symbol", "", "ticker symbol, e.g. HBL")
		period   = flag.String("period", "1mo", "period shorthand (Xmo or Xy) when no range is given")
		from     = flag.String("from", "", "range start, YYYY-MM-DD")
		to       = flag.String("to", "", "range end, YYYY-MM-DD")
		intraday = flag.Bool("intraday", false, "fetch today's tick series instead of daily history")
		quote    = flag.Bool("quote", false, "print an intraday quote summary")
	)
	flag.Parse()

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: psxgo -symbol HBL [-period 3mo | -from 2023-10-01 -to 2023-10-31] [-intraday|-quote]")
		os.Exit(2)
	}

	config, err := common.LoadConfig(os.Getenv("PSXGO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(config.Logging.Level)

	// Cancel in-flight fetches on interrupt.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	webClient := psxweb.NewClient(
		psxweb.WithBaseURL(config.Clients.PSXWeb.BaseURL),
		psxweb.WithRateLimit(config.Clients.PSXWeb.RateLimit),
		psxweb.WithTimeout(config.Clients.PSXWeb.GetTimeout()),
		psxweb.WithLogger(logger),
	)
	apiClient := psxapi.NewClient(
		psxapi.WithBaseURL(config.Clients.PSXAPI.BaseURL),
		psxapi.WithRateLimit(config.Clients.PSXAPI.RateLimit),
		psxapi.WithTimeout(config.Clients.PSXAPI.GetTimeout()),
		psxapi.WithLogger(logger),
	)
	chartClient := tradingview.NewClient(
		tradingview.WithCredentials(config.Clients.TradingView.Username, config.Clients.TradingView.Password),
		tradingview.WithTimeout(config.Clients.TradingView.GetTimeout()),
		tradingview.WithLogger(logger),
	)

	fetcher := history.NewFetcher(logger)
	resolver := history.NewResolver(logger,
		history.NewScrapeStrategy(webClient, fetcher,
			history.WithWorkers(config.Fetch.Workers),
			history.WithProgress(func(done, total int) {
				logger.Info().Int("done", done).Int("total", total).Msg("Fetch progress")
			}),
		),
		history.NewAPIStrategy(apiClient),
		history.NewChartStrategy(chartClient),
	)

	tk, err := ticker.New(*symbol, resolver, webClient, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid symbol")
		os.Exit(1)
	}

	switch {
	case *quote:
		q, err := tk.Quote(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Quote failed")
			os.Exit(1)
		}
		fmt.Printf("%s price=%.2f change=%.2f (%.2f%%) volume=%d at=%s\n",
			q.Symbol, q.Price, q.Change, q.ChangePct, q.Volume, q.Timestamp.Format(time.RFC3339))

	case *intraday:
		ticks, err := tk.Intraday(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Intraday fetch failed")
			os.Exit(1)
		}
		fmt.Println("time,price,volume")
		for _, tick := range ticks {
			fmt.Printf("%s,%.2f,%d\n", tick.Time.Format(time.RFC3339), tick.Price, tick.Volume)
		}

	default:
		opts, err := historicalOpts(*period, *from, *to)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid range")
			os.Exit(1)
		}
		bars, err := tk.Historical(ctx, opts...)
		if err != nil {
			logger.Error().Err(err).Msg("Historical fetch failed")
			os.Exit(1)
		}
		fmt.Println("date,open,high,low,close,volume")
		for _, bar := range bars {
			fmt.Printf("%s,%.2f,%.2f,%.2f,%.2f,%d\n",
				bar.Time.Format("2006-01-02"), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		}
	}
}

// historicalOpts translates CLI flags into facade options.
func historicalOpts(period, from, to string) ([]ticker.HistoricalOption, error) {
	opts := []ticker.HistoricalOption{ticker.WithPeriod(period)}

	var start, end time.Time
	var err error
	if from != "" {
		start, err = time.Parse("2006-01-02", from)
		if err != nil {
			return nil, common.ConfigError("cli", fmt.Sprintf("invalid -from date %q", from), err)
		}
	}
	if to != "" {
		end, err = time.Parse("2006-01-02", to)
		if err != nil {
			return nil, common.ConfigError("cli", fmt.Sprintf("invalid -to date %q", to), err)
		}
	}

	if !start.IsZero() {
		opts = append(opts, ticker.WithRange(start, end))
	} else if !end.IsZero() {
		opts = append(opts, ticker.WithEnd(end))
	}

	return opts, nil
}
