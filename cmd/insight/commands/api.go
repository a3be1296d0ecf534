package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joywufn/portfolio-insight/backend/internal/api"
	"github.com/joywufn/portfolio-insight/backend/internal/api/handlers"
	"github.com/joywufn/portfolio-insight/backend/internal/realtime"
	"github.com/joywufn/portfolio-insight/backend/internal/realtime/feed"
	"github.com/joywufn/portfolio-insight/backend/internal/realtime/hub"
)

const version = "1.0.0"

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API and the /ws/stocks WebSocket feed.

This command:
- serves the market, watchlist, portfolio and alert endpoints
- runs the price simulator behind the WebSocket hub
- polls live quotes when an Alpha Vantage key is configured
- optionally runs the scheduler in-process (--scheduler)

Example:
  go run ./cmd/insight api
  go run ./cmd/insight api --port 8080 --scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort         string
	apiScheduler    bool
	apiPollInterval time.Duration
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default $PORT)")
	apiCmd.Flags().BoolVar(&apiScheduler, "scheduler", false, "run scheduled jobs in this process")
	apiCmd.Flags().DurationVar(&apiPollInterval, "poll-interval", 5*time.Minute, "live quote poll interval")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Portfolio Insight API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Wire services
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	if err := a.withDatabase(ctx); err != nil {
		return err
	}

	// 2. Realtime feed
	sim := feed.NewSimulator(realtime.DefaultSymbols, a.prices, a.cfg.Realtime.BroadcastInterval, nil, a.log)
	sim.Start(ctx)
	defer sim.Stop()

	if a.cfg.AlphaVantage.APIKey != "" {
		poller := feed.NewQuotePoller(realtime.DefaultSymbols, a.quotes, a.prices, apiPollInterval, a.log)
		poller.Start(ctx)
		defer poller.Stop()
	}

	wsHub := hub.New(sim, a.cfg.Realtime.BroadcastInterval, a.log)
	go wsHub.Run(ctx)

	// 3. Optional scheduler
	if apiScheduler {
		sched, err := a.newScheduler()
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// 4. Router and server
	router := api.NewRouter(api.Handlers{
		Market:    handlers.NewMarketHandler(a.taiwan, a.quotes, a.stocks, a.exchanges(), a.log),
		Watchlist: handlers.NewWatchlistHandler(a.watchlist, a.log),
		Portfolio: handlers.NewPortfolioHandler(a.portfolios, a.log),
		Alerts:    handlers.NewAlertHandler(a.alerts, a.log),
		System:    handlers.NewSystemHandler(a.db, a.redis, a.prices, wsHub, version, a.log),
		WebSocket: wsHub,
	}, a.cfg.DefaultUser, a.log)

	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nKey endpoints:")
	PrintList([]string{
		"GET  /health",
		"GET  /api/taiwan/market-overview/",
		"GET  /api/portfolios/",
		"GET  /ws/stocks/ (WebSocket)",
	})
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
