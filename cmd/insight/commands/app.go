package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/alerts"
	"github.com/joywufn/portfolio-insight/backend/internal/external/alphavantage"
	"github.com/joywufn/portfolio-insight/backend/internal/external/tpex"
	"github.com/joywufn/portfolio-insight/backend/internal/external/twse"
	"github.com/joywufn/portfolio-insight/backend/internal/market"
	"github.com/joywufn/portfolio-insight/backend/internal/portfolio"
	"github.com/joywufn/portfolio-insight/backend/internal/realtime/cache"
	"github.com/joywufn/portfolio-insight/backend/internal/schedconfig"
	"github.com/joywufn/portfolio-insight/backend/internal/scheduler"
	"github.com/joywufn/portfolio-insight/backend/internal/scheduler/jobs"
	"github.com/joywufn/portfolio-insight/backend/internal/stockdata"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/internal/watchlist"
	"github.com/joywufn/portfolio-insight/backend/pkg/config"
	"github.com/joywufn/portfolio-insight/backend/pkg/database"
	"github.com/joywufn/portfolio-insight/backend/pkg/httputil"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
	"github.com/joywufn/portfolio-insight/backend/pkg/redis"
)

const cachePrefix = "insight"

// app holds the wired services shared by the commands
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	redis *redis.Client
	cache *redis.Cache

	twseExchange *twstock.Exchange
	tpexExchange *twstock.Exchange

	taiwan *market.TaiwanService
	quotes *market.QuoteService
	prices *cache.PriceCache

	// set by withDatabase
	db         *database.DB
	stocks     *stockdata.Repository
	watchlists *watchlist.Repository
	watchlist  *watchlist.Service
	portfolios *portfolio.Service
	alerts     *alerts.Service
}

// newApp wires the market services; Redis failures fall back to no cache
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Redis cache and shared rate limits
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		rdb = redis.Disabled()
	}
	responseCache := redis.NewCache(rdb, cachePrefix)
	limiter := redis.NewRateLimiter(rdb, cachePrefix)

	// 4. Trading sessions
	twseExchange, err := exchangeWithHours(twstock.TWSE(), cfg.TWSE)
	if err != nil {
		return nil, fmt.Errorf("TWSE hours: %w", err)
	}
	tpexExchange, err := exchangeWithHours(twstock.TPEx(), cfg.TPEx)
	if err != nil {
		return nil, fmt.Errorf("TPEx hours: %w", err)
	}

	// 5. External API clients
	twseClient := twse.NewClient(
		httputil.New(log).
			WithTokenBucket(cfg.TWSE.RequestsPerSecond, 1).
			WithRateLimiter(limiter, redis.TWSERateLimit),
		log, cfg.TWSE)
	tpexClient := tpex.NewClient(
		httputil.New(log).
			WithTokenBucket(cfg.TPEx.RequestsPerSecond, 1).
			WithRateLimiter(limiter, redis.TPExRateLimit),
		log, cfg.TPEx)
	avClient := alphavantage.NewClient(
		httputil.NewWithTimeout(log, cfg.AlphaVantage.Timeout).
			WithTokenBucket(float64(cfg.AlphaVantage.RequestsPerMinute)/60, 1).
			WithRateLimiter(limiter, redis.AlphaVantageRateLimit(cfg.AlphaVantage.RequestsPerMinute)),
		log, cfg.AlphaVantage)

	// 6. Market services
	scanner := twstock.NewScanner(twseExchange)
	a := &app{
		cfg:          cfg,
		log:          log,
		redis:        rdb,
		cache:        responseCache,
		twseExchange: twseExchange,
		tpexExchange: tpexExchange,
		taiwan:       market.NewTaiwanService(twseClient, tpexClient, scanner, responseCache, log),
		quotes:       market.NewQuoteService(avClient, nil, responseCache, log),
		prices:       cache.NewPriceCache(cfg.Realtime.PriceTTL, log),
	}
	return a, nil
}

// withDatabase connects PostgreSQL and wires the repositories
func (a *app) withDatabase(ctx context.Context) error {
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	a.log.Info("Connected to database")

	a.stocks = stockdata.NewRepository(db.Pool)
	a.watchlists = watchlist.NewRepository(db.Pool)
	a.watchlist = watchlist.NewService(a.watchlists, a.quotes, a.log)
	a.portfolios = portfolio.NewService(portfolio.NewRepository(db.Pool), a.quotes, a.log)
	a.alerts = alerts.NewService(alerts.NewRepository(db.Pool), a.quotes, a.log)
	return nil
}

// exchanges maps market-status names to the configured sessions
func (a *app) exchanges() map[string]*twstock.Exchange {
	return map[string]*twstock.Exchange{
		"TWSE": a.twseExchange,
		"TW":   a.twseExchange,
		"TPEX": a.tpexExchange,
		"OTC":  a.tpexExchange,
	}
}

// newScheduler registers every job, applying SCHEDULE_FILE when set;
// the database must be connected
func (a *app) newScheduler(opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	var overrides *schedconfig.Config
	if a.cfg.ScheduleFile != "" {
		cfg, err := schedconfig.Load(a.cfg.ScheduleFile)
		if err != nil {
			return nil, err
		}
		hash, err := schedconfig.Hash(cfg)
		if err != nil {
			return nil, err
		}
		a.log.WithFields(map[string]interface{}{
			"file": a.cfg.ScheduleFile,
			"hash": hash[:12],
		}).Info("Loaded schedule overrides")
		overrides = cfg
	}

	loc, err := overrides.Location(a.twseExchange.Location)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(loc, a.log, append(overrides.Options(), opts...)...)

	registered, err := overrides.Apply([]scheduler.Job{
		jobs.NewLimitScanJob(a.taiwan, a.log),
		jobs.NewAlertCheckJob(a.alerts, a.log),
		jobs.NewWatchlistSyncJob(a.watchlists, a.quotes, a.stocks, a.log),
		jobs.NewCacheCleanupJob(a.prices, a.log),
	})
	if err != nil {
		return nil, err
	}
	for _, job := range registered {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}
	return sched, nil
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
}

func exchangeWithHours(base *twstock.Exchange, cfg config.ExchangeConfig) (*twstock.Exchange, error) {
	openHour, openMinute, err := config.ParseClock(cfg.Open)
	if err != nil {
		return nil, err
	}
	closeHour, closeMinute, err := config.ParseClock(cfg.Close)
	if err != nil {
		return nil, err
	}
	return base.WithHours(openHour, openMinute, closeHour, closeMinute)
}

// commandContext bounds one-shot commands
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}
