package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/joywufn/portfolio-insight/backend/internal/api/handlers"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// UserHeader names the acting user; DEFAULT_USER applies when it is absent
const UserHeader = "X-User"

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Market    *handlers.MarketHandler
	Watchlist *handlers.WatchlistHandler
	Portfolio *handlers.PortfolioHandler
	Alerts    *handlers.AlertHandler
	System    *handlers.SystemHandler
	// WebSocket serves /ws/stocks; nil leaves it unmounted
	WebSocket http.Handler
}

// NewRouter creates and configures the HTTP router. Paths match with or
// without a trailing slash.
// ⭐ SSOT: routes are registered in this function only
func NewRouter(h Handlers, defaultUser string, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	route := func(path string, fn http.HandlerFunc, method string) {
		r.HandleFunc(path, fn).Methods(method, http.MethodOptions)
	}

	// Health check
	route("/health", h.System.Health, http.MethodGet)
	route("/api/status", h.System.GetStatus, http.MethodGet)

	// Taiwan market
	route("/api/taiwan/market-overview", h.Market.GetTaiwanOverview, http.MethodGet)
	route("/api/taiwan/indices", h.Market.GetTaiwanIndices, http.MethodGet)
	route("/api/taiwan/limit-stocks", h.Market.GetTaiwanLimitStocks, http.MethodGet)
	route("/api/taiwan/market-stats", h.Market.GetTaiwanStats, http.MethodGet)

	// Quotes and sessions
	route("/api/market-status", h.Market.GetMarketStatus, http.MethodGet)
	route("/api/real-data/chart/{symbol}", h.Market.GetChart, http.MethodGet)
	route("/api/real-data/{symbol}", h.Market.GetQuote, http.MethodGet)
	route("/api/search", h.Market.Search, http.MethodGet)

	// Watchlist
	route("/api/watchlist/groups", h.Watchlist.ListGroups, http.MethodGet)
	route("/api/watchlist/groups", h.Watchlist.CreateGroup, http.MethodPost)
	route("/api/watchlist/stocks", h.Watchlist.ListItems, http.MethodGet)
	route("/api/watchlist/stocks", h.Watchlist.CreateItem, http.MethodPost)
	route("/api/watchlist/stocks/{id:[0-9]+}", h.Watchlist.GetItem, http.MethodGet)
	route("/api/watchlist/stocks/{id:[0-9]+}", h.Watchlist.UpdateItem, http.MethodPut)
	route("/api/watchlist/stocks/{id:[0-9]+}", h.Watchlist.DeleteItem, http.MethodDelete)
	route("/api/watchlist/summary", h.Watchlist.GetSummary, http.MethodGet)

	// Portfolios
	route("/api/portfolios", h.Portfolio.List, http.MethodGet)
	route("/api/portfolios", h.Portfolio.Create, http.MethodPost)
	route("/api/portfolios/{id:[0-9]+}", h.Portfolio.Get, http.MethodGet)
	route("/api/portfolios/{id:[0-9]+}", h.Portfolio.Update, http.MethodPut)
	route("/api/portfolios/{id:[0-9]+}", h.Portfolio.Delete, http.MethodDelete)
	route("/api/portfolios/{id:[0-9]+}/holdings", h.Portfolio.ListHoldings, http.MethodGet)
	route("/api/portfolios/{id:[0-9]+}/holdings", h.Portfolio.AddHolding, http.MethodPost)
	route("/api/portfolios/{id:[0-9]+}/analysis", h.Portfolio.Analysis, http.MethodGet)
	route("/api/portfolios/{id:[0-9]+}/performance", h.Portfolio.Performance, http.MethodGet)
	route("/api/portfolio-holdings/{id:[0-9]+}", h.Portfolio.UpdateHolding, http.MethodPut)
	route("/api/portfolio-holdings/{id:[0-9]+}", h.Portfolio.DeleteHolding, http.MethodDelete)

	// Price alerts
	route("/api/price-alerts", h.Alerts.List, http.MethodGet)
	route("/api/price-alerts", h.Alerts.Create, http.MethodPost)
	route("/api/price-alerts/{id:[0-9]+}", h.Alerts.Delete, http.MethodDelete)

	// Realtime
	if h.WebSocket != nil {
		r.Handle("/ws/stocks", h.WebSocket).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	// Apply middleware
	r.Use(recoveryMiddleware(log))
	r.Use(loggingMiddleware(log))
	r.Use(mux.CORSMethodMiddleware(r))
	r.Use(corsMiddleware)
	r.Use(userMiddleware(defaultUser))

	return trimSlash(r)
}

// trimSlash drops one trailing slash before routing
func trimSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimSuffix(r.URL.Path, "/")
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"user":     r.Header.Get(UserHeader),
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows any origin and answers preflight requests.
// Allow-Methods is filled in by mux.CORSMethodMiddleware.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+UserHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userMiddleware stores the acting user in the request context
func userMiddleware(defaultUser string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get(UserHeader))
			if user == "" {
				user = defaultUser
			}
			next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handlers.Envelope{
		Success:   false,
		Error:     message,
		Timestamp: time.Now(),
	})
}
