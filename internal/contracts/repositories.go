package contracts

import (
	"context"
)

// ⭐ SSOT: repository and provider interfaces are defined here only

// QuoteProvider returns the latest quote for a symbol
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
}

// StockRepository manages listings and price snapshots
type StockRepository interface {
	Upsert(ctx context.Context, stock *Stock) (*Stock, error)
	GetBySymbol(ctx context.Context, symbol string) (*Stock, error)
	Search(ctx context.Context, query string, limit int) ([]*Stock, error)
	SavePrice(ctx context.Context, price *StockPrice) error
	LatestPrice(ctx context.Context, symbol string) (*StockPrice, error)
}

// WatchlistRepository manages watchlist groups and items
type WatchlistRepository interface {
	ListGroups(ctx context.Context, user string) ([]*WatchlistGroup, error)
	CreateGroup(ctx context.Context, group *WatchlistGroup) error
	ListItems(ctx context.Context, user string, groupID *int64) ([]*WatchlistItem, error)
	GetItem(ctx context.Context, user string, id int64) (*WatchlistItem, error)
	CreateItem(ctx context.Context, item *WatchlistItem) error
	UpdateItem(ctx context.Context, item *WatchlistItem) error
	DeleteItem(ctx context.Context, user string, id int64) error
	Symbols(ctx context.Context) ([]string, error)
}

// PortfolioRepository manages portfolios and their holdings
type PortfolioRepository interface {
	List(ctx context.Context, user string) ([]*Portfolio, error)
	Get(ctx context.Context, user string, id int64) (*Portfolio, error)
	Create(ctx context.Context, p *Portfolio) error
	Update(ctx context.Context, p *Portfolio) error
	Delete(ctx context.Context, user string, id int64) error

	ListHoldings(ctx context.Context, portfolioID int64) ([]*Holding, error)
	GetHolding(ctx context.Context, user string, id int64) (*Holding, error)
	AddHolding(ctx context.Context, h *Holding) error
	UpdateHolding(ctx context.Context, user string, h *Holding) error
	DeleteHolding(ctx context.Context, user string, id int64) error
}

// AlertRepository manages price alerts
type AlertRepository interface {
	List(ctx context.Context, user string) ([]*PriceAlert, error)
	ListActive(ctx context.Context) ([]*PriceAlert, error)
	Create(ctx context.Context, alert *PriceAlert) error
	Delete(ctx context.Context, user string, id int64) error
	MarkTriggered(ctx context.Context, alert *PriceAlert) error
}
