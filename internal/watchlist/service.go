package watchlist

import (
	"context"
	"fmt"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// Service applies watchlist rules on top of the repository
type Service struct {
	repo   contracts.WatchlistRepository
	quotes contracts.QuoteProvider
	logger *logger.Logger
}

// NewService creates a new watchlist service. quotes may be nil, in
// which case items are returned without prices.
func NewService(repo contracts.WatchlistRepository, quotes contracts.QuoteProvider, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		logger: log.WithComponent("watchlist"),
	}
}

// Groups lists the user's groups
func (s *Service) Groups(ctx context.Context, user string) ([]*contracts.WatchlistGroup, error) {
	return s.repo.ListGroups(ctx, user)
}

// CreateGroup validates and stores a group for user
func (s *Service) CreateGroup(ctx context.Context, user string, group *contracts.WatchlistGroup) error {
	group.User = user
	if err := group.Validate(); err != nil {
		return err
	}
	return s.repo.CreateGroup(ctx, group)
}

// Items lists the user's items with live quotes attached
func (s *Service) Items(ctx context.Context, user string, groupID *int64) ([]*contracts.WatchlistItem, error) {
	items, err := s.repo.ListItems(ctx, user, groupID)
	if err != nil {
		return nil, err
	}
	s.attachQuotes(ctx, items)
	return items, nil
}

// Item returns one item with its quote
func (s *Service) Item(ctx context.Context, user string, id int64) (*contracts.WatchlistItem, error) {
	item, err := s.repo.GetItem(ctx, user, id)
	if err != nil {
		return nil, err
	}
	s.attachQuotes(ctx, []*contracts.WatchlistItem{item})
	return item, nil
}

// AddItem validates and stores an item for user. The group, when set,
// must belong to the same user.
func (s *Service) AddItem(ctx context.Context, user string, item *contracts.WatchlistItem) error {
	item.User = user
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.checkGroup(ctx, user, item.GroupID); err != nil {
		return err
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user":   user,
		"symbol": item.Symbol,
	}).Info("Added watchlist item")
	return nil
}

// UpdateItem rewrites an item's editable fields
func (s *Service) UpdateItem(ctx context.Context, user string, item *contracts.WatchlistItem) error {
	current, err := s.repo.GetItem(ctx, user, item.ID)
	if err != nil {
		return err
	}
	item.User = user
	item.Symbol = current.Symbol
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.checkGroup(ctx, user, item.GroupID); err != nil {
		return err
	}
	return s.repo.UpdateItem(ctx, item)
}

// DeleteItem removes one of the user's items
func (s *Service) DeleteItem(ctx context.Context, user string, id int64) error {
	return s.repo.DeleteItem(ctx, user, id)
}

// Summary groups the user's watchlist by group
func (s *Service) Summary(ctx context.Context, user string) (*contracts.WatchlistSummary, error) {
	groups, err := s.repo.ListGroups(ctx, user)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, user, nil)
	if err != nil {
		return nil, err
	}
	s.attachQuotes(ctx, items)
	return Summarize(user, groups, items), nil
}

func (s *Service) checkGroup(ctx context.Context, user string, groupID *int64) error {
	if groupID == nil {
		return nil
	}
	groups, err := s.repo.ListGroups(ctx, user)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.ID == *groupID {
			return nil
		}
	}
	return fmt.Errorf("%w: group %d does not belong to %s", contracts.ErrInvalidInput, *groupID, user)
}

func (s *Service) attachQuotes(ctx context.Context, items []*contracts.WatchlistItem) {
	if s.quotes == nil {
		return
	}
	for _, item := range items {
		quote, err := s.quotes.Quote(ctx, item.Symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", item.Symbol).Debug("No quote for watchlist item")
			continue
		}
		item.Quote = quote
	}
}

// Summarize buckets items into their groups. Items without a group land
// in a trailing default group, listed only when non-empty. Every named
// group is listed, even when empty.
func Summarize(user string, groups []*contracts.WatchlistGroup, items []*contracts.WatchlistItem) *contracts.WatchlistSummary {
	byGroup := make(map[int64][]contracts.WatchlistItem, len(groups))
	var ungrouped []contracts.WatchlistItem
	for _, item := range items {
		if item.GroupID == nil {
			ungrouped = append(ungrouped, *item)
			continue
		}
		byGroup[*item.GroupID] = append(byGroup[*item.GroupID], *item)
	}

	summary := &contracts.WatchlistSummary{
		User:        user,
		TotalStocks: len(items),
		Groups:      make([]contracts.WatchlistGroupSummary, 0, len(groups)+1),
	}
	for _, g := range groups {
		id := g.ID
		stocks := byGroup[id]
		if stocks == nil {
			stocks = []contracts.WatchlistItem{}
		}
		summary.Groups = append(summary.Groups, contracts.WatchlistGroupSummary{
			GroupID: &id,
			Name:    g.Name,
			Color:   g.Color,
			Count:   len(stocks),
			Stocks:  stocks,
		})
	}
	if len(ungrouped) > 0 {
		summary.Groups = append(summary.Groups, contracts.WatchlistGroupSummary{
			Name:   contracts.UngroupedName,
			Color:  contracts.UngroupedColor,
			Count:  len(ungrouped),
			Stocks: ungrouped,
		})
	}
	summary.TotalGroups = len(summary.Groups)
	return summary
}
