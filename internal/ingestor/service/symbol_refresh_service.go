package service

import (
	"context"
	"fmt"
	"time"

	"finnews-notifier/internal/entity"
	"finnews-notifier/internal/ingestor/repository"
	"finnews-notifier/internal/ingestor/source"
	"finnews-notifier/pkg/common"
	"finnews-notifier/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// SymbolRefreshService refreshes descriptive metadata of a ticker, with a
// cooldown so a busy symbol is not re-fetched on every cycle.
type SymbolRefreshService interface {
	Refresh(ctx context.Context, symbol string) error
}

// NewSymbolRefreshService creates a new SymbolRefreshService.
func NewSymbolRefreshService(symbolsRepo repository.SymbolsRepository, sourceClient source.Client, log *logger.Logger) SymbolRefreshService {
	return &symbolRefreshService{
		symbolsRepo:   symbolsRepo,
		source:        sourceClient,
		logger:        log,
		inmemoryCache: cache.New(common.SymbolRefreshCooldown, 2*common.SymbolRefreshCooldown),
	}
}

type symbolRefreshService struct {
	symbolsRepo   repository.SymbolsRepository
	source        source.Client
	logger        *logger.Logger
	inmemoryCache *cache.Cache
}

// Refresh fetches and upserts metadata for one symbol unless it was already
// refreshed within the cooldown. The authoritative cooldown is the persisted
// last_update column, so it holds across restarts; the in-memory cache only
// short-circuits the database lookup.
func (s *symbolRefreshService) Refresh(ctx context.Context, symbol string) error {
	if _, found := s.inmemoryCache.Get(symbol); found {
		return nil
	}

	lastUpdate, err := s.symbolsRepo.GetLastUpdate(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to read last update for %s: %w", symbol, err)
	}

	now := time.Now()
	if !lastUpdate.IsZero() {
		if remaining := common.SymbolRefreshCooldown - now.Sub(lastUpdate); remaining > 0 {
			s.inmemoryCache.Set(symbol, struct{}{}, remaining)
			return nil
		}
	}

	metadata, err := s.source.FetchSymbolMetadata(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch metadata for %s: %w", symbol, err)
	}

	row := &entity.Symbol{
		Symbol:      metadata.Symbol,
		Description: metadata.Description,
		Sector:      metadata.Sector,
		LogoID:      metadata.LogoID,
		Currency:    metadata.Currency,
		Close:       metadata.Close,
		PerfWeek:    metadata.PerfWeek,
		PerfMonth:   metadata.PerfMonth,
		PerfYear:    metadata.PerfYear,
		LastUpdate:  now,
	}
	if err := s.symbolsRepo.Upsert(ctx, row); err != nil {
		return fmt.Errorf("failed to upsert symbol %s: %w", symbol, err)
	}

	s.inmemoryCache.Set(symbol, struct{}{}, common.SymbolRefreshCooldown)
	s.logger.DebugContext(ctx, "Refreshed symbol metadata", logger.StringField("symbol", symbol))
	return nil
}
