package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"finnews-notifier/internal/entity"
	"finnews-notifier/internal/ingestor/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSymbolsRepo struct {
	mu         sync.Mutex
	lastUpdate map[string]time.Time
	upserted   []entity.Symbol
}

func newFakeSymbolsRepo() *fakeSymbolsRepo {
	return &fakeSymbolsRepo{lastUpdate: make(map[string]time.Time)}
}

func (f *fakeSymbolsRepo) GetLastUpdate(_ context.Context, symbol string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpdate[symbol], nil
}

func (f *fakeSymbolsRepo) Upsert(_ context.Context, symbol *entity.Symbol) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpdate[symbol.Symbol] = symbol.LastUpdate
	f.upserted = append(f.upserted, *symbol)
	return nil
}

type countingSource struct {
	fakeSource
	metadataHits int
}

func (c *countingSource) FetchSymbolMetadata(ctx context.Context, symbol string) (*source.SymbolMetadata, error) {
	c.metadataHits++
	return c.fakeSource.FetchSymbolMetadata(ctx, symbol)
}

func TestRefreshFetchesUnknownSymbol(t *testing.T) {
	repo := newFakeSymbolsRepo()
	src := &countingSource{}
	svc := NewSymbolRefreshService(repo, src, testLogger(t))

	require.NoError(t, svc.Refresh(context.Background(), "DAX"))

	assert.Equal(t, 1, src.metadataHits)
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "DAX", repo.upserted[0].Symbol)
	assert.False(t, repo.upserted[0].LastUpdate.IsZero())
}

func TestRefreshCooldownSkipsSecondFetch(t *testing.T) {
	repo := newFakeSymbolsRepo()
	src := &countingSource{}
	svc := NewSymbolRefreshService(repo, src, testLogger(t))

	require.NoError(t, svc.Refresh(context.Background(), "DAX"))
	require.NoError(t, svc.Refresh(context.Background(), "DAX"))

	assert.Equal(t, 1, src.metadataHits)
	assert.Len(t, repo.upserted, 1)
}

func TestRefreshCooldownSurvivesRestart(t *testing.T) {
	// The persisted last_update alone must gate the refresh: a fresh
	// service instance (empty in-memory cache) still skips the fetch.
	repo := newFakeSymbolsRepo()
	repo.lastUpdate["DAX"] = time.Now().Add(-2 * time.Minute)
	src := &countingSource{}
	svc := NewSymbolRefreshService(repo, src, testLogger(t))

	require.NoError(t, svc.Refresh(context.Background(), "DAX"))
	assert.Equal(t, 0, src.metadataHits)
}

func TestRefreshAfterCooldownExpiry(t *testing.T) {
	repo := newFakeSymbolsRepo()
	repo.lastUpdate["DAX"] = time.Now().Add(-time.Hour)
	src := &countingSource{}
	svc := NewSymbolRefreshService(repo, src, testLogger(t))

	require.NoError(t, svc.Refresh(context.Background(), "DAX"))
	assert.Equal(t, 1, src.metadataHits)
}
