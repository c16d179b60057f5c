package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"finnews-notifier/internal/entity"
	"finnews-notifier/internal/ingestor/config"
	"finnews-notifier/internal/ingestor/dto"
	"finnews-notifier/internal/ingestor/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu          sync.Mutex
	listings    map[string][]source.ListingItem
	articles    map[string]*source.Article
	failPaths   map[string]bool
	articleHits int
}

func (f *fakeSource) FetchListing(_ context.Context, language string) ([]source.ListingItem, error) {
	items, ok := f.listings[language]
	if !ok {
		return nil, source.ErrUnsupportedLanguage
	}
	return items, nil
}

func (f *fakeSource) FetchArticle(_ context.Context, _, storyPath string) (*source.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articleHits++
	if f.failPaths[storyPath] {
		return nil, source.ErrSourceUnavailable
	}
	return f.articles[storyPath], nil
}

func (f *fakeSource) FetchSymbolMetadata(_ context.Context, symbol string) (*source.SymbolMetadata, error) {
	return &source.SymbolMetadata{Symbol: symbol}, nil
}

type fakeNewsRepo struct {
	mu       sync.Mutex
	existing map[string]bool
	news     []entity.News
	articles []entity.NewsArticle
	symbols  []entity.NewsRelatedSymbol
	failNews bool
}

func newFakeNewsRepo() *fakeNewsRepo {
	return &fakeNewsRepo{existing: make(map[string]bool)}
}

func (f *fakeNewsRepo) FilterNewIDs(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var fresh []string
	for _, id := range ids {
		if !f.existing[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

func (f *fakeNewsRepo) BulkCreate(_ context.Context, news []entity.News) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNews {
		return 0, fmt.Errorf("insert failed")
	}
	var inserted int64
	for _, n := range news {
		if f.existing[n.ID] {
			continue
		}
		f.existing[n.ID] = true
		f.news = append(f.news, n)
		inserted++
	}
	return inserted, nil
}

func (f *fakeNewsRepo) BulkCreateArticles(_ context.Context, articles []entity.NewsArticle) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = append(f.articles, articles...)
	return int64(len(articles)), nil
}

func (f *fakeNewsRepo) BulkCreateRelatedSymbols(_ context.Context, symbols []entity.NewsRelatedSymbol) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append(f.symbols, symbols...)
	return int64(len(symbols)), nil
}

func (f *fakeNewsRepo) FindPageWithArticles(_ context.Context, offset, limit int) ([]entity.News, error) {
	if offset >= len(f.news) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.news) {
		end = len(f.news)
	}
	return f.news[offset:end], nil
}

func (f *fakeNewsRepo) UpdateImportanceScore(_ context.Context, id string, score int) error {
	for i := range f.news {
		if f.news[i].ID == id {
			f.news[i].ImportanceScore = score
		}
	}
	return nil
}

type fakeMatcher struct {
	matched []string
	result  map[string][]dto.NotificationMatch
}

func (f *fakeMatcher) Match(_ context.Context, item *dto.IngestedNews) ([]dto.NotificationMatch, error) {
	f.matched = append(f.matched, item.News.ID)
	return f.result[item.News.ID], nil
}

type fakeNotifier struct {
	calls   int
	matches []dto.NotificationMatch
}

func (f *fakeNotifier) Notify(_ context.Context, matches []dto.NotificationMatch, _ map[string]string) error {
	f.calls++
	f.matches = append(f.matches, matches...)
	return nil
}

type fakeSymbolRefresh struct {
	refreshed []string
}

func (f *fakeSymbolRefresh) Refresh(_ context.Context, symbol string) error {
	f.refreshed = append(f.refreshed, symbol)
	return nil
}

func listingItem(id, path string, symbols ...string) source.ListingItem {
	item := source.ListingItem{
		ID:        id,
		Title:     "Titre " + id,
		StoryPath: path,
		Published: 1756400000,
	}
	for _, s := range symbols {
		item.RelatedSymbols = append(item.RelatedSymbols, source.RelatedSymbol{Symbol: s})
	}
	return item
}

func testIngestionConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Source.Origins = map[string]string{"fr": "https://fr.example.com"}
	cfg.Ingestion.MaxConcurrentFetch = 2
	return cfg
}

func TestRunCycleIngestsAndIsIdempotent(t *testing.T) {
	src := &fakeSource{
		listings: map[string][]source.ListingItem{
			"fr": {
				listingItem("n1", "/news/n1/", "DAX"),
				listingItem("n2", "/news/n2/"),
			},
		},
		articles: map[string]*source.Article{
			"/news/n1/": {ShortDescription: "annonce de la BCE", RawASTJSON: `"corps"`},
			"/news/n2/": {ShortDescription: "rien"},
		},
	}
	newsRepo := newFakeNewsRepo()
	matcher := &fakeMatcher{}
	notifier := &fakeNotifier{}
	refresh := &fakeSymbolRefresh{}

	svc := NewIngestionService(testIngestionConfig(), testLogger(t), src, newsRepo, matcher, notifier, refresh)

	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 2, stats.ArticlesInserted)
	assert.Equal(t, 1, stats.RelatedSymbolsInserted)
	assert.ElementsMatch(t, []string{"n1", "n2"}, matcher.matched)
	assert.Equal(t, []string{"DAX"}, refresh.refreshed)

	// Second cycle against an unchanged source inserts nothing and matches
	// nothing.
	stats, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dto.CycleStats{}, stats)
	assert.Len(t, matcher.matched, 2)
}

func TestRunCycleScoresItems(t *testing.T) {
	src := &fakeSource{
		listings: map[string][]source.ListingItem{
			"fr": {listingItem("n1", "/news/n1/", "DAX", "CAC40", "EURUSD")},
		},
		articles: map[string]*source.Article{
			"/news/n1/": {ShortDescription: "une annonce officielle"},
		},
	}
	newsRepo := newFakeNewsRepo()
	svc := NewIngestionService(testIngestionConfig(), testLogger(t), src, newsRepo, &fakeMatcher{}, &fakeNotifier{}, &fakeSymbolRefresh{})

	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, newsRepo.news, 1)
	// "annonce" in the description (+10) and three related symbols (+15).
	assert.Equal(t, 25, newsRepo.news[0].ImportanceScore)
}

func TestRunCyclePartialArticleFailure(t *testing.T) {
	listings := make([]source.ListingItem, 0, 5)
	articles := make(map[string]*source.Article)
	for i := 1; i <= 5; i++ {
		path := fmt.Sprintf("/news/n%d/", i)
		listings = append(listings, listingItem(fmt.Sprintf("n%d", i), path))
		articles[path] = &source.Article{ShortDescription: "texte"}
	}
	src := &fakeSource{
		listings:  map[string][]source.ListingItem{"fr": listings},
		articles:  articles,
		failPaths: map[string]bool{"/news/n3/": true},
	}
	newsRepo := newFakeNewsRepo()
	svc := NewIngestionService(testIngestionConfig(), testLogger(t), src, newsRepo, &fakeMatcher{}, &fakeNotifier{}, &fakeSymbolRefresh{})

	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	// The failed article does not block its news row or the other items.
	assert.Equal(t, 5, stats.Inserted)
	assert.Equal(t, 4, stats.ArticlesInserted)
}

func TestRunCycleNewsInsertFailureSkipsMatching(t *testing.T) {
	src := &fakeSource{
		listings: map[string][]source.ListingItem{
			"fr": {listingItem("n1", "/news/n1/")},
		},
		articles: map[string]*source.Article{"/news/n1/": {}},
	}
	newsRepo := newFakeNewsRepo()
	newsRepo.failNews = true
	matcher := &fakeMatcher{}
	svc := NewIngestionService(testIngestionConfig(), testLogger(t), src, newsRepo, matcher, &fakeNotifier{}, &fakeSymbolRefresh{})

	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dto.CycleStats{}, stats)
	assert.Empty(t, matcher.matched)

	// The item stayed absent, so it is a candidate again once inserts work.
	newsRepo.failNews = false
	stats, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, []string{"n1"}, matcher.matched)
}

func TestRunCycleForwardsMatchesOnce(t *testing.T) {
	src := &fakeSource{
		listings: map[string][]source.ListingItem{
			"fr": {listingItem("n1", "/news/n1/"), listingItem("n2", "/news/n2/")},
		},
		articles: map[string]*source.Article{"/news/n1/": {}, "/news/n2/": {}},
	}
	matcher := &fakeMatcher{result: map[string][]dto.NotificationMatch{
		"n1": {{UserID: 1, SubscribedNewsID: 7, Keyword: "bce", NewsID: "n1"}},
		"n2": {{UserID: 1, SubscribedNewsID: 7, Keyword: "bce", NewsID: "n2"}},
	}}
	notifier := &fakeNotifier{}
	svc := NewIngestionService(testIngestionConfig(), testLogger(t), src, newFakeNewsRepo(), matcher, notifier, &fakeSymbolRefresh{})

	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	// All matches of the cycle go to the aggregator in a single call, so
	// cross-article batching can happen.
	assert.Equal(t, 1, notifier.calls)
	assert.Len(t, notifier.matches, 2)
}

func TestRunCycleDedupsAcrossLanguages(t *testing.T) {
	item := listingItem("n1", "/news/n1/")
	src := &fakeSource{
		listings: map[string][]source.ListingItem{
			"fr": {item},
			"en": {item},
		},
		articles: map[string]*source.Article{"/news/n1/": {}},
	}
	cfg := testIngestionConfig()
	cfg.Source.Origins["en"] = "https://www.example.com"

	newsRepo := newFakeNewsRepo()
	svc := NewIngestionService(cfg, testLogger(t), src, newsRepo, &fakeMatcher{}, &fakeNotifier{}, &fakeSymbolRefresh{})

	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
}
