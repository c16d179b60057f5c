package service

import (
	"context"
	"sync"
	"time"

	"finnews-notifier/internal/entity"
	"finnews-notifier/internal/ingestor/config"
	"finnews-notifier/internal/ingestor/dto"
	"finnews-notifier/internal/ingestor/repository"
	"finnews-notifier/internal/ingestor/scoring"
	"finnews-notifier/internal/ingestor/source"
	"finnews-notifier/pkg/logger"
	"finnews-notifier/pkg/utils"
)

// IngestionService runs one full ingestion cycle: fetch listings, drop known
// items, fetch and score article bodies, persist, match subscriptions and
// trigger notifications and symbol refreshes.
type IngestionService interface {
	RunCycle(ctx context.Context) (dto.CycleStats, error)
}

// NewIngestionService creates a new IngestionService.
func NewIngestionService(
	cfg *config.Config,
	log *logger.Logger,
	sourceClient source.Client,
	newsRepo repository.NewsRepository,
	matcher MatcherService,
	notifier NotifierService,
	symbolRefresh SymbolRefreshService,
) IngestionService {
	return &ingestionService{
		cfg:           cfg,
		logger:        log,
		source:        sourceClient,
		newsRepo:      newsRepo,
		matcher:       matcher,
		notifier:      notifier,
		symbolRefresh: symbolRefresh,
	}
}

type ingestionService struct {
	cfg           *config.Config
	logger        *logger.Logger
	source        source.Client
	newsRepo      repository.NewsRepository
	matcher       MatcherService
	notifier      NotifierService
	symbolRefresh SymbolRefreshService
}

// candidate pairs a listing item with the language it was fetched under.
type candidate struct {
	item     source.ListingItem
	language string
	article  *source.Article
}

// RunCycle executes one ingestion pass. Failures on individual fetches or
// batches are logged and tolerated; the cycle always runs to completion.
// Items whose insert fails stay absent from the store and are picked up
// again on the next cycle.
func (s *ingestionService) RunCycle(ctx context.Context) (dto.CycleStats, error) {
	start := time.Now()
	var stats dto.CycleStats

	candidates := s.fetchListings(ctx)
	if len(candidates) == 0 {
		s.logger.Info("Ingestion cycle finished, no listing items",
			logger.DurationField("elapsed", time.Since(start)))
		return stats, nil
	}

	fresh, err := s.filterExisting(ctx, candidates)
	if err != nil {
		// Without the existence check every item would be re-processed, so
		// this is the one error that aborts a cycle.
		return stats, err
	}
	s.logger.Info("Filtered listing items",
		logger.IntField("candidates", len(candidates)),
		logger.IntField("fresh", len(fresh)))
	if len(fresh) == 0 {
		return stats, nil
	}

	s.fetchArticles(ctx, fresh)

	newsRows, articleRows, symbolRows, items := s.buildRows(fresh)

	inserted, err := s.newsRepo.BulkCreate(ctx, newsRows)
	if err != nil {
		s.logger.Error("Failed to insert news batch", logger.ErrorField(err))
		// No news rows means nothing to match against; articles and symbols
		// for them would be orphans.
		return stats, nil
	}
	stats.Inserted = int(inserted)

	if n, err := s.newsRepo.BulkCreateArticles(ctx, articleRows); err != nil {
		s.logger.Error("Failed to insert article batch", logger.ErrorField(err))
	} else {
		stats.ArticlesInserted = int(n)
	}

	if n, err := s.newsRepo.BulkCreateRelatedSymbols(ctx, symbolRows); err != nil {
		s.logger.Error("Failed to insert related symbol batch", logger.ErrorField(err))
	} else {
		stats.RelatedSymbolsInserted = int(n)
	}

	s.notifyMatches(ctx, items)
	s.refreshSymbols(ctx, symbolRows)

	s.logger.Info("Ingestion cycle finished",
		logger.IntField("inserted", stats.Inserted),
		logger.IntField("articles_inserted", stats.ArticlesInserted),
		logger.IntField("related_symbols_inserted", stats.RelatedSymbolsInserted),
		logger.DurationField("elapsed", time.Since(start)))

	return stats, nil
}

// fetchListings pulls every configured locale concurrently. A story that
// appears under several locales is kept once, first locale wins.
func (s *ingestionService) fetchListings(ctx context.Context) []*candidate {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	perLanguage := make(map[string][]source.ListingItem)

	for language := range s.cfg.Source.Origins {
		language := language
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			items, err := s.source.FetchListing(ctx, language)
			if err != nil {
				s.logger.Error("Failed to fetch listing",
					logger.ErrorField(err), logger.StringField("language", language))
				return
			}
			mu.Lock()
			perLanguage[language] = items
			mu.Unlock()
		})
	}
	wg.Wait()

	seen := make(map[string]bool)
	var candidates []*candidate
	for language, items := range perLanguage {
		for _, item := range items {
			if item.ID == "" || seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			candidates = append(candidates, &candidate{item: item, language: language})
		}
	}
	return candidates
}

func (s *ingestionService) filterExisting(ctx context.Context, candidates []*candidate) ([]*candidate, error) {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.item.ID)
	}

	freshIDs, err := s.newsRepo.FilterNewIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to check existing news", logger.ErrorField(err))
		return nil, err
	}

	freshSet := make(map[string]bool, len(freshIDs))
	for _, id := range freshIDs {
		freshSet[id] = true
	}

	var fresh []*candidate
	for _, c := range candidates {
		if freshSet[c.item.ID] {
			fresh = append(fresh, c)
		}
	}
	return fresh, nil
}

// fetchArticles loads story bodies with a bounded worker pool. A failed fetch
// leaves the candidate without an article; the item is still ingested.
func (s *ingestionService) fetchArticles(ctx context.Context, candidates []*candidate) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.cfg.Ingestion.MaxConcurrentFetch)

	for _, c := range candidates {
		if !utils.ShouldContinue(ctx, s.logger) {
			break
		}
		c := c
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			article, err := s.source.FetchArticle(ctx, c.language, c.item.StoryPath)
			if err != nil {
				s.logger.Warn("Failed to fetch article body",
					logger.ErrorField(err),
					logger.StringField("news_id", c.item.ID),
					logger.StringField("story_path", c.item.StoryPath))
				return
			}
			c.article = article
		})
	}
	wg.Wait()
}

// buildRows turns candidates into insert batches and the in-memory view
// handed to the matcher.
func (s *ingestionService) buildRows(candidates []*candidate) ([]entity.News, []entity.NewsArticle, []entity.NewsRelatedSymbol, []*dto.IngestedNews) {
	newsRows := make([]entity.News, 0, len(candidates))
	var articleRows []entity.NewsArticle
	var symbolRows []entity.NewsRelatedSymbol
	items := make([]*dto.IngestedNews, 0, len(candidates))

	for _, c := range candidates {
		symbols := make([]string, 0, len(c.item.RelatedSymbols))
		for _, rs := range c.item.RelatedSymbols {
			if rs.Symbol == "" || utils.ContainsString(symbols, rs.Symbol) {
				continue
			}
			symbols = append(symbols, rs.Symbol)
		}

		var (
			shortDescription string
			ast              *source.ASTNode
		)
		if c.article != nil {
			shortDescription = c.article.ShortDescription
			ast = c.article.ASTDescription
		}
		score := scoring.Score(c.language, shortDescription, ast, len(symbols))

		news := entity.News{
			ID:              c.item.ID,
			Title:           utils.CleanToValidUTF8(c.item.Title),
			StoryPath:       c.item.StoryPath,
			Source:          c.item.Source,
			Provider:        c.item.Provider,
			Urgency:         c.item.Urgency,
			Published:       c.item.Published,
			Language:        c.language,
			ImportanceScore: score,
		}
		newsRows = append(newsRows, news)

		var article *entity.NewsArticle
		if c.article != nil {
			article = &entity.NewsArticle{
				NewsID:           c.item.ID,
				JSONDescription:  c.article.RawASTJSON,
				ShortDescription: utils.CleanToValidUTF8(c.article.ShortDescription),
				Copyright:        c.article.Copyright,
				Date:             time.Unix(c.item.Published, 0).UTC(),
			}
			articleRows = append(articleRows, *article)
		}

		for _, symbol := range symbols {
			symbolRows = append(symbolRows, entity.NewsRelatedSymbol{
				NewsID: c.item.ID,
				Symbol: symbol,
			})
		}

		items = append(items, &dto.IngestedNews{
			News:    news,
			Article: article,
			Symbols: symbols,
		})
	}

	return newsRows, articleRows, symbolRows, items
}

// notifyMatches runs subscription matching for every newly inserted item,
// then hands the collected matches to the aggregator in one go. Matching for
// the whole batch completes before any dispatch starts.
func (s *ingestionService) notifyMatches(ctx context.Context, items []*dto.IngestedNews) {
	var matches []dto.NotificationMatch
	newsTitles := make(map[string]string, len(items))

	for _, item := range items {
		newsTitles[item.News.ID] = item.News.Title
		itemMatches, err := s.matcher.Match(ctx, item)
		if err != nil {
			s.logger.Error("Failed to match subscriptions",
				logger.ErrorField(err), logger.StringField("news_id", item.News.ID))
			continue
		}
		matches = append(matches, itemMatches...)
	}

	if len(matches) == 0 {
		return
	}
	if err := s.notifier.Notify(ctx, matches, newsTitles); err != nil {
		s.logger.Error("Failed to send notifications", logger.ErrorField(err))
	}
}

func (s *ingestionService) refreshSymbols(ctx context.Context, symbolRows []entity.NewsRelatedSymbol) {
	seen := make(map[string]bool)
	for _, row := range symbolRows {
		if seen[row.Symbol] {
			continue
		}
		seen[row.Symbol] = true

		if !utils.ShouldContinue(ctx, s.logger) {
			return
		}
		if err := s.symbolRefresh.Refresh(ctx, row.Symbol); err != nil {
			s.logger.Warn("Failed to refresh symbol metadata",
				logger.ErrorField(err), logger.StringField("symbol", row.Symbol))
		}
	}
}
