package service

import (
	"context"
	"fmt"
	"strings"

	"finnews-notifier/internal/ingestor/dto"
	"finnews-notifier/internal/ingestor/repository"
	"finnews-notifier/internal/ingestor/source"
	"finnews-notifier/pkg/logger"
)

// MatcherService finds subscriptions matching a freshly ingested news item.
type MatcherService interface {
	Match(ctx context.Context, item *dto.IngestedNews) ([]dto.NotificationMatch, error)
}

// NewMatcherService creates a new MatcherService.
func NewMatcherService(notificationRepo repository.NotificationRepository, log *logger.Logger) MatcherService {
	return &matcherService{
		notificationRepo: notificationRepo,
		logger:           log,
	}
}

type matcherService struct {
	notificationRepo repository.NotificationRepository
	logger           *logger.Logger
}

// Match tokenizes the item's title, short description and article body into
// exact lowercase words and looks up keyword subscriptions over that word
// set. Symbol subscriptions are looked up too but do not emit matches on
// their own; only keyword hits drive notifications.
func (s *matcherService) Match(ctx context.Context, item *dto.IngestedNews) ([]dto.NotificationMatch, error) {
	words := tokenSet(item.News.Title)
	if item.Article != nil {
		for w := range tokenSet(item.Article.ShortDescription) {
			words[w] = struct{}{}
		}
		ast, err := source.ParseAST(item.Article.JSONDescription)
		if err != nil {
			s.logger.Warn("Failed to re-parse article body for matching",
				logger.ErrorField(err), logger.StringField("news_id", item.News.ID))
		} else {
			for w := range tokenSet(ast.Flatten()) {
				words[w] = struct{}{}
			}
		}
	}

	keywordMatches, err := s.notificationRepo.FindKeywordMatches(ctx, wordList(words))
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword subscriptions: %w", err)
	}

	symbolMatches, err := s.notificationRepo.FindSymbolMatches(ctx, item.Symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol subscriptions: %w", err)
	}
	if len(symbolMatches) > 0 {
		s.logger.DebugContext(ctx, "Symbol subscriptions matched",
			logger.IntField("count", len(symbolMatches)),
			logger.StringField("news_id", item.News.ID))
	}

	matches := make([]dto.NotificationMatch, 0, len(keywordMatches))
	for _, m := range keywordMatches {
		matches = append(matches, dto.NotificationMatch{
			UserID:           m.UserID,
			SubscribedNewsID: m.SubscribedNewsID,
			Keyword:          m.Keyword,
			NewsID:           item.News.ID,
		})
	}
	return matches, nil
}

// tokenSet splits text on whitespace into a lowercase word set. Splitting is
// whitespace-only so a subscription keyword matches whole tokens, never
// substrings.
func tokenSet(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[w] = struct{}{}
	}
	return words
}

func wordList(set map[string]struct{}) []string {
	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	return words
}
