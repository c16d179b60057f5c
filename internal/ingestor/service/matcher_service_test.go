package service

import (
	"context"
	"testing"

	"finnews-notifier/internal/entity"
	"finnews-notifier/internal/ingestor/dto"
	"finnews-notifier/internal/ingestor/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscription(keyword string) []repository.KeywordMatch {
	return []repository.KeywordMatch{{SubscribedNewsID: 7, UserID: 1, Keyword: keyword}}
}

func TestMatchKeywordIsExactToken(t *testing.T) {
	// A subscription on "or" must not fire on "orange": lookups run over
	// whitespace tokens, not substrings.
	repo := &fakeNotificationRepo{keywords: map[string][]repository.KeywordMatch{
		"or": subscription("or"),
	}}
	svc := NewMatcherService(repo, testLogger(t))

	item := &dto.IngestedNews{
		News: entity.News{ID: "n1", Title: "Le jus orange en forte demande"},
	}
	matches, err := svc.Match(context.Background(), item)
	require.NoError(t, err)
	assert.Empty(t, matches)

	item = &dto.IngestedNews{
		News: entity.News{ID: "n2", Title: "Faut-il acheter or ou argent"},
	}
	matches, err = svc.Match(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "or", matches[0].Keyword)
	assert.Equal(t, "n2", matches[0].NewsID)
	assert.Equal(t, uint(1), matches[0].UserID)
	assert.Equal(t, uint(7), matches[0].SubscribedNewsID)
}

func TestMatchSearchesArticleBody(t *testing.T) {
	repo := &fakeNotificationRepo{keywords: map[string][]repository.KeywordMatch{
		"inflation": subscription("inflation"),
	}}
	svc := NewMatcherService(repo, testLogger(t))

	item := &dto.IngestedNews{
		News: entity.News{ID: "n1", Title: "Chiffres du mois"},
		Article: &entity.NewsArticle{
			NewsID:          "n1",
			JSONDescription: `{"type":"root","children":["L'inflation repart à la hausse"]}`,
		},
	}
	matches, err := svc.Match(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "inflation", matches[0].Keyword)
}

func TestMatchSearchesShortDescription(t *testing.T) {
	repo := &fakeNotificationRepo{keywords: map[string][]repository.KeywordMatch{
		"récession": subscription("récession"),
	}}
	svc := NewMatcherService(repo, testLogger(t))

	item := &dto.IngestedNews{
		News: entity.News{ID: "n1", Title: "Prévisions"},
		Article: &entity.NewsArticle{
			NewsID:           "n1",
			ShortDescription: "Le risque de récession augmente",
		},
	}
	matches, err := svc.Match(context.Background(), item)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMatchSymbolSubscriptionsDoNotEmit(t *testing.T) {
	// Symbol subscriptions are queried but do not produce matches on their
	// own; only keyword hits drive notifications.
	repo := &fakeNotificationRepo{symbols: map[string][]repository.SymbolMatch{
		"DAX": {{SubscribedNewsID: 7, UserID: 1, Symbol: "DAX"}},
	}}
	svc := NewMatcherService(repo, testLogger(t))

	item := &dto.IngestedNews{
		News:    entity.News{ID: "n1", Title: "Séance en hausse"},
		Symbols: []string{"DAX"},
	}
	matches, err := svc.Match(context.Background(), item)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.Len(t, repo.symbolsAsked, 1)
	assert.Equal(t, []string{"DAX"}, repo.symbolsAsked[0])
}

func TestMatchToleratesBadArticleJSON(t *testing.T) {
	repo := &fakeNotificationRepo{keywords: map[string][]repository.KeywordMatch{
		"taux": subscription("taux"),
	}}
	svc := NewMatcherService(repo, testLogger(t))

	item := &dto.IngestedNews{
		News: entity.News{ID: "n1", Title: "Les taux montent"},
		Article: &entity.NewsArticle{
			NewsID:          "n1",
			JSONDescription: "{broken",
		},
	}
	matches, err := svc.Match(context.Background(), item)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
