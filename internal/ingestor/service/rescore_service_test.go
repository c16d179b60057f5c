package service

import (
	"context"
	"testing"

	"finnews-notifier/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescoreUpdatesChangedScores(t *testing.T) {
	repo := newFakeNewsRepo()
	repo.news = []entity.News{
		{
			ID:              "n1",
			Language:        "fr",
			ImportanceScore: 0,
			Article: &entity.NewsArticle{
				NewsID:           "n1",
				ShortDescription: "annonce de résultats",
			},
		},
		{
			ID:              "n2",
			Language:        "fr",
			ImportanceScore: 0,
			Article:         &entity.NewsArticle{NewsID: "n2", ShortDescription: "rien"},
		},
	}

	svc := NewRescoreService(repo, testLogger(t))
	updated, err := svc.Run(context.Background())
	require.NoError(t, err)

	// n1 gains the announcement bonus, n2 already scores 0.
	assert.Equal(t, 1, updated)
	assert.Equal(t, 10, repo.news[0].ImportanceScore)
	assert.Equal(t, 0, repo.news[1].ImportanceScore)
}
