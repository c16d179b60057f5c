package service

import (
	"context"

	"finnews-notifier/internal/ingestor/repository"
	"finnews-notifier/internal/ingestor/scoring"
	"finnews-notifier/internal/ingestor/source"
	"finnews-notifier/pkg/logger"
	"finnews-notifier/pkg/utils"
)

const rescorePageSize = 200

// RescoreService recomputes importance scores of stored news, used as an
// offline maintenance pass after keyword-set changes.
type RescoreService interface {
	Run(ctx context.Context) (int, error)
}

// NewRescoreService creates a new RescoreService.
func NewRescoreService(newsRepo repository.NewsRepository, log *logger.Logger) RescoreService {
	return &rescoreService{newsRepo: newsRepo, logger: log}
}

type rescoreService struct {
	newsRepo repository.NewsRepository
	logger   *logger.Logger
}

// Run walks all stored news in pages and updates rows whose recomputed score
// differs. It returns the number of updated rows.
func (s *rescoreService) Run(ctx context.Context) (int, error) {
	updated := 0

	for offset := 0; ; offset += rescorePageSize {
		if !utils.ShouldContinue(ctx, s.logger) {
			return updated, ctx.Err()
		}

		page, err := s.newsRepo.FindPageWithArticles(ctx, offset, rescorePageSize)
		if err != nil {
			return updated, err
		}
		if len(page) == 0 {
			return updated, nil
		}

		for _, news := range page {
			var (
				shortDescription string
				ast              *source.ASTNode
			)
			if news.Article != nil {
				shortDescription = news.Article.ShortDescription
				parsed, err := source.ParseAST(news.Article.JSONDescription)
				if err != nil {
					s.logger.Warn("Skipping news with unparseable article body",
						logger.ErrorField(err), logger.StringField("news_id", news.ID))
					continue
				}
				ast = parsed
			}

			score := scoring.Score(news.Language, shortDescription, ast, len(news.RelatedSymbols))
			if score == news.ImportanceScore {
				continue
			}

			if err := s.newsRepo.UpdateImportanceScore(ctx, news.ID, score); err != nil {
				s.logger.Error("Failed to update importance score",
					logger.ErrorField(err), logger.StringField("news_id", news.ID))
				continue
			}
			updated++
		}
	}
}
