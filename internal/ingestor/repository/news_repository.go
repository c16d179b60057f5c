package repository

import (
	"context"

	"finnews-notifier/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsRepository defines the interface for interacting with news data.
type NewsRepository interface {
	FilterNewIDs(ctx context.Context, ids []string) ([]string, error)
	BulkCreate(ctx context.Context, news []entity.News) (int64, error)
	BulkCreateArticles(ctx context.Context, articles []entity.NewsArticle) (int64, error)
	BulkCreateRelatedSymbols(ctx context.Context, symbols []entity.NewsRelatedSymbol) (int64, error)
	FindPageWithArticles(ctx context.Context, offset, limit int) ([]entity.News, error)
	UpdateImportanceScore(ctx context.Context, id string, score int) error
}

// NewNewsRepository creates a new instance of NewsRepository.
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

type newsRepository struct {
	db *gorm.DB
}

// FilterNewIDs returns the subset of ids that is not yet stored, preserving
// input order.
func (r *newsRepository) FilterNewIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var existing []string
	err := r.db.WithContext(ctx).Model(&entity.News{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error
	if err != nil {
		return nil, err
	}

	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	var fresh []string
	for _, id := range ids {
		if !existingSet[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

func (r *newsRepository) BulkCreate(ctx context.Context, news []entity.News) (int64, error) {
	if len(news) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&news)
	return tx.RowsAffected, tx.Error
}

func (r *newsRepository) BulkCreateArticles(ctx context.Context, articles []entity.NewsArticle) (int64, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "news_id"}},
		DoNothing: true,
	}).Create(&articles)
	return tx.RowsAffected, tx.Error
}

func (r *newsRepository) BulkCreateRelatedSymbols(ctx context.Context, symbols []entity.NewsRelatedSymbol) (int64, error) {
	if len(symbols) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "news_id"}, {Name: "symbol"}},
		DoNothing: true,
	}).Create(&symbols)
	return tx.RowsAffected, tx.Error
}

// FindPageWithArticles pages through stored news with their articles and
// related symbols preloaded, ordered by publication time.
func (r *newsRepository) FindPageWithArticles(ctx context.Context, offset, limit int) ([]entity.News, error) {
	var news []entity.News
	err := r.db.WithContext(ctx).
		Preload("Article").
		Preload("RelatedSymbols").
		Order("published DESC").
		Offset(offset).
		Limit(limit).
		Find(&news).Error
	return news, err
}

func (r *newsRepository) UpdateImportanceScore(ctx context.Context, id string, score int) error {
	return r.db.WithContext(ctx).Model(&entity.News{}).
		Where("id = ?", id).
		Update("importance_score", score).Error
}
