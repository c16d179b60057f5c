package repository

import (
	"context"
	"errors"
	"time"

	"finnews-notifier/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SymbolsRepository defines the interface for symbol metadata.
type SymbolsRepository interface {
	GetLastUpdate(ctx context.Context, symbol string) (time.Time, error)
	Upsert(ctx context.Context, symbol *entity.Symbol) error
}

// NewSymbolsRepository creates a new instance of SymbolsRepository.
func NewSymbolsRepository(db *gorm.DB) SymbolsRepository {
	return &symbolsRepository{db: db}
}

type symbolsRepository struct {
	db *gorm.DB
}

// GetLastUpdate returns the last refresh time of a symbol, or the zero time
// when the symbol is unknown.
func (r *symbolsRepository) GetLastUpdate(ctx context.Context, symbol string) (time.Time, error) {
	var row entity.Symbol
	err := r.db.WithContext(ctx).
		Select("symbol", "last_update").
		Where("symbol = ?", symbol).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return row.LastUpdate, nil
}

func (r *symbolsRepository) Upsert(ctx context.Context, symbol *entity.Symbol) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		UpdateAll: true,
	}).Create(symbol).Error
}
