package repository

import (
	"context"
	"time"

	"finnews-notifier/internal/entity"

	"gorm.io/gorm"
)

// EconomicEventsRepository defines the interface for calendar events.
type EconomicEventsRepository interface {
	FindDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]entity.EconomicEvent, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

// NewEconomicEventsRepository creates a new instance of EconomicEventsRepository.
func NewEconomicEventsRepository(db *gorm.DB) EconomicEventsRepository {
	return &economicEventsRepository{db: db}
}

type economicEventsRepository struct {
	db *gorm.DB
}

// FindDueReminders returns events starting within the lead window that have
// not been reminded yet.
func (r *economicEventsRepository) FindDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]entity.EconomicEvent, error) {
	var events []entity.EconomicEvent
	err := r.db.WithContext(ctx).
		Where("reminded_at IS NULL").
		Where("date > ?", now).
		Where("date <= ?", now.Add(lead)).
		Order("date ASC").
		Find(&events).Error
	return events, err
}

func (r *economicEventsRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.EconomicEvent{}).
		Where("id = ?", id).
		Update("reminded_at", at).Error
}
