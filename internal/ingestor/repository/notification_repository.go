package repository

import (
	"context"

	"finnews-notifier/internal/entity"

	"gorm.io/gorm"
)

// KeywordMatch is one keyword subscription row resolved to its owning group
// and user.
type KeywordMatch struct {
	SubscribedNewsID uint   `json:"subscribed_news_id"`
	UserID           uint   `json:"user_id"`
	Keyword          string `json:"keyword"`
}

// SymbolMatch is one symbol subscription row resolved to its owning group and
// user.
type SymbolMatch struct {
	SubscribedNewsID uint   `json:"subscribed_news_id"`
	UserID           uint   `json:"user_id"`
	Symbol           string `json:"symbol"`
}

// NotificationRepository defines the interface for subscription lookups and
// notification history.
type NotificationRepository interface {
	FindKeywordMatches(ctx context.Context, words []string) ([]KeywordMatch, error)
	FindSymbolMatches(ctx context.Context, symbols []string) ([]SymbolMatch, error)
	FindPushSubscriptions(ctx context.Context, userID uint) ([]entity.PushSubscription, error)
	CreateHistory(ctx context.Context, notification *entity.Notification) error
	FindEventSubscribers(ctx context.Context, country string, importance int) ([]entity.SubscribedEvents, error)
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

type notificationRepository struct {
	db *gorm.DB
}

// FindKeywordMatches returns keyword subscriptions of active groups whose
// keyword is a member of words. Membership is exact, matching the word
// tokenization done by the caller.
func (r *notificationRepository) FindKeywordMatches(ctx context.Context, words []string) ([]KeywordMatch, error) {
	if len(words) == 0 {
		return nil, nil
	}
	var matches []KeywordMatch
	err := r.db.WithContext(ctx).
		Table("notification_subscribed_news_keywords AS k").
		Select("k.keyword, g.id AS subscribed_news_id, g.user_id").
		Joins("JOIN notification_subscribed_news AS g ON g.id = k.subscribed_news_id").
		Where("g.active = ?", true).
		Where("k.keyword IN ?", words).
		Scan(&matches).Error
	return matches, err
}

// FindSymbolMatches returns symbol subscriptions of active groups tracking
// one of the given tickers.
func (r *notificationRepository) FindSymbolMatches(ctx context.Context, symbols []string) ([]SymbolMatch, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	var matches []SymbolMatch
	err := r.db.WithContext(ctx).
		Table("notification_subscribed_news_symbols AS s").
		Select("s.symbol, g.id AS subscribed_news_id, g.user_id").
		Joins("JOIN notification_subscribed_news AS g ON g.id = s.subscribed_news_id").
		Where("g.active = ?", true).
		Where("s.symbol IN ?", symbols).
		Scan(&matches).Error
	return matches, err
}

func (r *notificationRepository) FindPushSubscriptions(ctx context.Context, userID uint) ([]entity.PushSubscription, error) {
	var subs []entity.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subs).Error
	return subs, err
}

func (r *notificationRepository) CreateHistory(ctx context.Context, notification *entity.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) FindEventSubscribers(ctx context.Context, country string, importance int) ([]entity.SubscribedEvents, error) {
	var subs []entity.SubscribedEvents
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("min_importance <= ?", importance).
		Where("country = ? OR country = ''", country).
		Find(&subs).Error
	return subs, err
}
