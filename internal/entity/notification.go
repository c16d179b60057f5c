package entity

import (
	"time"

	"github.com/lib/pq"
)

// Notification is one delivered (or attempted) notification, kept as history
// so users can review what they were sent.
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	Title     string         `gorm:"not null" json:"title"`
	Body      string         `json:"body"`
	URL       string         `json:"url"`
	Type      string         `gorm:"not null" json:"type"`
	SourceID  uint           `json:"source_id"`
	Keywords  pq.StringArray `gorm:"type:text[]" json:"keywords"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the Notification model.
func (Notification) TableName() string {
	return "notification"
}

// SubscribedNews is a named news-alert group owned by one user. Keywords and
// symbols attached to it are OR'd: any match triggers the group.
type SubscribedNews struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Name      string    `json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Keywords []SubscribedNewsKeyword `gorm:"foreignKey:SubscribedNewsID" json:"keywords,omitempty"`
	Symbols  []SubscribedNewsSymbol  `gorm:"foreignKey:SubscribedNewsID" json:"symbols,omitempty"`
}

// TableName specifies the table name for the SubscribedNews model.
func (SubscribedNews) TableName() string {
	return "notification_subscribed_news"
}

// SubscribedNewsKeyword is one lowercase keyword tracked by a group.
type SubscribedNewsKeyword struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	SubscribedNewsID uint   `gorm:"index;not null" json:"subscribed_news_id"`
	Keyword          string `gorm:"not null" json:"keyword"`
}

// TableName specifies the table name for the SubscribedNewsKeyword model.
func (SubscribedNewsKeyword) TableName() string {
	return "notification_subscribed_news_keywords"
}

// SubscribedNewsSymbol is one ticker tracked by a group.
type SubscribedNewsSymbol struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	SubscribedNewsID uint   `gorm:"index;not null" json:"subscribed_news_id"`
	Symbol           string `gorm:"not null" json:"symbol"`
}

// TableName specifies the table name for the SubscribedNewsSymbol model.
func (SubscribedNewsSymbol) TableName() string {
	return "notification_subscribed_news_symbols"
}

// PushSubscription is one browser push registration. A user may hold several
// (one per device).
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Endpoint  string    `gorm:"unique;not null" json:"endpoint"`
	P256dh    string    `gorm:"not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the PushSubscription model.
func (PushSubscription) TableName() string {
	return "notification_subscription"
}
