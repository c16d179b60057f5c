package entity

import "time"

// EconomicEvent is one entry of the economic calendar (rate decision, CPI
// release, ...). Rows are maintained by a separate import; the pipeline only
// reads them for reminders.
type EconomicEvent struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Country    string    `gorm:"index" json:"country"`
	Importance int       `json:"importance"`
	Date       time.Time `gorm:"index;not null" json:"date"`
	RemindedAt *time.Time `json:"reminded_at,omitempty"`
}

// TableName specifies the table name for the EconomicEvent model.
func (EconomicEvent) TableName() string {
	return "economic_events"
}

// SubscribedEvents is a user's economic-calendar reminder preference.
type SubscribedEvents struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UserID        uint   `gorm:"index;not null" json:"user_id"`
	Country       string `json:"country"`
	MinImportance int    `json:"min_importance"`
	Active        bool   `gorm:"default:true" json:"active"`
}

// TableName specifies the table name for the SubscribedEvents model.
func (SubscribedEvents) TableName() string {
	return "notification_subscribed_events"
}
