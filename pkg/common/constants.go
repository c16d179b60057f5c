package common

import "time"

const (
	// RedisKeyIngestionLease serializes ingestion cycles across instances.
	RedisKeyIngestionLease = "news.ingestion.lease"

	// NotificationTypeNews marks history rows produced by the news pipeline.
	NotificationTypeNews = "news"
	// NotificationTypeEvent marks history rows produced by calendar reminders.
	NotificationTypeEvent = "event"

	// SymbolRefreshCooldown is the minimum interval between two metadata
	// refreshes of the same symbol.
	SymbolRefreshCooldown = 10 * time.Minute
)
