package dto

import "finnews-notifier/internal/entity"

// CycleStats summarizes one ingestion cycle.
type CycleStats struct {
	Inserted               int `json:"inserted"`
	ArticlesInserted       int `json:"articles_inserted"`
	RelatedSymbolsInserted int `json:"related_symbols_inserted"`
}

// IngestedNews is one freshly inserted news item handed from the orchestrator
// to the subscription matcher.
type IngestedNews struct {
	News    entity.News
	Article *entity.NewsArticle
	Symbols []string
}

// NotificationMatch is one keyword subscription hit on one news item.
type NotificationMatch struct {
	UserID           uint
	SubscribedNewsID uint
	Keyword          string
	NewsID           string
}

// PendingNotification accumulates matches for one (user, group) pair during a
// cycle. It only lives in memory; its rendered form is what gets persisted.
type PendingNotification struct {
	UserID           uint
	SubscribedNewsID uint
	Keywords         []string
	NewsIDs          []string
	Title            string
	Body             string
	URL              string
}
