package entity

import "time"

// News represents one ingested news item. ID is the source-provided story
// identifier, unique across locales.
type News struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"not null" json:"title"`
	StoryPath       string    `gorm:"not null" json:"story_path"`
	Source          string    `json:"source"`
	Provider        string    `json:"provider"`
	Urgency         int       `json:"urgency"`
	Published       int64     `gorm:"not null" json:"published"`
	Language        string    `gorm:"not null" json:"language"`
	ImportanceScore int       `json:"importance_score"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`

	Article        *NewsArticle        `gorm:"foreignKey:NewsID" json:"article,omitempty"`
	RelatedSymbols []NewsRelatedSymbol `gorm:"foreignKey:NewsID" json:"related_symbols,omitempty"`
}

// TableName specifies the table name for the News model.
func (News) TableName() string {
	return "news"
}

// NewsArticle holds the full article body for a news item (1:1 via NewsID).
type NewsArticle struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	NewsID           string    `gorm:"unique;not null" json:"news_id"`
	JSONDescription  string    `json:"json_description"`
	ShortDescription string    `json:"short_description"`
	Copyright        string    `json:"copyright"`
	Date             time.Time `json:"date"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the NewsArticle model.
func (NewsArticle) TableName() string {
	return "news_article"
}

// NewsRelatedSymbol links a news item to one ticker it mentions.
// (news_id, symbol) pairs are unique.
type NewsRelatedSymbol struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	NewsID string `gorm:"index;uniqueIndex:idx_news_symbol;not null" json:"news_id"`
	Symbol string `gorm:"uniqueIndex:idx_news_symbol;not null" json:"symbol"`
}

// TableName specifies the table name for the NewsRelatedSymbol model.
func (NewsRelatedSymbol) TableName() string {
	return "news_related_symbol"
}
