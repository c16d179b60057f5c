package entity

import "time"

// Symbol holds descriptive metadata for one ticker, refreshed on demand with
// a cooldown tracked by LastUpdate.
type Symbol struct {
	Symbol      string    `gorm:"primaryKey" json:"symbol"`
	Description string    `json:"description"`
	Sector      string    `json:"sector"`
	LogoID      string    `json:"logoid"`
	Currency    string    `json:"currency"`
	Close       float64   `json:"close"`
	PerfWeek    float64   `json:"perf_week"`
	PerfMonth   float64   `json:"perf_month"`
	PerfYear    float64   `json:"perf_year"`
	LastUpdate  time.Time `json:"last_update"`
}

// TableName specifies the table name for the Symbol model.
func (Symbol) TableName() string {
	return "symbols"
}
