package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Source string

const (
	SourceUpload    Source = "upload"
	SourceSynthetic Source = "synthetic"
)

// Dataset is one ingested batch of transactions. Analysis reports are
// recomputed per run and never persisted; only the raw rows are stored.
type Dataset struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Slug      string       `gorm:"not null;uniqueIndex" json:"slug"`
	Name      string       `gorm:"not null" json:"name"`
	Source    Source       `gorm:"not null" json:"source"`
	RowCount  int          `gorm:"not null" json:"row_count"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// Transaction is one purchase event.
type Transaction struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"-"`
	DatasetID  snowflake.ID `gorm:"not null;index" json:"-"`
	CustomerID string       `gorm:"not null;index" json:"customerID"`
	Amount     float64      `gorm:"not null" json:"amount"`
	Date       time.Time    `gorm:"not null" json:"date"`
	Category   string       `gorm:"not null" json:"category"`
	Channel    string       `gorm:"not null" json:"channel"`
}
