package models

import (
	"time"

	"gorm.io/gorm"
)

// Article is one summarized feed item in the ranked reading feed. Rows are
// written by the ingestion pipeline; the serving path only reads them.
type Article struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=3,max=255"`
	SourceName  string         `gorm:"type:varchar(150);not null;index" json:"source_name"`
	SourceURL   string         `gorm:"type:varchar(500);not null" json:"source_url" validate:"required,url,max=500"`
	Summary     string         `gorm:"type:text" json:"summary"`
	Score       float64        `gorm:"not null;default:0;index:idx_articles_rank,priority:1" json:"score"`
	ReadCount   uint64         `gorm:"not null;default:0" json:"read_count"`
	PublishedAt time.Time      `gorm:"type:timestamp;index:idx_articles_rank,priority:2" json:"published_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Article model
func (Article) TableName() string {
	return "articles"
}
