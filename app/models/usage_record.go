package models

import "time"

// UsageRecord is the per-identity read ledger row. DailyCount only holds a
// meaningful value relative to DailyDate: callers must treat the row as zero
// when DailyDate is not the current UTC day. TotalCount never resets. Rows are
// created lazily on first metered read and are never deleted.
//
// ReadsToday/ReadsTotal are the pre-migration counter columns. They are still
// read (see metering repository normalization) but the canonical columns are
// the only ones written going forward.
type UsageRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Identity   string    `gorm:"uniqueIndex;type:varchar(200);not null" json:"identity"`
	DailyCount int64     `gorm:"not null;default:0" json:"daily_count"`
	DailyDate  string    `gorm:"type:varchar(10);not null;default:''" json:"daily_date"`
	TotalCount int64     `gorm:"not null;default:0" json:"total_count"`
	ReadsToday int64     `gorm:"not null;default:0" json:"-"`
	ReadsTotal int64     `gorm:"not null;default:0" json:"-"`
	LastSeenAt time.Time `gorm:"type:timestamp;default:null" json:"last_seen_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the UsageRecord model
func (UsageRecord) TableName() string {
	return "usage_records"
}
