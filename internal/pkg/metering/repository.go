package metering

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pressbrief/pressbrief/app/models"
)

// Repository is the ledger's storage port. IncrementIfBelow is the atomic
// compare-and-increment primitive everything else leans on: it must behave as
// a single conditional update against the shared store, because multiple
// server processes meter the same identities.
type Repository interface {
	Get(ctx context.Context, identity string) (*models.UsageRecord, error)
	EnsureRecord(ctx context.Context, identity string, day DayKey, now time.Time) error
	IncrementIfBelow(ctx context.Context, identity string, day DayKey, limit int64, now time.Time) (bool, error)
	IncrementUnbounded(ctx context.Context, identity string, day DayKey, now time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a usage ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Get returns the stored record with legacy counter columns folded into the
// canonical ones. Rollover is NOT applied here; callers compare DailyDate
// against the current day key themselves.
func (r *gormRepository) Get(ctx context.Context, identity string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := r.db.WithContext(ctx).Where("identity = ?", identity).First(&rec).Error
	if err != nil {
		return nil, err
	}
	normalizeRecord(&rec)
	return &rec, nil
}

func (r *gormRepository) EnsureRecord(ctx context.Context, identity string, day DayKey, now time.Time) error {
	rec := models.UsageRecord{
		Identity:   identity,
		DailyCount: 0,
		DailyDate:  day.String(),
		TotalCount: 0,
		LastSeenAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoNothing: true,
	}).Create(&rec).Error
}

// IncrementIfBelow performs rollover, limit comparison and increment in one
// conditional UPDATE. The row is touched iff the stored day is stale (reset
// and count the first read of the new day) or today's count is below limit.
// RowsAffected == 0 on an existing row means the limit is exhausted.
func (r *gormRepository) IncrementIfBelow(ctx context.Context, identity string, day DayKey, limit int64, now time.Time) (bool, error) {
	if err := r.foldLegacyCounters(ctx, identity); err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE usage_records
		SET daily_count = CASE WHEN daily_date = ? THEN daily_count + 1 ELSE 1 END,
		    total_count = total_count + 1,
		    daily_date = ?,
		    last_seen_at = ?,
		    updated_at = ?
		WHERE identity = ? AND (daily_date <> ? OR daily_count < ?)`,
		day.String(), day.String(), now, now, identity, day.String(), limit)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementUnbounded records a read without a limit check. Used for the
// analytics accounting of entitled reads.
func (r *gormRepository) IncrementUnbounded(ctx context.Context, identity string, day DayKey, now time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE usage_records
		SET daily_count = CASE WHEN daily_date = ? THEN daily_count + 1 ELSE 1 END,
		    total_count = total_count + 1,
		    daily_date = ?,
		    last_seen_at = ?,
		    updated_at = ?
		WHERE identity = ?`,
		day.String(), day.String(), now, now, identity).Error
}

// foldLegacyCounters migrates the pre-rename counter columns into the
// canonical ones before any conditional math runs against them. Idempotent:
// the guard makes the statement a no-op once the legacy columns are drained.
func (r *gormRepository) foldLegacyCounters(ctx context.Context, identity string) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE usage_records
		SET daily_count = daily_count + reads_today,
		    total_count = total_count + reads_total,
		    reads_today = 0,
		    reads_total = 0
		WHERE identity = ? AND (reads_today <> 0 OR reads_total <> 0)`,
		identity).Error
}

// normalizeRecord merges legacy counter columns into the canonical view for
// rows that predate the column rename and have not been written since.
func normalizeRecord(rec *models.UsageRecord) {
	if rec.ReadsToday == 0 && rec.ReadsTotal == 0 {
		return
	}
	rec.DailyCount += rec.ReadsToday
	rec.TotalCount += rec.ReadsTotal
	rec.ReadsToday = 0
	rec.ReadsTotal = 0
}
