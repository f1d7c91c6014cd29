package metering

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// PeekResult is a read-only view of an identity's counters for the current
// day. A stale stored day is reported as zero even before it is persisted.
type PeekResult struct {
	DailyCount int64
	TotalCount int64
	DailyDate  DayKey
}

// Result is the outcome of a metered consumption attempt.
type Result struct {
	Allowed         bool
	DailyCountAfter int64
	TotalCountAfter int64
}

// Ledger is the authoritative per-identity read counter store. All metered
// mutation funnels through IncrementIfAllowed; nothing else writes counters.
type Ledger struct {
	repo  Repository
	clock Clock
}

func NewLedger(repo Repository, clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock()
	}
	return &Ledger{repo: repo, clock: clock}
}

// Peek reports today's counts without consuming. Missing records and records
// whose stored day is stale both read as zero daily usage.
func (l *Ledger) Peek(ctx context.Context, identity string) (PeekResult, error) {
	today := DayKeyAt(l.clock.Now())

	rec, err := l.repo.Get(ctx, identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PeekResult{DailyDate: today}, nil
	}
	if err != nil {
		return PeekResult{}, err
	}

	out := PeekResult{
		DailyCount: rec.DailyCount,
		TotalCount: rec.TotalCount,
		DailyDate:  today,
	}
	if DayKey(rec.DailyDate) != today {
		out.DailyCount = 0
	}
	return out, nil
}

// IncrementIfAllowed consumes one read iff today's count is below limit.
// Creation, rollover and increment are a single atomic step against the
// store; two racing calls can never both take the last remaining slot.
func (l *Ledger) IncrementIfAllowed(ctx context.Context, identity string, limit int64) (Result, error) {
	now := l.clock.Now()
	today := DayKeyAt(now)

	if err := l.repo.EnsureRecord(ctx, identity, today, now); err != nil {
		return Result{}, err
	}

	allowed, err := l.repo.IncrementIfBelow(ctx, identity, today, limit, now)
	if err != nil {
		return Result{}, err
	}

	// Counts are read back after the conditional update; the allowed flag is
	// the contractual part, the counts are reporting.
	rec, err := l.repo.Get(ctx, identity)
	if err != nil {
		return Result{}, err
	}

	daily := rec.DailyCount
	if DayKey(rec.DailyDate) != today {
		daily = 0
	}
	return Result{
		Allowed:         allowed,
		DailyCountAfter: daily,
		TotalCountAfter: rec.TotalCount,
	}, nil
}

// RecordUnmetered accounts a read that is not subject to the limit (entitled
// identities). The counters still roll over per day so the analytics stay in
// daily buckets.
func (l *Ledger) RecordUnmetered(ctx context.Context, identity string) error {
	now := l.clock.Now()
	today := DayKeyAt(now)

	if err := l.repo.EnsureRecord(ctx, identity, today, now); err != nil {
		return err
	}
	return l.repo.IncrementUnbounded(ctx, identity, today, now)
}
