package metering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerStub struct {
	mu             sync.Mutex
	peekResult     PeekResult
	peekErr        error
	incrResult     Result
	incrErr        error
	unmeteredErr   error
	peekCalls      int
	incrCalls      int
	unmeteredCalls int
}

func (s *ledgerStub) Peek(ctx context.Context, identity string) (PeekResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peekCalls++
	return s.peekResult, s.peekErr
}

func (s *ledgerStub) IncrementIfAllowed(ctx context.Context, identity string, limit int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incrCalls++
	return s.incrResult, s.incrErr
}

func (s *ledgerStub) RecordUnmetered(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmeteredCalls++
	return s.unmeteredErr
}

func (s *ledgerStub) calls() (peek, incr, unmetered int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekCalls, s.incrCalls, s.unmeteredCalls
}

type entitlementStub struct {
	entitled bool
	err      error
}

func (s *entitlementStub) IsEntitled(ctx context.Context, identity string) (bool, error) {
	return s.entitled, s.err
}

// hangingEntitlementStub blocks until its context expires, like a stalled
// cache store.
type hangingEntitlementStub struct{}

func (s *hangingEntitlementStub) IsEntitled(ctx context.Context, identity string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func testGateConfig() Config {
	return Config{
		DailyLimit:     3,
		AnonDailyLimit: 20,
		StoreTimeout:   250 * time.Millisecond,
	}
}

func TestAnonymousBypassesLedger(t *testing.T) {
	ledger := &ledgerStub{}
	gate := NewGate(ledger, &entitlementStub{}, testGateConfig())

	for _, consume := range []bool{false, true} {
		dec, err := gate.Evaluate(context.Background(), "", consume)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		assert.True(t, dec.Anonymous)
		assert.Equal(t, int64(20), dec.Limit)
		assert.Equal(t, int64(20), dec.Remaining)
	}

	peek, incr, unmetered := ledger.calls()
	assert.Zero(t, peek)
	assert.Zero(t, incr)
	assert.Zero(t, unmetered)
}

func TestEntitledOverridesExhaustedQuota(t *testing.T) {
	// The ledger reports the quota as gone; entitlement must win anyway.
	ledger := &ledgerStub{
		peekResult: PeekResult{DailyCount: 3, TotalCount: 90},
		incrResult: Result{Allowed: false, DailyCountAfter: 3},
	}
	gate := NewGate(ledger, &entitlementStub{entitled: true}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", false)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.True(t, dec.Entitled)
	assert.Equal(t, RemainingUnlimited, dec.Remaining)

	_, incr, _ := ledger.calls()
	assert.Zero(t, incr, "entitled reads never hit the metered increment")
}

func TestEntitledConsumeRecordsAnalyticsWithoutBlocking(t *testing.T) {
	ledger := &ledgerStub{}
	gate := NewGate(ledger, &entitlementStub{entitled: true}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", true)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	assert.Eventually(t, func() bool {
		_, _, unmetered := ledger.calls()
		return unmetered == 1
	}, time.Second, 10*time.Millisecond)
}

func TestEntitledReadSurvivesAnalyticsFailure(t *testing.T) {
	ledger := &ledgerStub{unmeteredErr: errors.New("store down")}
	gate := NewGate(ledger, &entitlementStub{entitled: true}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", true)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestMeteredConsumePropagatesLedgerDecision(t *testing.T) {
	ledger := &ledgerStub{incrResult: Result{Allowed: true, DailyCountAfter: 2, TotalCountAfter: 7}}
	gate := NewGate(ledger, &entitlementStub{}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", true)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.False(t, dec.Entitled)
	assert.Equal(t, int64(2), dec.DailyCount)
	assert.Equal(t, int64(1), dec.Remaining)
}

func TestMeteredDenialReportsZeroRemaining(t *testing.T) {
	ledger := &ledgerStub{incrResult: Result{Allowed: false, DailyCountAfter: 3}}
	gate := NewGate(ledger, &entitlementStub{}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", true)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, int64(0), dec.Remaining)
	assert.Equal(t, int64(3), dec.Limit)
}

func TestStorageErrorFailsClosed(t *testing.T) {
	ledger := &ledgerStub{incrErr: errors.New("timeout")}
	gate := NewGate(ledger, &entitlementStub{}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", true)
	require.Error(t, err)
	assert.False(t, dec.Allowed)
	// The wire shape is indistinguishable from an exhausted quota.
	assert.Equal(t, int64(0), dec.Remaining)
	assert.Equal(t, int64(3), dec.Limit)
}

func TestEntitlementErrorFallsThroughToMetering(t *testing.T) {
	ledger := &ledgerStub{incrResult: Result{Allowed: true, DailyCountAfter: 1}}
	gate := NewGate(ledger, &entitlementStub{err: errors.New("cache down")}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", true)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.False(t, dec.Entitled, "cache outage must not grant unlimited access")

	_, incr, _ := ledger.calls()
	assert.Equal(t, 1, incr)
}

func TestHungEntitlementLookupIsBoundedByStoreTimeout(t *testing.T) {
	ledger := &ledgerStub{incrResult: Result{Allowed: true, DailyCountAfter: 1}}
	gate := NewGate(ledger, &hangingEntitlementStub{}, testGateConfig())

	start := time.Now()
	dec, err := gate.Evaluate(context.Background(), "a@example.com", true)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second, "evaluate must return within the store timeout")
	assert.True(t, dec.Allowed)
	assert.False(t, dec.Entitled, "a timed-out lookup must not grant unlimited access")

	_, incr, _ := ledger.calls()
	assert.Equal(t, 1, incr)
}

func TestQuotaQueryDoesNotConsume(t *testing.T) {
	ledger := &ledgerStub{peekResult: PeekResult{DailyCount: 1}}
	gate := NewGate(ledger, &entitlementStub{}, testGateConfig())

	dec, err := gate.Evaluate(context.Background(), "a@example.com", false)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, int64(2), dec.Remaining)

	peek, incr, _ := ledger.calls()
	assert.Equal(t, 1, peek)
	assert.Zero(t, incr)
}
