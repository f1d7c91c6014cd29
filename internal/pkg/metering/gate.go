package metering

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// RemainingUnlimited marks a decision without a quota bound.
const RemainingUnlimited int64 = -1

// Decision is the gate's answer for a single content read.
type Decision struct {
	Allowed    bool  `json:"allowed"`
	Entitled   bool  `json:"entitled"`
	Anonymous  bool  `json:"anonymous"`
	Limit      int64 `json:"limit"`
	Remaining  int64 `json:"remaining"`
	DailyCount int64 `json:"daily_count"`
}

// UsageLedger is the counter store the gate consumes.
type UsageLedger interface {
	Peek(ctx context.Context, identity string) (PeekResult, error)
	IncrementIfAllowed(ctx context.Context, identity string, limit int64) (Result, error)
	RecordUnmetered(ctx context.Context, identity string) error
}

// EntitlementSource answers whether an identity has unlimited access. It must
// be a local cache read; the gate sits on the hot serving path.
type EntitlementSource interface {
	IsEntitled(ctx context.Context, identity string) (bool, error)
}

// Gate is the single decision point for metered content access. It combines
// the subscription cache with the usage ledger and owns the fail policy:
// ledger write errors deny (fail closed), subscription cache read errors fall
// through to metering (never silently unlimited).
type Gate struct {
	ledger       UsageLedger
	entitlements EntitlementSource
	cfg          Config
}

func NewGate(ledger UsageLedger, entitlements EntitlementSource, cfg Config) *Gate {
	return &Gate{ledger: ledger, entitlements: entitlements, cfg: cfg}
}

// Evaluate decides one content read. With consume=false it only reports the
// current quota; with consume=true it performs the accounting side effect.
// Callers invoke consume=true exactly once per content page actually served.
func (g *Gate) Evaluate(ctx context.Context, identity string, consume bool) (Decision, error) {
	// Anonymous visitors get a fixed allowance and never touch the ledger;
	// discovery traffic is not penalized and not persisted.
	if identity == "" {
		return Decision{
			Allowed:   true,
			Anonymous: true,
			Limit:     g.cfg.AnonDailyLimit,
			Remaining: g.cfg.AnonDailyLimit,
		}, nil
	}

	// Every store read below shares the short serving-path deadline; a hung
	// subscription cache or ledger must not stall the request.
	storeCtx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	defer cancel()

	entitled, err := g.entitlements.IsEntitled(storeCtx, identity)
	if err != nil {
		// Cache outage must not grant unlimited access; treat the identity
		// as not-yet-known-entitled and meter it.
		log.Warnf("[Gate] entitlement lookup failed for %s, falling back to metering: %v", identity, err)
		entitled = false
	}

	if entitled {
		if consume {
			g.recordEntitledRead(identity)
		}
		return Decision{
			Allowed:   true,
			Entitled:  true,
			Limit:     g.cfg.DailyLimit,
			Remaining: RemainingUnlimited,
		}, nil
	}

	if !consume {
		peek, err := g.ledger.Peek(storeCtx, identity)
		if err != nil {
			return g.denied(), err
		}
		return g.metered(peek.DailyCount, peek.DailyCount < g.cfg.DailyLimit), nil
	}

	res, err := g.ledger.IncrementIfAllowed(storeCtx, identity, g.cfg.DailyLimit)
	if err != nil {
		// Fail closed: a storage failure on the mutating path denies the
		// read rather than handing out unbounded free access.
		return g.denied(), err
	}
	return g.metered(res.DailyCountAfter, res.Allowed), nil
}

// recordEntitledRead accounts an entitled read for analytics without blocking
// or failing the serving path.
func (g *Gate) recordEntitledRead(identity string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.StoreTimeout)
		defer cancel()
		if err := g.ledger.RecordUnmetered(ctx, identity); err != nil {
			log.Warnf("[Gate] failed to record entitled read for %s: %v", identity, err)
		}
	}()
}

func (g *Gate) metered(dailyCount int64, allowed bool) Decision {
	remaining := g.cfg.DailyLimit - dailyCount
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    allowed,
		Limit:      g.cfg.DailyLimit,
		Remaining:  remaining,
		DailyCount: dailyCount,
	}
}

// denied is the uniform fail-closed shape: indistinguishable from an
// exhausted quota on the wire.
func (g *Gate) denied() Decision {
	return Decision{
		Allowed:   false,
		Limit:     g.cfg.DailyLimit,
		Remaining: 0,
	}
}
