package usage_guard

import (
	"fmt"
	"sync"
	"time"

	"voice-assistant/logging"
	"voice-assistant/resource_monitor"
)

// defaultWarnFraction is the share of a call limit that triggers the one-shot
// approaching-limit warning when the config does not set one.
const defaultWarnFraction = 0.8

// Stats is a read-only view of the ledger for logging and session summaries.
type Stats struct {
	DailyCalls  int
	HourlyCalls int
	SessionCost float64
}

// Interface gates every external model call behind usage quotas and host
// resource headroom. Denials are typed so callers can phrase the notice.
type Interface interface {
	// Admit reserves room for one call costing estimatedCost dollars. On
	// success the returned reservation must be settled with Commit or
	// Release exactly once.
	Admit(estimatedCost float64) (*Reservation, error)

	Stats() Stats
}

type guardImpl struct {
	maxDailyCalls    int
	maxHourlyCalls   int
	maxSessionCost   float64
	costWarnAt       float64
	warnFraction     float64
	minDiskSpaceMB   float64
	maxMemoryPercent float64

	monitor resource_monitor.Interface
	now     func() time.Time

	mu     sync.Mutex
	ledger ledger

	warnedDaily  bool
	warnedHourly bool
	warnedCost   bool
}

type Config struct {
	MaxDailyCalls    int
	MaxHourlyCalls   int
	MaxSessionCost   float64
	CostWarningAt    float64
	MinDiskSpaceMB   float64
	MaxMemoryPercent float64

	// WarnFraction is the share of a call limit at which the one-shot
	// approaching-limit warning fires. Zero selects the default of 0.8.
	WarnFraction float64

	Monitor resource_monitor.Interface

	// Now overrides the clock; tests use it to cross window boundaries.
	Now func() time.Time
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Monitor == nil {
		return nil, fmt.Errorf("resource monitor is nil")
	}

	if cfg.MaxDailyCalls <= 0 || cfg.MaxHourlyCalls <= 0 {
		return nil, fmt.Errorf("call limits must be positive")
	}

	if cfg.MaxSessionCost <= 0 {
		return nil, fmt.Errorf("session cost limit must be positive")
	}

	warnFraction := cfg.WarnFraction
	if warnFraction == 0 {
		warnFraction = defaultWarnFraction
	}
	if warnFraction < 0 || warnFraction > 1 {
		return nil, fmt.Errorf("warn fraction must be between 0 and 1")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	g := &guardImpl{
		maxDailyCalls:    cfg.MaxDailyCalls,
		maxHourlyCalls:   cfg.MaxHourlyCalls,
		maxSessionCost:   cfg.MaxSessionCost,
		costWarnAt:       cfg.CostWarningAt,
		warnFraction:     warnFraction,
		minDiskSpaceMB:   cfg.MinDiskSpaceMB,
		maxMemoryPercent: cfg.MaxMemoryPercent,
		monitor:          cfg.Monitor,
		now:              now,
	}

	g.ledger.rollover(now())

	return g, nil
}

func (g *guardImpl) Admit(estimatedCost float64) (*Reservation, error) {
	if estimatedCost < 0 {
		return nil, fmt.Errorf("estimated cost must not be negative")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	newDay, newHour := g.ledger.rollover(g.now())
	if newDay {
		g.warnedDaily = false
	}
	if newHour {
		g.warnedHourly = false
	}

	if g.ledger.dailyCalls >= g.maxDailyCalls {
		return nil, &QuotaExceededError{
			Reason: ReasonDailyLimit,
			Used:   float64(g.ledger.dailyCalls),
			Limit:  float64(g.maxDailyCalls),
		}
	}

	if g.ledger.hourlyCalls >= g.maxHourlyCalls {
		return nil, &QuotaExceededError{
			Reason: ReasonHourlyLimit,
			Used:   float64(g.ledger.hourlyCalls),
			Limit:  float64(g.maxHourlyCalls),
		}
	}

	projected := g.ledger.sessionCost + g.ledger.reservedCost + estimatedCost
	if projected > g.maxSessionCost {
		return nil, &QuotaExceededError{
			Reason: ReasonSessionCost,
			Used:   projected,
			Limit:  g.maxSessionCost,
		}
	}

	snapshot, err := g.monitor.Snapshot()
	if err != nil {
		// cannot verify headroom, refuse the call
		return nil, fmt.Errorf("resource probe failed: %w", err)
	}

	if g.minDiskSpaceMB > 0 && snapshot.DiskFreeMB < g.minDiskSpaceMB {
		return nil, &ResourceExceededError{
			Reason:  ReasonDiskSpace,
			Current: snapshot.DiskFreeMB,
			Limit:   g.minDiskSpaceMB,
		}
	}

	if g.maxMemoryPercent > 0 && snapshot.MemoryUsedPct > g.maxMemoryPercent {
		return nil, &ResourceExceededError{
			Reason:  ReasonMemory,
			Current: snapshot.MemoryUsedPct,
			Limit:   g.maxMemoryPercent,
		}
	}

	// counters move at admission so two concurrent calls cannot both take
	// the last slot
	g.ledger.dailyCalls++
	g.ledger.hourlyCalls++
	g.ledger.reservedCost += estimatedCost

	g.warnIfApproachingLocked()

	return &Reservation{guard: g, estimated: estimatedCost}, nil
}

func (g *guardImpl) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Stats{
		DailyCalls:  g.ledger.dailyCalls,
		HourlyCalls: g.ledger.hourlyCalls,
		SessionCost: g.ledger.sessionCost,
	}
}

func (g *guardImpl) warnIfApproachingLocked() {
	if !g.warnedDaily && float64(g.ledger.dailyCalls) >= g.warnFraction*float64(g.maxDailyCalls) {
		g.warnedDaily = true
		logging.Warnw("approaching daily call limit",
			"used", g.ledger.dailyCalls,
			"limit", g.maxDailyCalls)
	}

	if !g.warnedHourly && float64(g.ledger.hourlyCalls) >= g.warnFraction*float64(g.maxHourlyCalls) {
		g.warnedHourly = true
		logging.Warnw("approaching hourly call limit",
			"used", g.ledger.hourlyCalls,
			"limit", g.maxHourlyCalls)
	}
}

// Reservation holds admitted-but-unsettled spend. Exactly one of Commit or
// Release must be called; extra calls are no-ops.
type Reservation struct {
	guard     *guardImpl
	estimated float64
	settled   bool
}

// Commit replaces the reserved estimate with the actual cost of the call.
func (r *Reservation) Commit(actualCost float64) {
	r.guard.mu.Lock()
	defer r.guard.mu.Unlock()

	if r.settled {
		return
	}
	r.settled = true

	r.guard.ledger.reservedCost -= r.estimated
	if r.guard.ledger.reservedCost < 0 {
		r.guard.ledger.reservedCost = 0
	}

	if actualCost > 0 {
		r.guard.ledger.sessionCost += actualCost
	}

	if !r.guard.warnedCost && r.guard.costWarnAt > 0 && r.guard.ledger.sessionCost >= r.guard.costWarnAt {
		r.guard.warnedCost = true
		logging.Warnw("session cost passed warning threshold",
			"session_cost", r.guard.ledger.sessionCost,
			"threshold", r.guard.costWarnAt)
	}
}

// Release refunds the reservation after a failed call, returning the call
// slots as well.
func (r *Reservation) Release() {
	r.guard.mu.Lock()
	defer r.guard.mu.Unlock()

	if r.settled {
		return
	}
	r.settled = true

	r.guard.ledger.reservedCost -= r.estimated
	if r.guard.ledger.reservedCost < 0 {
		r.guard.ledger.reservedCost = 0
	}

	if r.guard.ledger.dailyCalls > 0 {
		r.guard.ledger.dailyCalls--
	}
	if r.guard.ledger.hourlyCalls > 0 {
		r.guard.ledger.hourlyCalls--
	}
}
