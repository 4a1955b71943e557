package dispatch

import (
	"sync"
	"time"

	"github.com/ok-landscape/syndicate/pkg/clock"
)

// BudgetConfig describes one platform's publish allowance per fixed window.
type BudgetConfig struct {
	Capacity int
	Window   time.Duration
}

// BudgetState is a read-only snapshot of one platform's budget.
type BudgetState struct {
	Capacity  int       `json:"capacity"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type platformBudget struct {
	capacity  int
	window    time.Duration
	remaining int
	resetAt   time.Time
}

// Budget enforces per-platform publish allowances over fixed windows. When a
// window elapses the full capacity is restored; within a window each Allow
// consumes one unit until the budget is exhausted.
type Budget struct {
	mu        sync.Mutex
	clock     clock.Clock
	platforms map[string]*platformBudget
}

func NewBudget(cfgs map[string]BudgetConfig, clk clock.Clock) *Budget {
	now := clk.Now()
	platforms := make(map[string]*platformBudget, len(cfgs))
	for platform, cfg := range cfgs {
		platforms[platform] = &platformBudget{
			capacity:  cfg.Capacity,
			window:    cfg.Window,
			remaining: cfg.Capacity,
			resetAt:   now.Add(cfg.Window),
		}
	}
	return &Budget{clock: clk, platforms: platforms}
}

// Allow consumes one unit of the platform's budget. Platforms without a
// configured budget are never throttled.
func (b *Budget) Allow(platform string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	pb, ok := b.platforms[platform]
	if !ok {
		return true
	}

	now := b.clock.Now()
	if now.After(pb.resetAt) {
		pb.remaining = pb.capacity
		pb.resetAt = now.Add(pb.window)
	}

	if pb.remaining <= 0 {
		return false
	}
	pb.remaining--
	return true
}

// State snapshots every platform budget for diagnostics.
func (b *Budget) State() map[string]BudgetState {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]BudgetState, len(b.platforms))
	for platform, pb := range b.platforms {
		out[platform] = BudgetState{
			Capacity:  pb.capacity,
			Remaining: pb.remaining,
			ResetAt:   pb.resetAt,
		}
	}
	return out
}
