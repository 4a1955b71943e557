package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ok-landscape/syndicate/pkg/clock"
)

func TestBudgetEnforcesFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)

	b := NewBudget(map[string]BudgetConfig{
		"threads": {Capacity: 3, Window: time.Hour},
	}, clk)

	assert.True(t, b.Allow("threads"))
	assert.True(t, b.Allow("threads"))
	assert.True(t, b.Allow("threads"))
	assert.False(t, b.Allow("threads"), "capacity exhausted within the window")

	// Still inside the window
	clk.Advance(30 * time.Minute)
	assert.False(t, b.Allow("threads"))

	// Window elapsed, full capacity restored
	clk.Advance(31 * time.Minute)
	assert.True(t, b.Allow("threads"))
	assert.True(t, b.Allow("threads"))
	assert.True(t, b.Allow("threads"))
	assert.False(t, b.Allow("threads"))
}

func TestBudgetUnknownPlatformNeverThrottled(t *testing.T) {
	clk := clock.NewFake(time.Now())
	b := NewBudget(map[string]BudgetConfig{}, clk)

	for i := 0; i < 100; i++ {
		assert.True(t, b.Allow("mystery"))
	}
}

func TestBudgetPlatformsAreIndependent(t *testing.T) {
	clk := clock.NewFake(time.Now())
	b := NewBudget(map[string]BudgetConfig{
		"facebook":  {Capacity: 1, Window: time.Hour},
		"instagram": {Capacity: 1, Window: time.Hour},
	}, clk)

	assert.True(t, b.Allow("facebook"))
	assert.False(t, b.Allow("facebook"))
	assert.True(t, b.Allow("instagram"), "one platform's exhaustion must not affect another")
}

func TestBudgetState(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	b := NewBudget(map[string]BudgetConfig{
		"facebook": {Capacity: 200, Window: time.Hour},
	}, clk)

	b.Allow("facebook")

	state := b.State()["facebook"]
	assert.Equal(t, 200, state.Capacity)
	assert.Equal(t, 199, state.Remaining)
	assert.Equal(t, now.Add(time.Hour), state.ResetAt)
}
