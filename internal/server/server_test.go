package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/config"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

func TestBuildDispatcherConfig(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Scheduler.Enabled = true

	out, err := buildDispatcherConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, out.PollInterval)
	assert.Equal(t, 5*time.Minute, out.DueWindow)
	assert.Equal(t, 60*time.Second, out.ThrottleBackoff)
	assert.Equal(t, 30*time.Second, out.PublishTimeout)
	assert.Equal(t, time.Hour, out.RescheduleDelay)
	assert.Equal(t, "0 0 * * 0", out.RefillSpec)
}

func TestBuildDispatcherConfigRejectsBadDurations(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Dispatcher.PollInterval = "whenever"

	_, err := buildDispatcherConfig(cfg)
	assert.Error(t, err)
}

func TestBuildDispatcherConfigDisabledSchedulerDropsRefill(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Scheduler.Enabled = false

	out, err := buildDispatcherConfig(cfg)
	require.NoError(t, err)
	assert.Empty(t, out.RefillSpec)
}

func TestBuildBudget(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	budget, err := buildBudget(cfg, clock.NewFake(time.Now()))
	require.NoError(t, err)

	state := budget.State()
	assert.Equal(t, 200, state["facebook"].Capacity)
	assert.Equal(t, 50, state["instagram"].Capacity)
	assert.Equal(t, 100, state["threads"].Capacity)
}

func TestBuildBudgetRejectsBadWindow(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.RateLimits["facebook"] = config.RateLimit{Capacity: 1, Window: "soonish"}

	_, err := buildBudget(cfg, clock.NewFake(time.Now()))
	assert.Error(t, err)
}

func TestAuthMiddlewareDisabledPassesThrough(t *testing.T) {
	a := NewAuthService(zap.NewNop(), "", true)
	assert.False(t, a.enabled, "auth without a secret stays disabled")

	a = NewAuthService(zap.NewNop(), "SECRET", false)
	assert.False(t, a.enabled)
}
