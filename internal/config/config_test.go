package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 5420, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)

	assert.Equal(t, 7, cfg.Scheduler.HorizonDays)
	assert.Equal(t, 2, cfg.Scheduler.PostsPerDayPerDestination)
	assert.Equal(t, 30, cfg.Scheduler.RecencyWindow)
	assert.Equal(t, "0 0 * * 0", cfg.Scheduler.RefillSpec)
	assert.Equal(t, []string{"09:00", "13:00", "19:00"}, cfg.Scheduler.OptimalTimes["facebook"])
	assert.Equal(t, []string{"11:00", "16:00"}, cfg.Scheduler.OptimalTimes["threads"])

	assert.Equal(t, 2, cfg.Duplicate.MinDayGap)

	assert.Equal(t, "30s", cfg.Dispatcher.PollInterval)
	assert.Equal(t, "1h", cfg.Dispatcher.RescheduleDelay)
	assert.Equal(t, "60s", cfg.Dispatcher.ThrottleBackoff)

	assert.Equal(t, 200, cfg.RateLimits["facebook"].Capacity)
	assert.Equal(t, 50, cfg.RateLimits["instagram"].Capacity)
	assert.Equal(t, 100, cfg.RateLimits["threads"].Capacity)
	assert.Equal(t, "1h", cfg.RateLimits["facebook"].Window)

	assert.Equal(t, "https://graph.facebook.com/v24.0", cfg.Publisher.Graph.BaseURL)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Scheduler.HorizonDays = 14
	cfg.Duplicate.MinDayGap = 3
	cfg.RateLimits = map[string]RateLimit{"facebook": {Capacity: 10, Window: "10m"}}

	ApplyDefaults(cfg)

	assert.Equal(t, 14, cfg.Scheduler.HorizonDays)
	assert.Equal(t, 3, cfg.Duplicate.MinDayGap)
	assert.Equal(t, 10, cfg.RateLimits["facebook"].Capacity)
}

func TestDefaultDestinations(t *testing.T) {
	dests := DefaultDestinations()
	require.Len(t, dests, 2)

	var defaults int
	for _, d := range dests {
		if d.Default {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults, "exactly one default destination ships out of the box")

	specialized := dests[1]
	assert.False(t, specialized.Default)
	assert.NotEmpty(t, specialized.Categories)
	assert.NotEmpty(t, specialized.Keywords)
	assert.NotEmpty(t, specialized.DropTags)
}
