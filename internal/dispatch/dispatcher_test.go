package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/models"
	"github.com/ok-landscape/syndicate/internal/publish"
	"github.com/ok-landscape/syndicate/internal/queue"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

type fakePublisher struct {
	platform string
	result   publish.Result
	calls    []publish.Request
}

func (f *fakePublisher) Platform() string { return f.platform }

func (f *fakePublisher) ValidateCredentials(ctx context.Context) error { return nil }

func (f *fakePublisher) Publish(ctx context.Context, req publish.Request) publish.Result {
	f.calls = append(f.calls, req)
	return f.result
}

type fakeRefiller struct {
	items []models.QueuedContent
	calls int
}

func (f *fakeRefiller) PlanHorizon(start time.Time, days int) []models.QueuedContent {
	f.calls++
	return f.items
}

func testConfig() Config {
	return Config{
		PollInterval:    30 * time.Second,
		DueWindow:       5 * time.Minute,
		ThrottleBackoff: 60 * time.Second,
		PublishTimeout:  30 * time.Second,
		RescheduleDelay: time.Hour,
	}
}

func testDispatcher(t *testing.T, clk clock.Clock, pub *fakePublisher, budgets map[string]BudgetConfig) (*Dispatcher, *queue.Store) {
	t.Helper()

	p, err := queue.NewFilePersister(t.TempDir())
	require.NoError(t, err)
	store, err := queue.NewStore(p, clk, zap.NewNop())
	require.NoError(t, err)

	registry := publish.NewRegistry(zap.NewNop())
	require.NoError(t, registry.Register(pub))

	d := New(testConfig(), store, registry, NewBudget(budgets, clk), nil, clk, zap.NewNop())
	d.sleep = func(ctx context.Context, _ time.Duration) bool { return true }
	return d, store
}

func dueItem(contentID string, at time.Time) models.QueuedContent {
	return models.QueuedContent{
		ContentID:     contentID,
		ContentType:   models.ContentTypeDocument,
		DestinationID: "general",
		Platform:      "facebook",
		Body:          "body",
		ScheduledAt:   at,
		Priority:      5,
	}
}

func TestRunOnceSuccessRemovesAndRecords(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	pub := &fakePublisher{platform: "facebook", result: publish.Succeeded("fb_1", now)}
	d, store := testDispatcher(t, clk, pub, nil)

	require.NoError(t, store.Enqueue(dueItem("due", now)))

	d.RunOnce(context.Background())

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "general", pub.calls[0].DestinationID)
	assert.Equal(t, 0, store.Len())

	recs, err := store.RecentlyPublished("", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "fb_1", recs[0].PostID)
}

func TestRunOnceTransientFailureReschedules(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	pub := &fakePublisher{
		platform: "facebook",
		result:   publish.TransientFailure(errors.New("connection reset")),
	}
	d, store := testDispatcher(t, clk, pub, nil)

	scheduled := now.Add(2 * time.Minute)
	original := dueItem("flaky", scheduled)
	require.NoError(t, store.Enqueue(original))

	d.RunOnce(context.Background())

	items := store.Items()
	require.Len(t, items, 1, "transient failure keeps the item queued")
	assert.True(t, items[0].ScheduledAt.Equal(scheduled.Add(time.Hour)),
		"rescheduled one hour after the original slot")
	assert.Equal(t, original.Body, items[0].Body)
	assert.Equal(t, original.Priority, items[0].Priority)
}

func TestRunOnceTerminalFailureLeavesItemUntouched(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	pub := &fakePublisher{
		platform: "facebook",
		result:   publish.TerminalFailure(errors.New("token expired")),
	}
	d, store := testDispatcher(t, clk, pub, nil)

	scheduled := now.Add(time.Minute)
	require.NoError(t, store.Enqueue(dueItem("stuck", scheduled)))

	d.RunOnce(context.Background())

	items := store.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].ScheduledAt.Equal(scheduled), "terminal failure must not reschedule")

	recs, err := store.RecentlyPublished("", 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunOnceThrottledPlatformSkippedAfterBackoff(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	pub := &fakePublisher{platform: "facebook", result: publish.Succeeded("ok", now)}
	d, store := testDispatcher(t, clk, pub, map[string]BudgetConfig{
		"facebook": {Capacity: 1, Window: time.Hour},
	})

	backoffs := 0
	d.sleep = func(ctx context.Context, _ time.Duration) bool {
		backoffs++
		return true
	}

	require.NoError(t, store.EnqueueBatch([]models.QueuedContent{
		dueItem("first", now),
		dueItem("second", now.Add(time.Minute)),
		dueItem("third", now.Add(2*time.Minute)),
	}))

	d.RunOnce(context.Background())

	assert.Len(t, pub.calls, 1, "only the budgeted publish goes through")
	assert.Equal(t, 1, backoffs, "one backoff attempt, then the platform sits out the pass")
	assert.Equal(t, 2, store.Len())
}

func TestRunOnceSkipsPlatformWithoutPublisher(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	pub := &fakePublisher{platform: "facebook", result: publish.Succeeded("ok", now)}
	d, store := testDispatcher(t, clk, pub, nil)

	orphan := dueItem("orphan", now)
	orphan.Platform = "threads"
	require.NoError(t, store.Enqueue(orphan))

	d.RunOnce(context.Background())

	assert.Empty(t, pub.calls)
	assert.Equal(t, 1, store.Len(), "item needs operator attention, stays queued")
}

func TestRefillHorizonEnqueuesPlannedItems(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	pub := &fakePublisher{platform: "facebook", result: publish.Succeeded("ok", now)}
	d, store := testDispatcher(t, clk, pub, nil)

	refiller := &fakeRefiller{items: []models.QueuedContent{
		dueItem("planned-1", now.AddDate(0, 0, 1)),
		dueItem("planned-2", now.AddDate(0, 0, 2)),
	}}
	d.refiller = refiller

	d.RefillHorizon()

	assert.Equal(t, 1, refiller.calls)
	assert.Equal(t, 2, store.Len())
}
