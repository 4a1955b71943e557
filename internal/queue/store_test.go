package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/models"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

func testStore(t *testing.T, clk clock.Clock) *Store {
	t.Helper()

	p, err := NewFilePersister(t.TempDir())
	require.NoError(t, err)

	s, err := NewStore(p, clk, zap.NewNop())
	require.NoError(t, err)
	return s
}

func item(contentID string, at time.Time, priority int) models.QueuedContent {
	return models.QueuedContent{
		ContentID:     contentID,
		ContentType:   models.ContentTypeDocument,
		DestinationID: "general",
		Platform:      "facebook",
		Body:          "body",
		ScheduledAt:   at,
		Priority:      priority,
	}
}

func TestEnqueueKeepsTimeThenPriorityOrder(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	late := item("late", now.Add(3*time.Hour), 9)
	earlyLow := item("early-low", now.Add(time.Hour), 5)
	earlyHigh := item("early-high", now.Add(time.Hour), 8)

	require.NoError(t, s.EnqueueBatch([]models.QueuedContent{late, earlyLow, earlyHigh}))

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "early-high", items[0].ContentID, "equal times order by priority descending")
	assert.Equal(t, "early-low", items[1].ContentID)
	assert.Equal(t, "late", items[2].ContentID)
}

func TestEnqueueRejectsDuplicateContentIDs(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	require.NoError(t, s.Enqueue(item("one", now.Add(time.Hour), 5)))
	assert.Error(t, s.Enqueue(item("one", now.Add(2*time.Hour), 5)))
	assert.Error(t, s.Enqueue(item("", now.Add(time.Hour), 5)))
	assert.Equal(t, 1, s.Len())
}

func TestDueWindowIsInclusive(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	require.NoError(t, s.EnqueueBatch([]models.QueuedContent{
		item("at-now", now, 5),
		item("within", now.Add(4*time.Minute), 5),
		item("at-edge", now.Add(5*time.Minute), 5),
		item("beyond", now.Add(6*time.Minute), 5),
	}))

	due := s.Due(5 * time.Minute)
	ids := contentIDs(due)
	assert.Equal(t, []string{"at-now", "within", "at-edge"}, ids)
}

func TestDueSkipsUnscheduledItems(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	require.NoError(t, s.EnqueueBatch([]models.QueuedContent{
		item("scheduled", now, 5),
		item("unscheduled", time.Time{}, 5),
	}))

	due := s.Due(5 * time.Minute)
	assert.Equal(t, []string{"scheduled"}, contentIDs(due))
	assert.Equal(t, 2, s.Len(), "unscheduled item stays queued")
}

func TestMarkPostedMovesItemToHistory(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	s := testStore(t, clk)

	it := item("posted", now, 5)
	it.SourceID = "src-1"
	require.NoError(t, s.Enqueue(it))

	require.NoError(t, s.MarkPosted(it, "fb_123"))
	assert.Equal(t, 0, s.Len())

	recs, err := s.RecentlyPublished("", 30)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "posted", recs[0].ContentID)
	assert.Equal(t, "fb_123", recs[0].PostID)
	assert.Equal(t, "src-1", recs[0].SourceID)
	assert.Equal(t, now, recs[0].PostedAt.UTC())

	// A second attempt for the same item fails: removal and recording are
	// mutually exclusive outcomes for any single copy.
	assert.Error(t, s.MarkPosted(it, "fb_456"))
}

func TestRescheduleRestoresOrdering(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	require.NoError(t, s.EnqueueBatch([]models.QueuedContent{
		item("first", now.Add(time.Hour), 5),
		item("second", now.Add(2*time.Hour), 5),
	}))

	found, err := s.Reschedule("first", now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, []string{"second", "first"}, contentIDs(s.Items()))

	found, err = s.Reschedule("missing", now)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestQueueSurvivesRestart(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	dir := t.TempDir()

	p, err := NewFilePersister(dir)
	require.NoError(t, err)
	s, err := NewStore(p, clk, zap.NewNop())
	require.NoError(t, err)

	queued := item("persistent", now.Add(time.Hour), 7)
	queued.Hashtags = models.StringArray{"Math", "Research"}
	require.NoError(t, s.Enqueue(queued))

	// Fresh persister and store over the same directory
	p2, err := NewFilePersister(dir)
	require.NoError(t, err)
	s2, err := NewStore(p2, clk, zap.NewNop())
	require.NoError(t, err)

	items := s2.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "persistent", items[0].ContentID)
	assert.Equal(t, 7, items[0].Priority)
	assert.Equal(t, models.StringArray{"Math", "Research"}, items[0].Hashtags)
	assert.True(t, queued.ScheduledAt.Equal(items[0].ScheduledAt))
}

func TestRemoveIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	require.NoError(t, s.Enqueue(item("gone", now, 5)))

	found, err := s.Remove("gone")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Remove("gone")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecentlyPublishedFiltersByPlatform(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	s := testStore(t, clk)

	fb := item("fb", now, 5)
	th := item("th", now, 5)
	th.Platform = "threads"
	require.NoError(t, s.EnqueueBatch([]models.QueuedContent{fb, th}))
	require.NoError(t, s.MarkPosted(fb, "p1"))
	require.NoError(t, s.MarkPosted(th, "p2"))

	recs, err := s.RecentlyPublished("threads", 30)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "th", recs[0].ContentID)
}

func contentIDs(items []models.QueuedContent) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ContentID)
	}
	return out
}
