package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ok-landscape/syndicate/internal/models"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

func TestStatistics(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	soon := item("soon", now.Add(2*time.Hour), 5)
	thisWeek := item("this-week", now.AddDate(0, 0, 3), 5)
	thisWeek.ContentType = models.ContentTypeNotebook
	thisWeek.Platform = "threads"
	farOut := item("far-out", now.AddDate(0, 0, 10), 5)
	farOut.IsDuplicate = true
	farOut.DuplicateGroupID = "group-1"

	require.NoError(t, s.EnqueueBatch([]models.QueuedContent{soon, thisWeek, farOut}))

	stats := s.Statistics()
	assert.Equal(t, 3, stats.TotalQueued)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.DueNext24h)
	assert.Equal(t, 2, stats.DueNext7d)
	assert.Equal(t, 2, stats.ByContentType[models.ContentTypeDocument])
	assert.Equal(t, 1, stats.ByContentType[models.ContentTypeNotebook])
	assert.Equal(t, 2, stats.ByPlatform["facebook"])
	assert.Equal(t, 1, stats.ByPlatform["threads"])
}

func TestValidateNoSameDayDuplicates(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := testStore(t, clock.NewFake(now))

	a := item("copy-a", now.Add(time.Hour), 5)
	a.SourceID = "src-1"
	a.IsDuplicate = true
	a.DuplicateGroupID = "group-1"

	b := item("copy-b", now.Add(2*time.Hour), 5)
	b.SourceID = "src-1"
	b.DestinationID = "algebra"
	b.IsDuplicate = true
	b.DuplicateGroupID = "group-1"

	require.NoError(t, s.EnqueueBatch([]models.QueuedContent{a, b}))

	warnings := s.ValidateNoSameDayDuplicates()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "group-1")

	// Moving one copy to another day clears the warning
	_, err := s.Reschedule("copy-b", now.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Empty(t, s.ValidateNoSameDayDuplicates())
}
