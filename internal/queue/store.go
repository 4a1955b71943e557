package queue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/models"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

// Store is the persisted, time-and-priority-ordered collection of pending
// scheduled copies. All mutations go through a single mutex and are written
// to the Persister before the in-memory queue changes; a persistence failure
// fails the mutation rather than letting memory and storage drift apart.
type Store struct {
	mu        sync.Mutex
	items     []models.QueuedContent
	persister Persister
	clock     clock.Clock
	logger    *zap.Logger
}

func NewStore(p Persister, clk clock.Clock, logger *zap.Logger) (*Store, error) {
	items, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	s := &Store{
		items:     items,
		persister: p,
		clock:     clk,
		logger:    logger,
	}
	s.sortLocked()

	logger.Info("Queue store initialized", zap.Int("items", len(items)))
	return s, nil
}

// Enqueue inserts a single copy into the queue.
func (s *Store) Enqueue(item models.QueuedContent) error {
	return s.EnqueueBatch([]models.QueuedContent{item})
}

// EnqueueBatch inserts multiple copies, persisting before returning.
func (s *Store) EnqueueBatch(items []models.QueuedContent) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.items))
	for _, it := range s.items {
		existing[it.ContentID] = true
	}
	for _, it := range items {
		if it.ContentID == "" {
			return fmt.Errorf("queued content without content id")
		}
		if existing[it.ContentID] {
			return fmt.Errorf("duplicate content id %s in queue", it.ContentID)
		}
		existing[it.ContentID] = true
	}

	if err := s.persister.Insert(items); err != nil {
		return err
	}

	s.items = append(s.items, items...)
	s.sortLocked()

	s.logger.Info("Enqueued content", zap.Int("count", len(items)), zap.Int("total", len(s.items)))
	return nil
}

// Due returns all items whose scheduled time lies in [now, now+within],
// inclusive, in queue order. Items with an unset scheduled time are skipped
// and logged, never fatal.
func (s *Store) Due(within time.Duration) []models.QueuedContent {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	cutoff := now.Add(within)

	var due []models.QueuedContent
	for _, item := range s.items {
		if item.ScheduledAt.IsZero() {
			s.logger.Error("Queued content has no scheduled time, skipping",
				zap.String("content_id", item.ContentID))
			continue
		}
		if !item.ScheduledAt.Before(now) && !item.ScheduledAt.After(cutoff) {
			due = append(due, item)
		}
	}

	return due
}

// Remove deletes a copy by content id. Idempotent; returns false when the id
// is not queued.
func (s *Store) Remove(contentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(contentID)
	if idx < 0 {
		s.logger.Warn("Content not found in queue", zap.String("content_id", contentID))
		return false, nil
	}

	if err := s.persister.Delete(contentID); err != nil {
		return false, err
	}

	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return true, nil
}

// MarkPosted atomically removes the copy from the queue and appends a
// posting history record. This is the only successful exit from the queue.
func (s *Store) MarkPosted(item models.QueuedContent, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(item.ContentID)
	if idx < 0 {
		return fmt.Errorf("content %s not found in queue", item.ContentID)
	}

	rec := models.PostingHistoryRecord{
		ContentID:        item.ContentID,
		ContentType:      item.ContentType,
		SourceID:         item.SourceID,
		DestinationID:    item.DestinationID,
		DestinationName:  item.DestinationName,
		Platform:         item.Platform,
		PostID:           postID,
		ScheduledAt:      item.ScheduledAt,
		PostedAt:         s.clock.Now(),
		IsDuplicate:      item.IsDuplicate,
		DuplicateGroupID: item.DuplicateGroupID,
	}

	if err := s.persister.MarkPosted(item.ContentID, rec); err != nil {
		return err
	}

	s.items = append(s.items[:idx], s.items[idx+1:]...)

	s.logger.Info("Marked content as posted",
		zap.String("content_id", item.ContentID),
		zap.String("destination", item.DestinationName),
		zap.String("post_id", postID))
	return nil
}

// Reschedule moves a copy to a new time, preserving the sort invariant.
func (s *Store) Reschedule(contentID string, newTime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(contentID)
	if idx < 0 {
		s.logger.Warn("Content not found for rescheduling", zap.String("content_id", contentID))
		return false, nil
	}

	if err := s.persister.UpdateScheduledAt(contentID, newTime); err != nil {
		return false, err
	}

	s.items[idx].ScheduledAt = newTime
	s.sortLocked()

	s.logger.Info("Rescheduled content",
		zap.String("content_id", contentID),
		zap.Time("new_time", newTime))
	return true, nil
}

// ByDateRange returns queued copies scheduled within [start, end], inclusive.
func (s *Store) ByDateRange(start, end time.Time) []models.QueuedContent {
	return s.filter(func(item models.QueuedContent) bool {
		return !item.ScheduledAt.Before(start) && !item.ScheduledAt.After(end)
	})
}

// ByDestination returns all queued copies for one destination.
func (s *Store) ByDestination(destinationID string) []models.QueuedContent {
	return s.filter(func(item models.QueuedContent) bool {
		return item.DestinationID == destinationID
	})
}

// ByType returns all queued copies of one content type.
func (s *Store) ByType(contentType string) []models.QueuedContent {
	return s.filter(func(item models.QueuedContent) bool {
		return item.ContentType == contentType
	})
}

// DailySchedule returns the copies scheduled on one calendar day, keyed by
// destination id.
func (s *Store) DailySchedule(date time.Time) map[string][]models.QueuedContent {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	byDest := make(map[string][]models.QueuedContent)
	for _, item := range s.ByDateRange(start, end) {
		byDest[item.DestinationID] = append(byDest[item.DestinationID], item)
	}
	return byDest
}

// Items returns a snapshot of the queue in sorted order.
func (s *Store) Items() []models.QueuedContent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.QueuedContent, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of queued copies.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// RecentlyPublished returns posting history for the last N days, optionally
// filtered by platform.
func (s *Store) RecentlyPublished(platform string, days int) ([]models.PostingHistoryRecord, error) {
	since := s.clock.Now().AddDate(0, 0, -days)
	recs, err := s.persister.History(since)
	if err != nil {
		return nil, err
	}
	if platform == "" {
		return recs, nil
	}

	filtered := make([]models.PostingHistoryRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.Platform == platform {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

func (s *Store) filter(keep func(models.QueuedContent) bool) []models.QueuedContent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.QueuedContent
	for _, item := range s.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Store) indexLocked(contentID string) int {
	for i, item := range s.items {
		if item.ContentID == contentID {
			return i
		}
	}
	return -1
}

// sortLocked restores the queue invariant: scheduled time ascending, equal
// times ordered by priority descending.
func (s *Store) sortLocked() {
	sort.SliceStable(s.items, func(i, j int) bool {
		a, b := s.items[i], s.items[j]
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return a.Priority > b.Priority
	})
}
