package queue

import (
	"fmt"
	"time"
)

// Statistics is the aggregate view of the queue used for observability.
type Statistics struct {
	TotalQueued   int            `json:"total_queued"`
	ByContentType map[string]int `json:"by_content_type"`
	ByDestination map[string]int `json:"by_destination"`
	ByPlatform    map[string]int `json:"by_platform"`
	Duplicates    int            `json:"duplicates"`
	DueNext24h    int            `json:"due_next_24h"`
	DueNext7d     int            `json:"due_next_7d"`
}

// Statistics aggregates counts over the current queue.
func (s *Store) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Statistics{
		TotalQueued:   len(s.items),
		ByContentType: make(map[string]int),
		ByDestination: make(map[string]int),
		ByPlatform:    make(map[string]int),
	}

	now := s.clock.Now()
	dayCutoff := now.Add(24 * time.Hour)
	weekCutoff := now.Add(7 * 24 * time.Hour)

	for _, item := range s.items {
		stats.ByContentType[item.ContentType]++
		stats.ByDestination[item.DestinationName]++
		stats.ByPlatform[item.Platform]++

		if item.IsDuplicate {
			stats.Duplicates++
		}

		if item.ScheduledAt.IsZero() {
			continue
		}
		if !item.ScheduledAt.Before(now) && !item.ScheduledAt.After(dayCutoff) {
			stats.DueNext24h++
		}
		if !item.ScheduledAt.Before(now) && !item.ScheduledAt.After(weekCutoff) {
			stats.DueNext7d++
		}
	}

	return stats
}

// ValidateNoSameDayDuplicates flags duplicate groups with more than one
// member scheduled on the same calendar day. Diagnostic only; violations are
// reported, not rejected, since upstream rescheduling may need correction
// after the fact.
func (s *Store) ValidateNoSameDayDuplicates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := make(map[string][]int)
	for i, item := range s.items {
		if item.IsDuplicate && item.DuplicateGroupID != "" {
			groups[item.DuplicateGroupID] = append(groups[item.DuplicateGroupID], i)
		}
	}

	var warnings []string
	for groupID, idxs := range groups {
		byDay := make(map[string][]string)
		for _, i := range idxs {
			item := s.items[i]
			if item.ScheduledAt.IsZero() {
				continue
			}
			day := item.ScheduledAt.Format("2006-01-02")
			byDay[day] = append(byDay[day], item.SourceID)
		}

		for day, sources := range byDay {
			if len(sources) > 1 {
				warnings = append(warnings, fmt.Sprintf(
					"duplicate content %q (group %s) scheduled %d times on %s",
					sources[0], groupID, len(sources), day))
			}
		}
	}

	return warnings
}
