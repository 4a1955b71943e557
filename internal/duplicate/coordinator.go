package duplicate

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/config"
	"github.com/ok-landscape/syndicate/internal/router"
)

const maxHashtags = 10

// Entry is one staggered copy of a duplicated content item.
type Entry struct {
	DestinationID   string    `json:"destination_id"`
	DestinationName string    `json:"destination_name"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Original        bool      `json:"original"`
}

// Plan is the staggered schedule for content routed to one or more
// destinations. GroupID is empty when the plan holds a single entry.
type Plan struct {
	BaseTime time.Time `json:"base_time"`
	Entries  []Entry   `json:"entries"`
	GroupID  string    `json:"group_id,omitempty"`
}

// IsDuplicate reports whether the plan fans out to multiple destinations.
func (p Plan) IsDuplicate() bool { return len(p.Entries) > 1 }

// Voice is the audience tailoring applied to one destination's copies.
type Voice struct {
	// Framing lines by content type, one is prepended to the shared body.
	Framing  map[string][]string
	AddTags  []string
	DropTags []string
}

// Coordinator staggers duplicated content across days and tailors the copy
// per destination so the same item never reads byte-identical everywhere.
type Coordinator struct {
	minDayGap int
	voices    map[string]Voice
	rand      *rand.Rand
	logger    *zap.Logger
}

func NewCoordinator(minDayGap int, voices map[string]Voice, logger *zap.Logger) *Coordinator {
	if minDayGap <= 0 {
		minDayGap = 2
	}
	if voices == nil {
		voices = map[string]Voice{}
	}
	return &Coordinator{
		minDayGap: minDayGap,
		voices:    voices,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logger,
	}
}

// VoicesFromConfig extracts per-destination tailoring from the registry config.
func VoicesFromConfig(cfgs []config.DestinationConfig) map[string]Voice {
	voices := make(map[string]Voice, len(cfgs))
	for _, c := range cfgs {
		voices[c.ID] = Voice{
			Framing:  c.Framing,
			AddTags:  c.AddTags,
			DropTags: c.DropTags,
		}
	}
	return voices
}

// MinDayGap returns the configured minimum spacing in days.
func (c *Coordinator) MinDayGap() int { return c.minDayGap }

// Schedule produces the staggered plan for one logical content item. Routes
// are ordered by priority descending; the highest-priority route keeps the
// base time and each following route lands minDayGap days later. All entries
// of a multi-route plan share a freshly generated group id.
func (c *Coordinator) Schedule(routes []router.Route, baseTime time.Time) Plan {
	if len(routes) == 0 {
		return Plan{BaseTime: baseTime}
	}

	if len(routes) == 1 {
		return Plan{
			BaseTime: baseTime,
			Entries: []Entry{{
				DestinationID:   routes[0].DestinationID,
				DestinationName: routes[0].DestinationName,
				ScheduledAt:     baseTime,
				Original:        true,
			}},
		}
	}

	sorted := make([]router.Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	entries := make([]Entry, 0, len(sorted))
	current := baseTime
	for i, r := range sorted {
		entries = append(entries, Entry{
			DestinationID:   r.DestinationID,
			DestinationName: r.DestinationName,
			ScheduledAt:     current,
			Original:        i == 0,
		})
		current = current.AddDate(0, 0, c.minDayGap)
	}

	plan := Plan{
		BaseTime: baseTime,
		Entries:  entries,
		GroupID:  uuid.NewString(),
	}

	c.logger.Debug("Created duplicate schedule",
		zap.String("group_id", plan.GroupID),
		zap.Int("destinations", len(entries)),
		zap.Int("min_day_gap", c.minDayGap))

	return plan
}

// TailorMessage prepends a destination framing line to the shared body text.
// The body itself is never altered.
func (c *Coordinator) TailorMessage(base, destinationID, contentType string) string {
	voice, ok := c.voices[destinationID]
	if !ok || len(voice.Framing) == 0 {
		return base
	}

	pool := voice.Framing[contentType]
	if len(pool) == 0 {
		// Fall back to any configured pool for this destination
		for _, p := range voice.Framing {
			pool = p
			break
		}
	}
	if len(pool) == 0 {
		return base
	}

	prefix := pool[c.rand.Intn(len(pool))]
	return prefix + "\n\n" + base
}

// AdjustHashtags front-inserts the destination's tags, strips tags deemed
// off-topic for it, and truncates to the platform-safe maximum.
func (c *Coordinator) AdjustHashtags(base []string, destinationID string) []string {
	voice := c.voices[destinationID]

	drop := make(map[string]bool, len(voice.DropTags))
	for _, t := range voice.DropTags {
		drop[t] = true
	}

	present := make(map[string]bool, len(base)+len(voice.AddTags))
	tags := make([]string, 0, len(base)+len(voice.AddTags))

	for _, t := range voice.AddTags {
		if !present[t] {
			present[t] = true
			tags = append(tags, t)
		}
	}
	for _, t := range base {
		if drop[t] || present[t] {
			continue
		}
		present[t] = true
		tags = append(tags, t)
	}

	if len(tags) > maxHashtags {
		tags = tags[:maxHashtags]
	}
	return tags
}
