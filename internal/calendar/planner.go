package calendar

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/duplicate"
	"github.com/ok-landscape/syndicate/internal/models"
	"github.com/ok-landscape/syndicate/internal/router"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

// ThemeAny is the wildcard theme: any source qualifies.
const ThemeAny = "any"

// SourcePool supplies the candidate content sources; satisfied by the
// content catalog.
type SourcePool interface {
	Sources() []models.ContentSource
}

type Config struct {
	HorizonDays   int
	PostsPerDay   int
	RecencyWindow int
	// OptimalTimes maps platform to an ordered list of "HH:MM" clock times;
	// slots cycle through the list.
	OptimalTimes map[string][]string
	// Themes maps weekday to the category tags favored on that day.
	Themes map[time.Weekday][]string
}

// DefaultThemes is the rotating day-of-week theme table.
func DefaultThemes() map[time.Weekday][]string {
	return map[time.Weekday][]string{
		time.Monday:    {"physics", "quantum-physics", "astrophysics"},
		time.Tuesday:   {"mathematics", "numerical-analysis", "algebra"},
		time.Wednesday: {"machine-learning", "computer-science", "ai"},
		time.Thursday:  {"engineering", "robotics", "control-theory"},
		time.Friday:    {"biology", "chemistry", "bioinformatics"},
		time.Saturday:  {ThemeAny},
		time.Sunday:    {ThemeAny},
	}
}

// ThemesFromConfig converts the weekday-name keyed config table. Unknown
// weekday names are an error; missing days fall back to the defaults.
func ThemesFromConfig(cfg map[string][]string) (map[time.Weekday][]string, error) {
	themes := DefaultThemes()
	names := map[string]time.Weekday{
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
		"sunday":    time.Sunday,
	}
	for name, tags := range cfg {
		day, ok := names[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q in theme table", name)
		}
		themes[day] = tags
	}
	return themes, nil
}

// Planner fills the planning horizon: per day and destination it selects
// themed, non-recent sources, assigns optimal time slots and expands each
// selection through the duplicate coordinator.
type Planner struct {
	cfg         Config
	pool        SourcePool
	router      *router.Router
	coordinator *duplicate.Coordinator
	recent      *recencyWindow
	clock       clock.Clock
	rand        *rand.Rand
	logger      *zap.Logger
}

func NewPlanner(cfg Config, pool SourcePool, rt *router.Router, coord *duplicate.Coordinator, clk clock.Clock, logger *zap.Logger) *Planner {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 7
	}
	if cfg.PostsPerDay <= 0 {
		cfg.PostsPerDay = 2
	}
	if len(cfg.Themes) == 0 {
		cfg.Themes = DefaultThemes()
	}
	return &Planner{
		cfg:         cfg,
		pool:        pool,
		router:      rt,
		coordinator: coord,
		recent:      newRecencyWindow(cfg.RecencyWindow),
		clock:       clk,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger,
	}
}

// SeedRecency pre-populates the recency windows from posting history so a
// restart does not immediately repeat recently published sources.
func (p *Planner) SeedRecency(recs []models.PostingHistoryRecord) {
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		if rec.SourceID == "" {
			continue
		}
		p.recent.Record(recencyKey(rec.DestinationID, rec.Platform), rec.SourceID)
	}
}

// PlanHorizon produces queue-ready copies for a contiguous range of days
// starting at start. Slots that cannot be filled are skipped, never fatal;
// the scheduler degrades to fewer posts.
func (p *Planner) PlanHorizon(start time.Time, days int) []models.QueuedContent {
	if days <= 0 {
		days = p.cfg.HorizonDays
	}

	var out []models.QueuedContent

	for offset := 0; offset < days; offset++ {
		date := start.AddDate(0, 0, offset)
		themes := p.cfg.Themes[date.Weekday()]
		if len(themes) == 0 {
			themes = []string{ThemeAny}
		}

		for _, dest := range p.router.Destinations() {
			platforms := dest.Platforms
			if len(platforms) == 0 {
				platforms = []string{"facebook"}
			}
			for _, platform := range platforms {
				for slot := 0; slot < p.cfg.PostsPerDay; slot++ {
					src, routes, ok := p.selectSource(themes, dest.ID, platform)
					if !ok {
						p.logger.Warn("No candidate source for slot",
							zap.String("destination", dest.ID),
							zap.String("platform", platform),
							zap.Time("date", date),
							zap.Strings("themes", themes))
						continue
					}

					baseTime := p.slotTime(date, platform, slot)
					out = append(out, p.expand(src, routes, baseTime, platform)...)
				}
			}
		}
	}

	p.logger.Info("Planned horizon",
		zap.Time("start", start),
		zap.Int("days", days),
		zap.Int("items", len(out)))

	return out
}

// selectSource picks a themed source not seen in the recency window and
// routed to the given destination. When the window has exhausted the pool it
// is cleared and selection retries against every source.
func (p *Planner) selectSource(themes []string, destinationID, platform string) (models.ContentSource, []router.Route, bool) {
	key := recencyKey(destinationID, platform)

	candidates := p.candidates(themes, key)
	if len(candidates) == 0 {
		p.recent.Clear(key)
		candidates = p.pool.Sources()
	}

	for len(candidates) > 0 {
		i := p.rand.Intn(len(candidates))
		src := candidates[i]
		candidates = append(candidates[:i], candidates[i+1:]...)

		routes := p.router.Route(src)
		if !routedTo(routes, destinationID) {
			// Source does not belong on this destination, try another
			continue
		}
		return src, routes, true
	}

	return models.ContentSource{}, nil, false
}

func (p *Planner) candidates(themes []string, key string) []models.ContentSource {
	var out []models.ContentSource
	for _, src := range p.pool.Sources() {
		if !matchesTheme(src, themes) {
			continue
		}
		if p.recent.Contains(key, src.SourceID) {
			continue
		}
		out = append(out, src)
	}
	return out
}

// expand runs one selection through the duplicate coordinator and builds the
// finished queue copies, tailored per destination.
func (p *Planner) expand(src models.ContentSource, routes []router.Route, baseTime time.Time, platform string) []models.QueuedContent {
	plan := p.coordinator.Schedule(routes, baseTime)
	priority := p.priorityFor(src)
	now := p.clock.Now()

	items := make([]models.QueuedContent, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		entryPlatform := p.platformFor(entry.DestinationID, platform)

		items = append(items, models.QueuedContent{
			ContentID:        uuid.NewString(),
			ContentType:      src.ContentType,
			DestinationID:    entry.DestinationID,
			DestinationName:  entry.DestinationName,
			Platform:         entryPlatform,
			Body:             p.coordinator.TailorMessage(src.Body, entry.DestinationID, src.ContentType),
			Hashtags:         p.coordinator.AdjustHashtags(src.Hashtags, entry.DestinationID),
			Link:             src.Link,
			MediaPath:        src.MediaPath,
			AltText:          src.AltText,
			SourceID:         src.SourceID,
			Category:         src.Category,
			ScheduledAt:      entry.ScheduledAt,
			Priority:         priority,
			IsDuplicate:      plan.IsDuplicate(),
			DuplicateGroupID: plan.GroupID,
			CreatedAt:        now,
		})

		p.recent.Record(recencyKey(entry.DestinationID, entryPlatform), src.SourceID)
	}

	return items
}

// priorityFor scores a source: base value plus bonuses for complexity,
// rendered media and specialized computation, clamped to 10.
func (p *Planner) priorityFor(src models.ContentSource) int {
	priority := 5

	if src.Complexity >= 4 {
		priority += 2
	} else if src.Complexity >= 3 {
		priority++
	}
	if src.HasRenderedFigures {
		priority++
	}
	if src.UsesSymbolicMath || src.UsesComputation {
		priority++
	}

	if priority > 10 {
		priority = 10
	}
	return priority
}

// slotTime combines the day with the platform's optimal clock times, cycling
// through the list by slot index.
func (p *Planner) slotTime(date time.Time, platform string, slot int) time.Time {
	times := p.cfg.OptimalTimes[platform]
	if len(times) == 0 {
		times = []string{"10:00"}
	}

	spec := times[slot%len(times)]
	parsed, err := time.Parse("15:04", spec)
	if err != nil {
		p.logger.Error("Invalid optimal time in configuration",
			zap.String("platform", platform),
			zap.String("time", spec))
		parsed, _ = time.Parse("15:04", "10:00")
	}

	return time.Date(date.Year(), date.Month(), date.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, date.Location())
}

func (p *Planner) platformFor(destinationID, fallback string) string {
	dest, ok := p.router.Destination(destinationID)
	if !ok || len(dest.Platforms) == 0 {
		return fallback
	}
	for _, pl := range dest.Platforms {
		if pl == fallback {
			return pl
		}
	}
	return dest.Platforms[0]
}

func matchesTheme(src models.ContentSource, themes []string) bool {
	category := strings.ToLower(src.Category)
	for _, theme := range themes {
		if theme == ThemeAny || theme == "mixed" {
			return true
		}
		if strings.Contains(category, strings.ToLower(theme)) {
			return true
		}
	}
	return false
}

func routedTo(routes []router.Route, destinationID string) bool {
	for _, r := range routes {
		if r.DestinationID == destinationID {
			return true
		}
	}
	return false
}

func recencyKey(destinationID, platform string) string {
	return destinationID + "|" + platform
}
