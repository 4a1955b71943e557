package router

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/models"
)

// Priorities assigned to routes. The default destination always outranks
// specialized ones so duplicate spreading posts there first.
const (
	DefaultPriority     = 10
	SpecializedPriority = 8
)

// Route represents a routing decision for one content item.
type Route struct {
	DestinationID   string `json:"destination_id"`
	DestinationName string `json:"destination_name"`
	Reason          string `json:"reason"`
	Priority        int    `json:"priority"`
}

// Destination is one external publishing target with its acceptance rule.
type Destination struct {
	ID        string
	Name      string
	Platforms []string
	Default   bool
	// Accepts decides whether a specialized destination receives the item.
	// Ignored for the default destination, which accepts everything.
	Accepts Predicate
	Reason  string
}

// Router classifies content items into the set of destinations they must
// reach. Pure function of its input and the static registry.
type Router struct {
	def         Destination
	specialized []Destination
	logger      *zap.Logger
}

func New(destinations []Destination, logger *zap.Logger) (*Router, error) {
	r := &Router{logger: logger}
	seen := make(map[string]bool)

	for _, d := range destinations {
		if d.ID == "" {
			return nil, fmt.Errorf("destination with empty id")
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate destination id %q", d.ID)
		}
		seen[d.ID] = true

		if d.Default {
			if r.def.ID != "" {
				return nil, fmt.Errorf("multiple default destinations: %q and %q", r.def.ID, d.ID)
			}
			r.def = d
			continue
		}
		if d.Accepts == nil {
			return nil, fmt.Errorf("specialized destination %q has no acceptance predicate", d.ID)
		}
		r.specialized = append(r.specialized, d)
	}

	if r.def.ID == "" {
		return nil, fmt.Errorf("no default destination configured")
	}

	return r, nil
}

// Route produces the destination set for a content item. The result is never
// empty and never contains duplicate destination ids.
func (r *Router) Route(src models.ContentSource) []Route {
	routes := []Route{{
		DestinationID:   r.def.ID,
		DestinationName: r.def.Name,
		Reason:          fmt.Sprintf("%s receives all content", r.def.Name),
		Priority:        DefaultPriority,
	}}

	for _, d := range r.specialized {
		if !d.Accepts(src) {
			continue
		}
		reason := d.Reason
		if reason == "" {
			reason = fmt.Sprintf("content matches %s acceptance rules", d.Name)
		}
		routes = append(routes, Route{
			DestinationID:   d.ID,
			DestinationName: d.Name,
			Reason:          reason,
			Priority:        SpecializedPriority,
		})
	}

	r.logger.Debug("Routed content",
		zap.String("source_id", src.SourceID),
		zap.String("name", src.Name),
		zap.Int("destinations", len(routes)))

	return routes
}

// Destination looks up a destination by id.
func (r *Router) Destination(id string) (Destination, bool) {
	if r.def.ID == id {
		return r.def, true
	}
	for _, d := range r.specialized {
		if d.ID == id {
			return d, true
		}
	}
	return Destination{}, false
}

// Destinations returns the full registry, default destination first.
func (r *Router) Destinations() []Destination {
	out := make([]Destination, 0, len(r.specialized)+1)
	out = append(out, r.def)
	out = append(out, r.specialized...)
	return out
}

// ShouldSpreadAcrossDays reports whether duplicated copies of one item must
// be staggered across different days.
func ShouldSpreadAcrossDays(routes []Route) bool {
	return len(routes) > 1
}
