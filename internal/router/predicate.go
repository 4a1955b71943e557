package router

import (
	"strings"

	"github.com/ok-landscape/syndicate/internal/models"
)

// Predicate decides whether a specialized destination accepts a content item.
// Predicates are pure; new destinations are added by composing these helpers
// rather than scattering string literals through the scheduler.
type Predicate func(models.ContentSource) bool

// AnyOf matches when at least one predicate matches.
func AnyOf(preds ...Predicate) Predicate {
	return func(src models.ContentSource) bool {
		for _, p := range preds {
			if p != nil && p(src) {
				return true
			}
		}
		return false
	}
}

// CategoryIn matches when the source category contains any of the given
// category tags. Matching is case-insensitive substring containment, so a
// source categorized "pure-mathematics/number-theory" matches "number-theory".
func CategoryIn(categories ...string) Predicate {
	lowered := lowerAll(categories)
	return func(src models.ContentSource) bool {
		cat := strings.ToLower(src.Category)
		if cat == "" {
			return false
		}
		for _, c := range lowered {
			if strings.Contains(cat, c) {
				return true
			}
		}
		return false
	}
}

// RequiresCapability matches on a capability flag of the source.
// Known capabilities: "symbolic-math", "computation", "rendered-figures".
func RequiresCapability(name string) Predicate {
	return func(src models.ContentSource) bool {
		switch name {
		case "symbolic-math":
			return src.UsesSymbolicMath
		case "computation":
			return src.UsesComputation
		case "rendered-figures":
			return src.HasRenderedFigures
		default:
			return false
		}
	}
}

// KeywordMatch matches when any keyword occurs in the source's name,
// description, tags or category.
func KeywordMatch(keywords ...string) Predicate {
	lowered := lowerAll(keywords)
	return func(src models.ContentSource) bool {
		searchable := strings.ToLower(strings.Join([]string{
			src.Name,
			src.Description,
			src.Category,
			strings.Join(src.Tags, " "),
		}, " "))
		for _, k := range lowered {
			if strings.Contains(searchable, k) {
				return true
			}
		}
		return false
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
