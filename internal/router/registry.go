package router

import (
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/config"
)

// FromConfig builds the destination registry from the operator configuration.
func FromConfig(cfgs []config.DestinationConfig, logger *zap.Logger) (*Router, error) {
	dests := make([]Destination, 0, len(cfgs))

	for _, c := range cfgs {
		d := Destination{
			ID:        c.ID,
			Name:      c.Name,
			Platforms: c.Platforms,
			Default:   c.Default,
		}

		if !c.Default {
			var preds []Predicate
			if len(c.Categories) > 0 {
				preds = append(preds, CategoryIn(c.Categories...))
			}
			for _, cap := range c.Capabilities {
				preds = append(preds, RequiresCapability(cap))
			}
			if len(c.Keywords) > 0 {
				preds = append(preds, KeywordMatch(c.Keywords...))
			}
			if len(preds) > 0 {
				d.Accepts = AnyOf(preds...)
			}
		}

		dests = append(dests, d)
	}

	return New(dests, logger)
}
