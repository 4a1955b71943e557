package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/models"
)

// Catalog holds the content sources prepared by the external authoring
// pipeline. The index file is written upstream; this system only reads it.
type Catalog struct {
	sources []models.ContentSource
	logger  *zap.Logger
}

// Load reads the content index from disk. Sources without a source id are
// dropped with a warning rather than failing the whole load.
func Load(path string, logger *zap.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content index %s: %w", path, err)
	}

	var sources []models.ContentSource
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse content index %s: %w", path, err)
	}

	valid := make([]models.ContentSource, 0, len(sources))
	for _, src := range sources {
		if src.SourceID == "" {
			logger.Warn("Content source without source_id, skipping", zap.String("name", src.Name))
			continue
		}
		valid = append(valid, src)
	}

	logger.Info("Content catalog loaded",
		zap.String("path", path),
		zap.Int("sources", len(valid)))

	return &Catalog{sources: valid, logger: logger}, nil
}

// New wraps an already-materialized source list; used by tests and by
// callers that fetch the index elsewhere.
func New(sources []models.ContentSource) *Catalog {
	return &Catalog{sources: sources, logger: zap.NewNop()}
}

// Sources returns all catalogued content sources.
func (c *Catalog) Sources() []models.ContentSource {
	out := make([]models.ContentSource, len(c.sources))
	copy(out, c.sources)
	return out
}

// Len returns the number of catalogued sources.
func (c *Catalog) Len() int { return len(c.sources) }
