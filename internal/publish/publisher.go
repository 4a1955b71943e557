package publish

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Request is the rendered content handed to a platform publisher. The body,
// link and media reference are opaque; publishers only transport them.
type Request struct {
	DestinationID string
	Platform      string
	Body          string
	Hashtags      []string
	Link          string
	MediaPath     string
	AltText       string
	ContentID     string
	SourceID      string
}

// Result classifies the outcome of a publish operation. Transient failures
// (network errors, server errors, generic API failures) are retried by the
// dispatcher; terminal ones are surfaced to the operator.
type Result struct {
	Success     bool      `json:"success"`
	PostID      string    `json:"post_id,omitempty"`
	Transient   bool      `json:"transient,omitempty"`
	Err         error     `json:"-"`
	PublishedAt time.Time `json:"published_at"`
}

// Succeeded builds a success result.
func Succeeded(postID string, at time.Time) Result {
	return Result{Success: true, PostID: postID, PublishedAt: at}
}

// TransientFailure builds a retryable failure result.
func TransientFailure(err error) Result {
	return Result{Success: false, Transient: true, Err: err}
}

// TerminalFailure builds a non-retryable failure result.
func TerminalFailure(err error) Result {
	return Result{Success: false, Transient: false, Err: err}
}

// Publisher is the per-platform publish boundary.
type Publisher interface {
	Platform() string
	ValidateCredentials(ctx context.Context) error
	Publish(ctx context.Context, req Request) Result
}

// Registry holds the registered platform publishers.
type Registry struct {
	publishers map[string]Publisher
	logger     *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		publishers: make(map[string]Publisher),
		logger:     logger,
	}
}

func (r *Registry) Register(p Publisher) error {
	platform := p.Platform()
	if _, exists := r.publishers[platform]; exists {
		return fmt.Errorf("publisher for platform %s already registered", platform)
	}
	r.publishers[platform] = p
	r.logger.Info("Publisher registered", zap.String("platform", platform))
	return nil
}

func (r *Registry) For(platform string) (Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

func (r *Registry) Platforms() []string {
	out := make([]string, 0, len(r.publishers))
	for platform := range r.publishers {
		out = append(out, platform)
	}
	return out
}

// ValidateAll checks credentials for every registered publisher and returns
// the per-platform outcome. Used for startup diagnostics only.
func (r *Registry) ValidateAll(ctx context.Context) map[string]error {
	results := make(map[string]error, len(r.publishers))
	for platform, p := range r.publishers {
		results[platform] = p.ValidateCredentials(ctx)
	}
	return results
}
