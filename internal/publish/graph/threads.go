package graph

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/publish"
)

// Threads publishes text posts through the two-step Threads flow: create a
// media container, then publish it.
type Threads struct {
	client *client
	logger *zap.Logger
}

func NewThreads(cfg Config, logger *zap.Logger) *Threads {
	return &Threads{
		client: newClient(cfg, logger),
		logger: logger,
	}
}

func (t *Threads) Platform() string { return "threads" }

func (t *Threads) ValidateCredentials(ctx context.Context) error {
	return t.client.validateToken(ctx)
}

func (t *Threads) Publish(ctx context.Context, req publish.Request) publish.Result {
	message := composeMessage(req.Body, req.Link, req.Hashtags)

	// Step 1: create the container
	createEndpoint := fmt.Sprintf("%s/me/threads", t.client.cfg.BaseURL)
	form := url.Values{
		"media_type":   {"TEXT"},
		"text":         {message},
		"access_token": {t.client.cfg.AccessToken},
	}

	var container idResponse
	if err := t.client.postForm(ctx, createEndpoint, form, &container); err != nil {
		return t.failure(req, "container creation", err)
	}
	if container.ID == "" {
		return t.failure(req, "container creation",
			fmt.Errorf("no container id returned"))
	}

	// Step 2: publish it
	publishEndpoint := fmt.Sprintf("%s/me/threads_publish", t.client.cfg.BaseURL)
	publishForm := url.Values{
		"creation_id":  {container.ID},
		"access_token": {t.client.cfg.AccessToken},
	}

	var published idResponse
	if err := t.client.postForm(ctx, publishEndpoint, publishForm, &published); err != nil {
		return t.failure(req, "container publish", err)
	}

	postID := published.ID
	if postID == "" {
		postID = container.ID
	}

	t.logger.Info("Published to Threads",
		zap.String("content_id", req.ContentID),
		zap.String("post_id", postID))

	return publish.Succeeded(postID, nowUTC())
}

func (t *Threads) failure(req publish.Request, stage string, err error) publish.Result {
	t.logger.Error("Threads publish failed",
		zap.String("content_id", req.ContentID),
		zap.String("stage", stage),
		zap.Error(err))
	if retryable(err) {
		return publish.TransientFailure(err)
	}
	return publish.TerminalFailure(err)
}
