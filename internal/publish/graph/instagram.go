package graph

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/publish"
)

// Instagram publishes image posts through the container flow on a business
// account. Instagram mandates media: a copy without a usable image is a
// terminal failure, retrying cannot fix it.
type Instagram struct {
	client    *client
	accountID string
	logger    *zap.Logger
}

func NewInstagram(cfg Config, logger *zap.Logger) *Instagram {
	return &Instagram{
		client:    newClient(cfg, logger),
		accountID: cfg.InstagramAccountID,
		logger:    logger,
	}
}

func (i *Instagram) Platform() string { return "instagram" }

func (i *Instagram) ValidateCredentials(ctx context.Context) error {
	if i.accountID == "" {
		return fmt.Errorf("instagram account id not configured")
	}
	endpoint := fmt.Sprintf("%s/%s?fields=username&access_token=%s",
		i.client.cfg.BaseURL, url.PathEscape(i.accountID),
		url.QueryEscape(i.client.cfg.AccessToken))

	var resp struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := i.client.get(ctx, endpoint, &resp); err != nil {
		return err
	}
	if resp.ID == "" {
		return fmt.Errorf("instagram account lookup returned no id")
	}
	return nil
}

func (i *Instagram) Publish(ctx context.Context, req publish.Request) publish.Result {
	imageURL, ok := publicMediaURL(req.MediaPath)
	if !ok {
		err := fmt.Errorf("instagram requires publicly hosted media, got %q", req.MediaPath)
		i.logger.Error("Instagram publish rejected",
			zap.String("content_id", req.ContentID),
			zap.Error(err))
		return publish.TerminalFailure(err)
	}
	if i.accountID == "" {
		return publish.TerminalFailure(fmt.Errorf("instagram account id not configured"))
	}

	caption := composeMessage(req.Body, req.Link, req.Hashtags)

	// Step 1: create the media container
	createEndpoint := fmt.Sprintf("%s/%s/media", i.client.cfg.BaseURL, url.PathEscape(i.accountID))
	form := url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {i.client.cfg.AccessToken},
	}

	var container idResponse
	if err := i.client.postForm(ctx, createEndpoint, form, &container); err != nil {
		return i.failure(req, "container creation", err)
	}
	if container.ID == "" {
		return i.failure(req, "container creation",
			fmt.Errorf("no container id returned"))
	}

	// Step 2: publish the container
	publishEndpoint := fmt.Sprintf("%s/%s/media_publish", i.client.cfg.BaseURL, url.PathEscape(i.accountID))
	publishForm := url.Values{
		"creation_id":  {container.ID},
		"access_token": {i.client.cfg.AccessToken},
	}

	var published idResponse
	if err := i.client.postForm(ctx, publishEndpoint, publishForm, &published); err != nil {
		return i.failure(req, "container publish", err)
	}

	i.logger.Info("Published to Instagram",
		zap.String("content_id", req.ContentID),
		zap.String("post_id", published.ID))

	return publish.Succeeded(published.ID, nowUTC())
}

func (i *Instagram) failure(req publish.Request, stage string, err error) publish.Result {
	i.logger.Error("Instagram publish failed",
		zap.String("content_id", req.ContentID),
		zap.String("stage", stage),
		zap.Error(err))
	if retryable(err) {
		return publish.TransientFailure(err)
	}
	return publish.TerminalFailure(err)
}

// publicMediaURL accepts only media references that Instagram can fetch
// itself, i.e. http(s) URLs. Local paths cannot be uploaded directly.
func publicMediaURL(mediaPath string) (string, bool) {
	if strings.HasPrefix(mediaPath, "http://") || strings.HasPrefix(mediaPath, "https://") {
		return mediaPath, true
	}
	return "", false
}
