package graph

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/publish"
)

// Facebook publishes to a Facebook page feed via the Graph API. The
// destination id is the page id; copies with local media go through the
// photos edge, the rest through the feed edge.
type Facebook struct {
	client *client
	logger *zap.Logger
}

func NewFacebook(cfg Config, logger *zap.Logger) *Facebook {
	return &Facebook{
		client: newClient(cfg, logger),
		logger: logger,
	}
}

func (f *Facebook) Platform() string { return "facebook" }

func (f *Facebook) ValidateCredentials(ctx context.Context) error {
	return f.client.validateToken(ctx)
}

func (f *Facebook) Publish(ctx context.Context, req publish.Request) publish.Result {
	token, err := f.client.pageToken(ctx, req.DestinationID)
	if err != nil {
		f.logger.Error("Failed to resolve page token",
			zap.String("page_id", req.DestinationID),
			zap.Error(err))
		if retryable(err) {
			return publish.TransientFailure(err)
		}
		return publish.TerminalFailure(err)
	}

	message := composeMessage(req.Body, req.Link, req.Hashtags)

	var resp idResponse
	if req.MediaPath != "" && fileExists(req.MediaPath) {
		endpoint := fmt.Sprintf("%s/%s/photos", f.client.cfg.BaseURL, url.PathEscape(req.DestinationID))
		fields := url.Values{
			"message":      {message},
			"access_token": {token},
		}
		if req.AltText != "" {
			fields.Set("alt_text_custom", req.AltText)
		}
		err = f.client.postFile(ctx, endpoint, "source", req.MediaPath, fields, &resp)
	} else {
		endpoint := fmt.Sprintf("%s/%s/feed", f.client.cfg.BaseURL, url.PathEscape(req.DestinationID))
		form := url.Values{
			"message":      {message},
			"access_token": {token},
		}
		if req.Link != "" {
			form.Set("link", req.Link)
		}
		err = f.client.postForm(ctx, endpoint, form, &resp)
	}

	if err != nil {
		f.logger.Error("Facebook publish failed",
			zap.String("content_id", req.ContentID),
			zap.String("page_id", req.DestinationID),
			zap.Error(err))
		if retryable(err) {
			return publish.TransientFailure(err)
		}
		return publish.TerminalFailure(err)
	}

	postID := resp.PostID
	if postID == "" {
		postID = resp.ID
	}

	f.logger.Info("Published to Facebook",
		zap.String("content_id", req.ContentID),
		zap.String("page_id", req.DestinationID),
		zap.String("post_id", postID))

	return publish.Succeeded(postID, nowUTC())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
