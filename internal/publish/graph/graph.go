package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config carries the Graph API connection settings shared by the
// facebook, threads and instagram publishers.
type Config struct {
	BaseURL            string
	AccessToken        string
	InstagramAccountID string
	Timeout            time.Duration
}

// graphError is the error envelope the Graph API returns on failure.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type idResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type pageTokenResponse struct {
	AccessToken string `json:"access_token"`
	ID          string `json:"id"`
}

// apiError wraps a non-2xx Graph API response so callers can classify it.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("graph api error (status %d): %s", e.StatusCode, e.Message)
}

// retryable reports whether a publish error is worth retrying later.
// Network errors and server-side failures are; auth failures are not.
func retryable(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.StatusCode != http.StatusUnauthorized && ae.StatusCode != http.StatusForbidden
	}
	return true
}

// client is the shared Graph API transport. Page access tokens are fetched
// on demand and cached per page.
type client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	mu         sync.Mutex
	pageTokens map[string]string
}

func newClient(cfg Config, logger *zap.Logger) *client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v24.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		cfg:        cfg,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		pageTokens: make(map[string]string),
	}
}

// pageToken resolves the page-scoped access token for a page id, caching
// the result. Pages publish with their own token, not the user token.
func (c *client) pageToken(ctx context.Context, pageID string) (string, error) {
	c.mu.Lock()
	if token, ok := c.pageTokens[pageID]; ok {
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/%s?fields=access_token&access_token=%s",
		c.cfg.BaseURL, url.PathEscape(pageID), url.QueryEscape(c.cfg.AccessToken))

	var resp pageTokenResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch page token for %s: %w", pageID, err)
	}
	if resp.AccessToken == "" {
		return "", &apiError{StatusCode: http.StatusForbidden, Message: "page returned no access token"}
	}

	c.mu.Lock()
	c.pageTokens[pageID] = resp.AccessToken
	c.mu.Unlock()

	return resp.AccessToken, nil
}

func (c *client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

// postFile uploads a local media file as a multipart form together with the
// given fields.
func (c *client) postFile(ctx context.Context, endpoint, fieldName, filePath string, fields url.Values, out any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open media file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fieldName, filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy media file: %w", err)
	}
	for key, values := range fields {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				return fmt.Errorf("failed to write form field: %w", err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ge graphError
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &ge) == nil && ge.Error.Message != "" {
			message = ge.Error.Message
		}
		return &apiError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// validateToken checks the configured user token against /me.
func (c *client) validateToken(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/me?access_token=%s",
		c.cfg.BaseURL, url.QueryEscape(c.cfg.AccessToken))

	var resp idResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return err
	}
	if resp.ID == "" {
		return fmt.Errorf("token validation returned no identity")
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }

// composeMessage joins the body with rendered hashtags and an optional link.
func composeMessage(body, link string, hashtags []string) string {
	parts := []string{strings.TrimSpace(body)}

	if len(hashtags) > 0 {
		rendered := make([]string, 0, len(hashtags))
		for _, tag := range hashtags {
			rendered = append(rendered, "#"+strings.TrimPrefix(tag, "#"))
		}
		parts = append(parts, strings.Join(rendered, " "))
	}
	if link != "" {
		parts = append(parts, link)
	}

	return strings.Join(parts, "\n\n")
}
