// Package cli holds the admin command-line tools that talk to the
// reputation HTTP API: an HTTP client plus one runner per command.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/reputation/internal/domain/model"
	"github.com/okian/reputation/pkg/logger"
)

// DefaultTimeout bounds each request when no -timeout flag is given.
const DefaultTimeout = 30 * time.Second

// ErrEmptyResponse is returned when the API answers with no usable body.
var ErrEmptyResponse = errors.New("empty response from API")

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// AwardInput is the payload for POST /reputation without the key.
type AwardInput struct {
	Name     string
	Points   int
	Reason   string
	Category string
}

// MemberInput is the payload for PUT /reputation without the key.
type MemberInput struct {
	Name           string
	GitHubUsername string
	AvatarURL      string
}

// Client calls the reputation API with the admin key attached.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a Client. A non-positive timeout selects DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type awardBody struct {
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
	APIKey   string `json:"apiKey"`
}

type memberBody struct {
	Name           string `json:"name"`
	GitHubUsername string `json:"githubUsername,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	APIKey         string `json:"apiKey"`
}

// AddReputation awards (or deducts, for negative points) reputation.
// A result with Success=false is returned as-is; callers decide what it means.
func (c *Client) AddReputation(ctx context.Context, in AwardInput) (model.AwardResult, error) {
	var res model.AwardResult
	err := c.send(ctx, http.MethodPost, "/reputation", awardBody{
		Name:     in.Name,
		Points:   in.Points,
		Reason:   in.Reason,
		Category: in.Category,
		APIKey:   c.apiKey,
	}, &res, "Failed to add reputation")
	return res, err
}

// CreateMember creates a member and returns the stored record.
func (c *Client) CreateMember(ctx context.Context, in MemberInput) (model.Member, error) {
	var m model.Member
	err := c.send(ctx, http.MethodPut, "/reputation", memberBody{
		Name:           in.Name,
		GitHubUsername: in.GitHubUsername,
		AvatarURL:      in.AvatarURL,
		APIKey:         c.apiKey,
	}, &m, "Failed to create member")
	return m, err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, fallback string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debug(ctx, "api call",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := fallback
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
