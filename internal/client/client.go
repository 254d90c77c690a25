package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/heartline/internal/analysis"
	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/transcript"
	"github.com/lazypower/heartline/internal/trigger"
)

// DefaultTimeout covers a chat round trip, which includes two generator
// calls on the server.
const DefaultTimeout = 90 * time.Second

// Client talks to a heartline server.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Chat sends one message and returns the server's result.
func (c *Client) Chat(ctx context.Context, userName, message string) (*engine.ChatResult, error) {
	body, err := json.Marshal(map[string]string{"user_name": userName, "message": message})
	if err != nil {
		return nil, fmt.Errorf("encode chat: %w", err)
	}
	var res engine.ChatResult
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Analyze runs detection on the server without changing state.
func (c *Client) Analyze(ctx context.Context, message string) (*trigger.Analysis, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("encode analyze: %w", err)
	}
	var a trigger.Analysis
	if err := c.do(ctx, http.MethodPost, "/api/analyze", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Status fetches a user's relationship status.
func (c *Client) Status(ctx context.Context, user string) (*engine.Status, error) {
	var st engine.Status
	if err := c.do(ctx, http.MethodGet, userPath(user, ""), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// History fetches up to limit recent turns, oldest first.
func (c *Client) History(ctx context.Context, user string, limit int) ([]transcript.Turn, error) {
	var out struct {
		Turns []transcript.Turn `json:"turns"`
	}
	path := userPath(user, "/history")
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Turns, nil
}

// EmotionStats fetches a user's emotion statistics.
func (c *Client) EmotionStats(ctx context.Context, user string) (*analysis.Stats, error) {
	var st analysis.Stats
	if err := c.do(ctx, http.MethodGet, userPath(user, "/emotions/stats"), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Reset clears all state for a user.
func (c *Client) Reset(ctx context.Context, user string) error {
	return c.do(ctx, http.MethodPost, userPath(user, "/reset"), nil, nil)
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil) == nil
}

func userPath(user, suffix string) string {
	return "/api/users/" + url.PathEscape(user) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}
