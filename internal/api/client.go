package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

// Client is the default HTTP implementation of HeartsAPI, ProgressAPI and
// ContentAPI. It is stateless: auth and retry policy belong to the caller,
// injected via Authorize and the http.Client respectively.
type Client struct {
	baseURL string
	http    *http.Client

	// Authorize, if set, decorates every outgoing request (bearer token,
	// session cookie). Token refresh on 401 is a higher layer's job.
	Authorize func(*http.Request)
}

// NewClient creates a Client for the given base URL. A nil httpClient falls
// back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// FetchHearts returns the current hearts snapshot.
func (c *Client) FetchHearts(ctx context.Context) (HeartsSnapshot, error) {
	var snap HeartsSnapshot
	err := c.do(ctx, http.MethodGet, "/hearts", nil, &snap)
	return snap, err
}

// DecrementHearts reports a failed attempt and returns the updated snapshot.
func (c *Client) DecrementHearts(ctx context.Context, amount int) (HeartsSnapshot, error) {
	var snap HeartsSnapshot
	err := c.do(ctx, http.MethodPost, "/hearts/decrement", map[string]any{"amount": amount}, &snap)
	return snap, err
}

// GrantHearts awards hearts for a recovery action and returns the updated snapshot.
func (c *Client) GrantHearts(ctx context.Context, amount int) (HeartsSnapshot, error) {
	var snap HeartsSnapshot
	err := c.do(ctx, http.MethodPost, "/hearts/grant", map[string]any{"amount": amount}, &snap)
	return snap, err
}

// RefillHearts resets the pool to max and returns the updated snapshot.
func (c *Client) RefillHearts(ctx context.Context) (HeartsSnapshot, error) {
	var snap HeartsSnapshot
	err := c.do(ctx, http.MethodPost, "/hearts/refill", nil, &snap)
	return snap, err
}

// FetchPosition returns the saved flow position for a course.
func (c *Client) FetchPosition(ctx context.Context, courseID string) (FlowPosition, error) {
	var pos FlowPosition
	err := c.do(ctx, http.MethodGet, "/courses/"+courseID+"/position", nil, &pos)
	return pos, err
}

// SavePosition persists the flow position for a course.
func (c *Client) SavePosition(ctx context.Context, courseID string, index int) error {
	return c.do(ctx, http.MethodPut, "/courses/"+courseID+"/position", map[string]any{"current_index": index}, nil)
}

// CompleteSection marks a section as completed.
func (c *Client) CompleteSection(ctx context.Context, sectionID string) error {
	return c.do(ctx, http.MethodPost, "/sections/"+sectionID+"/complete", nil, nil)
}

// CompleteLesson marks a legacy sectionless lesson as completed.
func (c *Client) CompleteLesson(ctx context.Context, lessonID string) error {
	return c.do(ctx, http.MethodPost, "/lessons/"+lessonID+"/complete", nil, nil)
}

// FetchLessons returns the ordered lesson tree with progress flags.
func (c *Client) FetchLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	var lessons []Lesson
	err := c.do(ctx, http.MethodGet, "/courses/"+courseID+"/lessons", nil, &lessons)
	return lessons, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Authorize != nil {
		c.Authorize(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Cap the echoed body so a misbehaving server can't flood logs.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
