// Package bridge implements the relay bridge client. The bridge is the
// primary delivery tier and the remote persistence backend: it archives
// every successful firing and stores the directive set and settings.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/errors"
	"github.com/jpetree331/continuum/internal/httpclient"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/schedule"
)

// Client talks to the relay bridge HTTP API
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	log     *zap.SugaredLogger
}

// NewClient creates a client for the configured bridge endpoint
func NewClient(cfg config.BridgeConfig, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpclient.New(timeout),
		log:     log,
	}
}

// Configured reports whether a bridge endpoint is set
func (c *Client) Configured() bool { return c.baseURL != "" }

// Trigger fires a directive through the bridge. The bridge delivers the
// prompt, archives the exchange, and returns the agent's response text.
func (c *Client) Trigger(ctx context.Context, target, prompt, directiveID string) (string, error) {
	payload := map[string]string{
		"thread_id":   target,
		"prompt":      prompt,
		"schedule_id": directiveID,
	}

	var decoded struct {
		EntryID  string `json:"entry_id"`
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/continuum/journal/trigger", payload, &decoded); err != nil {
		return "", err
	}
	return decoded.Response, nil
}

// Schedules fetches the directive set stored on the bridge
func (c *Client) Schedules(ctx context.Context) ([]schedule.Directive, error) {
	var directives []schedule.Directive
	if err := c.getJSON(ctx, "/continuum/schedules", nil, &directives); err != nil {
		return nil, err
	}
	return directives, nil
}

// SaveSchedules replaces the directive set stored on the bridge
func (c *Client) SaveSchedules(ctx context.Context, directives []schedule.Directive) error {
	return c.putJSON(ctx, "/continuum/schedules", directives)
}

// Settings fetches the runtime settings stored on the bridge
func (c *Client) Settings(ctx context.Context) (config.Settings, error) {
	var settings config.Settings
	if err := c.getJSON(ctx, "/continuum/settings", nil, &settings); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// SaveSettings replaces the runtime settings stored on the bridge
func (c *Client) SaveSettings(ctx context.Context, settings config.Settings) error {
	return c.putJSON(ctx, "/continuum/settings", settings)
}

// ArchiveQuery filters the bridge-side journal archive
type ArchiveQuery struct {
	DirectiveID string
	ThreadID    string
	ModelID     string
	From        time.Time // zero = unbounded
	To          time.Time // zero = unbounded
	Skip        int
	Limit       int
}

// ArchiveEntry is one archived exchange on the bridge
type ArchiveEntry struct {
	ID          string `json:"id"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	Metadata    struct {
		ScheduleID string `json:"schedule_id"`
		ThreadID   string `json:"thread_id"`
		Source     string `json:"source"`
	} `json:"metadata"`
	CreatedAt string `json:"created_at"`
}

// ToJournalEntry maps an archived exchange onto the local journal shape.
// Archived entries are always settled successes by construction.
func (a ArchiveEntry) ToJournalEntry() journal.Entry {
	createdAt, err := time.Parse(time.RFC3339, a.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}
	return journal.Entry{
		ID:          a.ID,
		CreatedAt:   createdAt,
		DirectiveID: a.Metadata.ScheduleID,
		Prompt:      a.UserMessage,
		Response:    a.AIResponse,
		Status:      journal.StatusSuccess,
		Archived:    true,
	}
}

// ArchivePage is one page of archive results
type ArchivePage struct {
	Entries []ArchiveEntry `json:"entries"`
	Count   int            `json:"count"`
	HasMore bool           `json:"has_more"`
}

// ArchiveEntries queries the bridge-side journal archive
func (c *Client) ArchiveEntries(ctx context.Context, q ArchiveQuery) (ArchivePage, error) {
	params := url.Values{}
	if q.DirectiveID != "" {
		params.Set("schedule_id", q.DirectiveID)
	}
	if q.ThreadID != "" {
		params.Set("thread_id", q.ThreadID)
	}
	if q.ModelID != "" {
		params.Set("model_id", q.ModelID)
	}
	if !q.From.IsZero() {
		params.Set("from_date", q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to_date", q.To.Format(time.RFC3339))
	}
	if q.Skip > 0 {
		params.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var page ArchivePage
	if err := c.getJSON(ctx, "/continuum/journal/entries", params, &page); err != nil {
		return ArchivePage{}, err
	}
	return page, nil
}

// Thread is a conversation known to the bridge
type Thread struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Threads lists conversations available as directive targets
func (c *Client) Threads(ctx context.Context, skip, limit int) ([]Thread, error) {
	params := url.Values{}
	if skip > 0 {
		params.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var decoded struct {
		Threads []Thread `json:"threads"`
	}
	if err := c.getJSON(ctx, "/continuum/threads", params, &decoded); err != nil {
		return nil, err
	}
	return decoded.Threads, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %s", path)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) putJSON(ctx context.Context, path string, payload interface{}) error {
	return c.sendJSON(ctx, http.MethodPut, path, payload, nil)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encoding payload for %s", path)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "building request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapBackendUnavailable(err, fmt.Sprintf("bridge %s %s", req.Method, req.URL.Path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.WrapBackendUnavailable(
			errors.Newf("bridge returned %s", resp.Status),
			fmt.Sprintf("bridge %s %s", req.Method, req.URL.Path))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding bridge response for %s", req.URL.Path)
	}
	return nil
}
