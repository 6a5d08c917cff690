// Package agent implements the direct chat-channel client: posting prompts
// straight into an agent conversation when the relay bridge is unavailable.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/errors"
	"github.com/jpetree331/continuum/internal/httpclient"
)

// Target is a conversation a directive can deliver into
type Target struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client talks to the agent chat API
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	log     *zap.SugaredLogger
}

// NewClient creates a client for the configured agent endpoint
func NewClient(cfg config.AgentConfig, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpclient.New(timeout),
		log:     log,
	}
}

// Configured reports whether an agent endpoint is set
func (c *Client) Configured() bool { return c.baseURL != "" }

// ListTargets returns the available conversations, sorted by title
func (c *Client) ListTargets(ctx context.Context) ([]Target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/chats", nil)
	if err != nil {
		return nil, errors.Wrap(err, "building chat list request")
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapBackendUnavailable(err, "listing agent conversations")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WrapBackendUnavailable(
			errors.Newf("agent returned %s", resp.Status), "listing agent conversations")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading chat list response")
	}

	targets, err := decodeTargets(body)
	if err != nil {
		return nil, err
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Title < targets[j].Title })
	return targets, nil
}

// decodeTargets tolerates both a bare array and a {"chats": [...]} envelope,
// and both "title" and "name" for the conversation label.
func decodeTargets(body []byte) ([]Target, error) {
	type rawChat struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Name  string `json:"name"`
	}

	var raw []rawChat
	if err := json.Unmarshal(body, &raw); err != nil {
		var envelope struct {
			Chats []rawChat `json:"chats"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, errors.Wrap(err, "decoding chat list")
		}
		raw = envelope.Chats
	}

	targets := make([]Target, 0, len(raw))
	for _, ch := range raw {
		title := ch.Title
		if title == "" {
			title = ch.Name
		}
		targets = append(targets, Target{ID: ch.ID, Title: title})
	}
	return targets, nil
}

// PostMessage delivers a prompt into a conversation. When contextBlock is
// non-empty it is prepended as a system-context preamble.
//
// Any non-2xx response or transport error is returned as an error, never
// folded into a success-shaped response.
func (c *Client) PostMessage(ctx context.Context, target, prompt, contextBlock string) (string, error) {
	content := prompt
	if contextBlock != "" {
		content = fmt.Sprintf("[SYSTEM CONTEXT: %s]\n\n%s", contextBlock, prompt)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"messages": []map[string]string{
			{"role": "user", "content": content},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding message payload")
	}

	url := fmt.Sprintf("%s/api/v1/chats/%s/messages", c.baseURL, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "building message request")
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.WrapBackendUnavailable(err, "posting to agent conversation")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.WrapBackendUnavailable(
			errors.Newf("agent returned %s", resp.Status), "posting to agent conversation")
	}

	var decoded struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.Content != "" {
		return decoded.Content, nil
	}

	// The message was accepted; the agent replies asynchronously in-thread
	return "Message delivered to agent conversation (response pending in thread)", nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
