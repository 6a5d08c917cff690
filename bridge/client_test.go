package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/errors"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/schedule"
)

func newTestClient(url string) *Client {
	return NewClient(config.BridgeConfig{URL: url + "/", APIKey: "bridge-key"}, 5*time.Second, zap.NewNop().Sugar())
}

func TestTrigger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/continuum/journal/trigger", r.URL.Path)
		assert.Equal(t, "Bearer bridge-key", r.Header.Get("Authorization"))
		assert.Equal(t, "bridge-key", r.Header.Get("X-API-Key"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "thread-1", payload["thread_id"])
		assert.Equal(t, "dir-1", payload["schedule_id"])

		json.NewEncoder(w).Encode(map[string]string{
			"entry_id": "e1",
			"response": "archived and answered",
		})
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Trigger(context.Background(), "thread-1", "prompt", "dir-1")
	require.NoError(t, err)
	assert.Equal(t, "archived and answered", text)
}

func TestTriggerBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Trigger(context.Background(), "t", "p", "d")
	require.Error(t, err)
	assert.True(t, errors.IsBackendUnavailable(err))
}

func TestSchedulesRoundTrip(t *testing.T) {
	d := schedule.NewDirective("weekly", schedule.ModeSpecific)
	d.AtTime = "09:00"
	d.OnDays = []int{2}
	d.Prompt = "p"
	stored, err := json.Marshal([]*schedule.Directive{d})
	require.NoError(t, err)

	var gotPut []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/continuum/schedules", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.Write(stored)
		case http.MethodPut:
			gotPut, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	directives, err := c.Schedules(context.Background())
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Equal(t, d.ID, directives[0].ID)
	assert.Equal(t, []int{2}, directives[0].OnDays)

	require.NoError(t, c.SaveSchedules(context.Background(), directives))
	assert.Contains(t, string(gotPut), `"type":"specific"`)
}

func TestSettingsRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/continuum/settings", r.URL.Path)
		w.Write([]byte(`{"agent":{"base_url":"http://localhost:8080","api_key":"k"}}`))
	}))
	defer srv.Close()

	settings, err := newTestClient(srv.URL).Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", settings.Agent.BaseURL)
	assert.True(t, settings.Agent.Configured())
}

func TestArchiveEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/continuum/journal/entries", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "dir-1", q.Get("schedule_id"))
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, "50", q.Get("skip"))

		w.Write([]byte(`{
			"entries": [{
				"id": "e1",
				"user_message": "the prompt",
				"ai_response": "the answer",
				"metadata": {"schedule_id": "dir-1", "thread_id": "t1", "source": "continuum"},
				"created_at": "2026-03-03T09:00:00Z"
			}],
			"count": 1,
			"has_more": true
		}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).ArchiveEntries(context.Background(), ArchiveQuery{
		DirectiveID: "dir-1",
		Skip:        50,
		Limit:       25,
	})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.True(t, page.HasMore)

	entry := page.Entries[0].ToJournalEntry()
	assert.Equal(t, journal.StatusSuccess, entry.Status)
	assert.True(t, entry.Archived)
	assert.Equal(t, "dir-1", entry.DirectiveID)
	assert.Equal(t, 2026, entry.CreatedAt.Year())
}

func TestThreads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/continuum/threads", r.URL.Path)
		w.Write([]byte(`{"threads":[{"id":"t1","title":"General"}]}`))
	}))
	defer srv.Close()

	threads, err := newTestClient(srv.URL).Threads(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "General", threads[0].Title)
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient(config.BridgeConfig{}, time.Second, zap.NewNop().Sugar()).Configured())
	assert.True(t, newTestClient("http://localhost:9999").Configured())
}
