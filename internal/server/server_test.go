package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nbtoc/internal/document"
	"git.home.luguber.info/inful/nbtoc/internal/history"
	"git.home.luguber.info/inful/nbtoc/internal/metrics"
	"git.home.luguber.info/inful/nbtoc/internal/refresh"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

func newFixture(t *testing.T, headings ...toc.Heading) (*refresh.Refresher, *document.Memory, *httptest.Server, *Hub) {
	t.Helper()
	doc := document.NewMemory(headings...)
	reg := prom.NewRegistry()
	store, err := history.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hub := NewHub()
	r := refresh.New(doc, doc, refresh.Options{}).
		WithRecorder(metrics.NewPrometheusRecorder(reg)).
		WithHistory(store).
		WithObservers(hub)

	srv := httptest.NewServer(New(r, Options{Registry: reg, History: store, Hub: hub}).Handler())
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return r, doc, srv, hub
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var b strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&b)
	require.NoError(t, err)
	return resp, b.String()
}

func TestServer_NotReady(t *testing.T) {
	_, _, srv, _ := newFixture(t)

	resp, body := get(t, srv.URL+"/toc")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "not built yet")

	resp, body = get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status": "starting"`)
}

func TestServer_TOC(t *testing.T) {
	r, doc, srv, _ := newFixture(t, toc.Heading{ID: "h-a", Level: toc.LevelPrimary, Content: "Intro"})
	out, err := r.Tick(context.Background())
	require.NoError(t, err)

	resp, body := get(t, srv.URL+"/toc")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(doc.Content()), body)
	assert.Equal(t, `"`+out.Fingerprint+`"`, resp.Header.Get("ETag"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/toc", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", resp.Header.Get("ETag"))
	cached, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = cached.Body.Close()
	assert.Equal(t, http.StatusNotModified, cached.StatusCode)

	resp, body = get(t, srv.URL+"/toc.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var payload TOCResponse
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, out.Fingerprint, payload.Fingerprint)
	require.Len(t, payload.Tree.Entries, 1)
	assert.Equal(t, "toc-h1-1", payload.Tree.Entries[0].ListKey)
	assert.NotContains(t, body, `"revision"`, "untracked documents carry no revision")
}

func TestServer_HealthDegraded(t *testing.T) {
	r, doc, srv, _ := newFixture(t, toc.Heading{ID: "h-a", Level: toc.LevelPrimary, Content: "Intro"})
	_, err := r.Tick(context.Background())
	require.NoError(t, err)

	doc.SetHeadings(toc.Heading{ID: "h-b", Level: toc.LevelSecondary, Content: "Orphan"})
	_, err = r.Tick(context.Background())
	require.Error(t, err)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, uint64(2), health.Ticks)
	assert.Equal(t, string(metrics.ResultFailed), health.LastResult)

	// The previous table of contents is still served.
	resp, _ = get(t, srv.URL+"/toc")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_HealthFailing(t *testing.T) {
	r, _, srv, _ := newFixture(t, toc.Heading{Level: toc.LevelPrimary, Content: "no id"})
	_, err := r.Tick(context.Background())
	require.Error(t, err)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `"status": "failing"`)

	resp, body = get(t, srv.URL+"/toc")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "identifier")
}

func TestServer_HistoryAndMetrics(t *testing.T) {
	r, _, srv, _ := newFixture(t, toc.Heading{ID: "h-a", Level: toc.LevelPrimary, Content: "Intro"})
	for range 3 {
		_, err := r.Tick(context.Background())
		require.NoError(t, err)
	}

	resp, body := get(t, srv.URL+"/history?limit=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, string(metrics.ResultUnchanged), entries[0].Result)

	resp, _ = get(t, srv.URL+"/history?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `nbtoc_tick_results_total{result="unchanged"} 2`)
}

func TestServer_OptionalRoutesAbsent(t *testing.T) {
	doc := document.NewMemory()
	srv := httptest.NewServer(New(refresh.New(doc, doc, refresh.Options{}), Options{}).Handler())
	defer srv.Close()

	for _, path := range []string{"/events", "/metrics", "/history"} {
		resp, _ := get(t, srv.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestServer_StartStop(t *testing.T) {
	doc := document.NewMemory()
	hub := NewHub()
	s := New(refresh.New(doc, doc, refresh.Options{}), Options{Addr: "127.0.0.1:0", Hub: hub})
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
