package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nbtoc/internal/document"
	"git.home.luguber.info/inful/nbtoc/internal/refresh"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

func connect(t *testing.T, url string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func readUntil(r *bufio.Reader, needle string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if err != nil {
			return false
		}
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

func TestHub_InitialEventCarriesCurrentFingerprint(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()
	hub.Broadcast("abc123")

	srv := httptest.NewServer(hub)
	defer srv.Close()

	reader := connect(t, srv.URL)
	assert.True(t, readUntil(reader, `data: {"fingerprint":"abc123"}`, time.Second))
}

func TestHub_RefresherChangeReachesClients(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	reader := connect(t, srv.URL)
	require.True(t, readUntil(reader, ": connected", time.Second))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	doc := document.NewMemory(toc.Heading{ID: "a", Level: toc.LevelPrimary, Content: "A"})
	r := refresh.New(doc, doc, refresh.Options{}).WithObservers(hub)
	out, err := r.Tick(context.Background())
	require.NoError(t, err)

	assert.True(t, readUntil(reader, out.Fingerprint, time.Second))
}

func TestHub_DuplicateBroadcastIgnored(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	hub.Broadcast("one")
	hub.Broadcast("one")
	hub.Broadcast("")
	assert.Equal(t, "one", hub.lastFingerprint)
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	hub.Shutdown()
	hub.Shutdown()

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHub_Heartbeat(t *testing.T) {
	hub := NewHub()
	hub.heartbeat = 20 * time.Millisecond
	defer hub.Shutdown()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	reader := connect(t, srv.URL)
	assert.True(t, readUntil(reader, ": ping", time.Second))
}
