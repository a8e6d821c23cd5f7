package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("bad heading").Build(), 2},
		{"config", ConfigError("bad config").Build(), 7},
		{"document", DocumentError("container missing").Build(), 11},
		{"network", NetworkError("nats down").Build(), 8},
		{"unclassified", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var logs bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))

	var out bytes.Buffer
	code := adapter.Report(&out, DocumentError("container not found").WithContext("container", "toc").Build())

	if code != 11 {
		t.Errorf("expected exit code 11, got %d", code)
	}
	if !strings.Contains(out.String(), "container not found") {
		t.Errorf("expected message in output, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "container=toc") {
		t.Errorf("expected context in log, got %q", logs.String())
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/toc", nil)
	adapter.WriteErrorResponse(rec, req, DocumentError("no tick has completed yet").Build())

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var payload HTTPErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != string(CategoryDocument) || !payload.Retryable {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)

	if got := adapter.StatusCodeFor(NewError(CategoryNotFound, "missing").Build()); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}
	if got := adapter.StatusCodeFor(errors.New("x")); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
}
