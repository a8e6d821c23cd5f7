package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"TickID", KeyTickID, "t-1", TickID("t-1")},
		{"Trigger", KeyTrigger, "schedule", Trigger("schedule")},
		{"Result", KeyResult, "success", Result("success")},
		{"Document", KeyDocument, "nb.html", Document("nb.html")},
		{"Container", KeyContainer, "toc", Container("toc")},
		{"Fingerprint", KeyFingerprint, "abc", Fingerprint("abc")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Subject", KeySubject, "nbtoc.toc", Subject("nbtoc.toc")},
		{"Addr", KeyAddr, ":8731", Addr(":8731")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"RemoteAddr", KeyRemoteAddr, "127.0.0.1:5000", RemoteAddr("127.0.0.1:5000")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if v := Primary(3); v.Key != KeyPrimary || v.Value.Int64() != 3 {
		t.Fatalf("Primary mismatch: %v", v)
	}
	if v := Secondary(2); v.Key != KeySecondary {
		t.Fatalf("Secondary key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	if attr := Error(nil); attr.Key != KeyError || attr.Value.String() != "" {
		t.Fatalf("unexpected nil error attr: %v", attr)
	}
	if attr := Error(errors.New("err-test")); attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}
