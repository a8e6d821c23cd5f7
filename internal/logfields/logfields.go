package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTickID      = "tick_id"
	KeyTrigger     = "trigger"
	KeyResult      = "result"
	KeyDurationMS  = "duration_ms"
	KeyDocument    = "document"
	KeyContainer   = "container"
	KeyPrimary     = "primary_entries"
	KeySecondary   = "secondary_entries"
	KeyFingerprint = "fingerprint"
	KeyPath        = "path"
	KeySubject     = "subject"
	KeyAddr        = "addr"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyRemoteAddr  = "remote_addr"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func TickID(id string) slog.Attr      { return slog.String(KeyTickID, id) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }
func Result(r string) slog.Attr       { return slog.String(KeyResult, r) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Document(d string) slog.Attr     { return slog.String(KeyDocument, d) }
func Container(c string) slog.Attr    { return slog.String(KeyContainer, c) }
func Primary(n int) slog.Attr         { return slog.Int(KeyPrimary, n) }
func Secondary(n int) slog.Attr       { return slog.Int(KeySecondary, n) }
func Fingerprint(f string) slog.Attr  { return slog.String(KeyFingerprint, f) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
