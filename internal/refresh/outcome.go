package refresh

import (
	"time"

	"git.home.luguber.info/inful/nbtoc/internal/metrics"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// Trigger records why a tick ran.
type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerWatch  Trigger = "watch"
	TriggerManual Trigger = "manual"
)

// Outcome is the result of one tick.
type Outcome struct {
	TickID      string              `json:"tick_id"`
	Trigger     Trigger             `json:"trigger"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration_ns"`
	Result      metrics.ResultLabel `json:"result"`
	Tree        *toc.Tree           `json:"tree,omitempty"`
	Rendered    []byte              `json:"-"`
	Fingerprint string              `json:"fingerprint,omitempty"`
	Primary     int                 `json:"primary_entries"`
	Secondary   int                 `json:"secondary_entries"`
	// Changed is true when the rendered output differs from the previous
	// successful tick.
	Changed bool `json:"changed"`
	// Written is true when the container was rewritten. A container edited
	// behind our back is rewritten without the output changing.
	Written bool `json:"written"`
	// Revision is the git commit of the document, when tracked.
	Revision string `json:"revision,omitempty"`
	Err      error  `json:"-"`
}

// Succeeded reports whether the tick produced a table of contents.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Err == nil
}

// ErrorMessage returns the tick error text, or "".
func (o *Outcome) ErrorMessage() string {
	if o == nil || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
