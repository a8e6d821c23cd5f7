package metrics

import "time"

// ResultLabel enumerates tick outcomes for counters.
type ResultLabel string

const (
	// ResultUpdated: the container received a new table of contents.
	ResultUpdated ResultLabel = "updated"
	// ResultUnchanged: the rendered output matched the previous tick.
	ResultUnchanged ResultLabel = "unchanged"
	ResultFailed    ResultLabel = "failed"
	ResultPanic     ResultLabel = "panic"
)

// Stage names used with ObserveStageDuration.
const (
	StageScan    = "scan"
	StageBuild   = "build"
	StageRender  = "render"
	StageReplace = "replace"
)

// Recorder defines observability hooks for refresh ticks.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveTickDuration(d time.Duration)
	IncTickResult(result ResultLabel)
	SetEntries(primary, secondary int)
	IncObserverError(observer string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveTickDuration(time.Duration)          {}
func (NoopRecorder) IncTickResult(ResultLabel)                  {}
func (NoopRecorder) SetEntries(int, int)                        {}
func (NoopRecorder) IncObserverError(string)                    {}
