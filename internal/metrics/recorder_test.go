package metrics

import (
	"testing"
	"time"
)

type testRecorder struct {
	stageDurations map[string]int
	tickDurations  int
	results        map[ResultLabel]int
	primary        int
	secondary      int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{stageDurations: map[string]int{}, results: map[ResultLabel]int{}}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	t.stageDurations[stage]++
}
func (t *testRecorder) ObserveTickDuration(_ time.Duration) { t.tickDurations++ }
func (t *testRecorder) IncTickResult(r ResultLabel)         { t.results[r]++ }
func (t *testRecorder) SetEntries(p, s int)                 { t.primary, t.secondary = p, s }
func (t *testRecorder) IncObserverError(string)             {}

func TestRecorderInterfaces(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)

	r := newTestRecorder()
	var rec Recorder = r
	rec.ObserveStageDuration(StageBuild, time.Millisecond)
	rec.ObserveTickDuration(time.Millisecond)
	rec.IncTickResult(ResultFailed)
	rec.SetEntries(2, 1)

	if r.stageDurations[StageBuild] != 1 || r.tickDurations != 1 {
		t.Fatalf("durations not recorded: %+v", r)
	}
	if r.results[ResultFailed] != 1 {
		t.Fatalf("expected one failed result, got %d", r.results[ResultFailed])
	}
	if r.primary != 2 || r.secondary != 1 {
		t.Fatalf("entries = %d/%d, want 2/1", r.primary, r.secondary)
	}
}
