package metrics

import "time"

// ResultLabel enumerates stage and document result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultError    ResultLabel = "error"
	ResultFatal    ResultLabel = "fatal"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for build, stage and emitter metrics.
// Implementations must tolerate being called from multiple goroutines.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|warning|failed|canceled
	IncDocumentResult(result ResultLabel)
	ObserveEmitterDuration(emitter string, d time.Duration, success bool)
	AddArtifacts(emitter string, written, unchanged int)
	SetBrokenLinks(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                 {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                 {}
func (NoopRecorder) IncBuildOutcome(string)                             {}
func (NoopRecorder) IncDocumentResult(ResultLabel)                      {}
func (NoopRecorder) ObserveEmitterDuration(string, time.Duration, bool) {}
func (NoopRecorder) AddArtifacts(string, int, int)                      {}
func (NoopRecorder) SetBrokenLinks(int)                                 {}
