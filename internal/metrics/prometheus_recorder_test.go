package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("parse", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("parse", ResultSuccess)
	pr.IncBuildOutcome("success")
	pr.IncDocumentResult(ResultSuccess)
	pr.IncDocumentResult(ResultSuccess)
	pr.ObserveEmitterDuration("content_page", time.Millisecond, true)
	pr.AddArtifacts("content_page", 3, 1)
	pr.SetBrokenLinks(2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
	if got := testutil.ToFloat64(pr.documentResults.WithLabelValues("success")); got != 2 {
		t.Errorf("document results = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pr.artifacts.WithLabelValues("content_page", "written")); got != 3 {
		t.Errorf("written artifacts = %v, want 3", got)
	}
	if got := testutil.ToFloat64(pr.brokenLinks); got != 2 {
		t.Errorf("broken links = %v, want 2", got)
	}
}

func TestPrometheusRecorderTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome("warning")

	path := filepath.Join(t.TempDir(), "vaultsite.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `vaultsite_build_outcomes_total{outcome="warning"} 1`) {
		t.Errorf("textfile missing build outcome:\n%s", data)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncBuildOutcome("success")
	pr.SetBrokenLinks(1)
	pr.AddArtifacts("x", 1, 1)
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncDocumentResult(ResultError)
	r.ObserveEmitterDuration("x", time.Second, false)
}
