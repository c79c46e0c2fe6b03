// Package metrics provides build metrics for vaultsite.
//
// Components receive a Recorder through dependency injection. NoopRecorder is the
// default; PrometheusRecorder is activated by the metrics.enabled config switch and
// can export its registry as a node_exporter textfile after each build:
//
//	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
//	report, err := build.NewRunner(cfg, build.WithRecorder(rec)).Run(ctx)
//	_ = rec.WriteTextfile(cfg.Metrics.Textfile)
package metrics
