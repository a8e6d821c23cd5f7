// Package metrics provides tick metrics for the table-of-contents refresher.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	r := refresh.New(src, ctr, opts) // NoopRecorder
//	r.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// PrometheusRecorder registers its collectors on the given registry, and
// HTTPHandler exposes that registry for scraping.
package metrics
