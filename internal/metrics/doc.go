// Package metrics provides build observability hooks.
//
// Components receive a Recorder and never check for nil: NoopRecorder is the
// default, PrometheusRecorder is swapped in when a metrics textfile is
// configured.
//
//	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
//	p := pipeline.New(cfg, pipeline.WithRecorder(rec))
//	...
//	_ = rec.WriteTextfile(cfg.Metrics.Textfile)
package metrics
