package output

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"mailstack/internal/probe"
)

// MetricsSink writes a node_exporter textfile-collector file on Close.
type MetricsSink struct {
	path string
	reg  *prom.Registry
	mu   sync.Mutex
	run  string
	now  func() time.Time

	checkStatus *prom.GaugeVec
	results     *prom.GaugeVec
	ready       *prom.GaugeVec
	lastRun     *prom.GaugeVec
}

func NewMetricsSink(path string) (*MetricsSink, error) {
	if path == "" {
		return nil, fmt.Errorf("metrics path required")
	}
	reg := prom.NewRegistry()
	s := &MetricsSink{
		path: path,
		reg:  reg,
		run:  "check",
		now:  time.Now,
		checkStatus: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "mailstack",
			Name:      "check_status",
			Help:      "Check outcome: 0 pass, 1 warn, 2 fail",
		}, []string{"run", "check"}),
		results: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "mailstack",
			Name:      "check_results",
			Help:      "Number of check results by status in the last run",
		}, []string{"run", "status"}),
		ready: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "mailstack",
			Name:      "ready",
			Help:      "1 when the last run had no failing checks",
		}, []string{"run"}),
		lastRun: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "mailstack",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}, []string{"run"}),
	}
	reg.MustRegister(s.checkStatus, s.results, s.ready, s.lastRun)
	return s, nil
}

func statusValue(st probe.Status) float64 {
	switch st {
	case probe.StatusWarn:
		return 1
	case probe.StatusFail:
		return 2
	default:
		return 0
	}
}

func (s *MetricsSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case Event:
		if t.Run != "" {
			s.run = t.Run
		}
		if t.Type != EventRunFinished || t.Verdict == nil {
			return nil
		}
		s.results.WithLabelValues(s.run, string(probe.StatusPass)).Set(float64(t.Verdict.Pass))
		s.results.WithLabelValues(s.run, string(probe.StatusWarn)).Set(float64(t.Verdict.Warn))
		s.results.WithLabelValues(s.run, string(probe.StatusFail)).Set(float64(t.Verdict.Fail))
		ready := 0.0
		if t.Verdict.OK {
			ready = 1
		}
		s.ready.WithLabelValues(s.run).Set(ready)
		s.lastRun.WithLabelValues(s.run).Set(float64(s.now().Unix()))
	case probe.Result:
		s.checkStatus.WithLabelValues(s.run, t.CheckID).Set(statusValue(t.Status))
	}
	return nil
}

func (s *MetricsSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := prom.WriteToTextfile(s.path, s.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
