package output

import (
	"errors"
	"fmt"

	"mailstack/internal/probe"
	"mailstack/internal/scorer"
)

// Sink defines a destination for check results and lifecycle events.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager coordinates writing results to multiple sinks.
type Manager struct {
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Write(v any) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

// WriteRun streams a complete run: run.started, every result in report order,
// then run.finished with the verdict.
func (m *Manager) WriteRun(run string, rep probe.Report, v scorer.Verdict, exitCode int) error {
	var errs []error
	if err := m.Write(Event{Type: EventRunStarted, Run: run, Checks: len(rep.Results)}); err != nil {
		errs = append(errs, err)
	}
	for _, r := range rep.Results {
		if err := m.Write(r); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.Write(Event{Type: EventRunFinished, Run: run, Verdict: &v, ExitCode: exitCode}); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}
