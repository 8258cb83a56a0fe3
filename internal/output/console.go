package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"mailstack/internal/probe"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	agg             collector
	allowedStatuses map[string]bool
	palette         map[probe.Status]*color.Color
	bold            *color.Color
}

// NewConsoleSink writes to w (stdout when nil). Colors follow fatih/color's
// terminal detection unless colorize is false.
func NewConsoleSink(w io.Writer, format string, filterStatuses []string, colorize bool) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
		palette: map[probe.Status]*color.Color{
			probe.StatusPass: color.New(color.FgGreen),
			probe.StatusWarn: color.New(color.FgYellow),
			probe.StatusFail: color.New(color.FgRed, color.Bold),
		},
		bold: color.New(color.Bold),
	}
	if !colorize {
		for _, c := range s.palette {
			c.DisableColor()
		}
		s.bold.DisableColor()
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToUpper(strings.TrimSpace(st))] = true
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	if len(s.allowedStatuses) > 0 {
		if r, ok := v.(probe.Result); ok {
			if !s.allowedStatuses[string(r.Status)] {
				return nil
			}
		}
	}

	switch s.format {
	case "json":
		s.agg.observe(v)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case probe.Result:
			if err := encoder.Encode(eventFromResult(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		switch t := v.(type) {
		case probe.Result:
			if err := s.writeResultText(t); err != nil {
				return err
			}
		case Event:
			if t.Type != EventRunFinished || t.Verdict == nil {
				return nil
			}
			if err := s.writeSummaryText(t); err != nil {
				return err
			}
		default:
			return nil
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) statusLabel(st probe.Status) string {
	label := fmt.Sprintf("[%s]", st)
	if c, ok := s.palette[st]; ok {
		return c.Sprint(label)
	}
	return label
}

func (s *ConsoleSink) writeResultText(r probe.Result) error {
	line := fmt.Sprintf("%s %s", s.statusLabel(r.Status), r.CheckID)
	if r.Message != "" {
		line += " - " + r.Message
	}
	_, err := fmt.Fprintln(s.writer, line)
	return err
}

func (s *ConsoleSink) writeSummaryText(e Event) error {
	v := e.Verdict
	var b strings.Builder
	fmt.Fprintf(&b, "\nSummary: %d passed, %d warnings, %d failed\n", v.Pass, v.Warn, v.Fail)
	ok, notOK := "Host meets requirements.", "Host does not meet requirements."
	if e.Run == "verify" {
		ok, notOK = "Mail stack verified.", "Mail stack verification failed."
	}
	if v.OK {
		b.WriteString(s.palette[probe.StatusPass].Sprint(ok))
	} else {
		b.WriteString(s.palette[probe.StatusFail].Sprint(notOK))
	}
	b.WriteString("\n")
	if v.Remediation != "" {
		fmt.Fprintf(&b, "%s %s\n", s.bold.Sprint("Suggested fix:"), v.Remediation)
	}
	if len(v.Suggestions) > 0 {
		b.WriteString(s.bold.Sprint("Recommendations:") + "\n")
		for _, sg := range v.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", sg)
		}
	}
	_, err := io.WriteString(s.writer, b.String())
	return err
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.agg.document()); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}
