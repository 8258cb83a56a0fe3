package output

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"mailstack/internal/probe"
	"mailstack/internal/scorer"
)

// ReportSink renders a Markdown report on Close.
type ReportSink struct {
	path     string
	file     *os.File
	mu       sync.Mutex
	agg      collector
	hostname string
	now      func() time.Time
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	hostname, _ := os.Hostname()
	return &ReportSink{
		path:     path,
		file:     f,
		hostname: hostname,
		now:      time.Now,
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg.observe(v)
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body := renderReport(s.agg.document(), s.hostname, s.now().UTC())
	if _, err := s.file.WriteString(body); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func renderReport(doc document, hostname string, at time.Time) string {
	var b strings.Builder

	title := "Host Readiness Report"
	if doc.Run == "verify" {
		title = "Service Verification Report"
	}
	fmt.Fprintf(&b, "# mailstack %s\n\n", title)
	if hostname != "" {
		fmt.Fprintf(&b, "- Host: `%s`\n", hostname)
	}
	fmt.Fprintf(&b, "- Generated: %s\n", at.Format(time.RFC3339))

	var pass, warn, fail int
	var fails, warns []probe.Result
	for _, r := range doc.Results {
		switch r.Status {
		case probe.StatusPass:
			pass++
		case probe.StatusWarn:
			warn++
			warns = append(warns, r)
		case probe.StatusFail:
			fail++
			fails = append(fails, r)
		}
	}

	v := doc.Verdict
	if v == nil {
		computed := scorer.Verdict{OK: fail == 0, Pass: pass, Warn: warn, Fail: fail}
		v = &computed
	}
	if v.OK {
		b.WriteString("- Result: **READY**\n\n")
	} else {
		b.WriteString("- Result: **NOT READY**\n\n")
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| PASS | %d |\n| WARN | %d |\n| FAIL | %d |\n\n", pass, warn, fail)

	if cats := computeCategoryStats(doc.Results); len(cats) > 0 {
		b.WriteString("## By category\n\n")
		b.WriteString("| Category | Pass | Warn | Fail |\n|---|---:|---:|---:|\n")
		for _, cs := range cats {
			fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", cs.Name, cs.Pass, cs.Warn, cs.Fail)
		}
		b.WriteString("\n")
	}

	if len(fails) > 0 {
		b.WriteString("## Blocking failures\n\n")
		writeResultTable(&b, fails)
	}
	if v.Remediation != "" {
		b.WriteString("## Remediation\n\nRun as root, in order:\n\n```sh\n")
		b.WriteString(v.Remediation)
		b.WriteString("\n```\n\n")
	}
	if len(warns) > 0 {
		b.WriteString("## Warnings\n\n")
		writeResultTable(&b, warns)
	}
	if len(v.Suggestions) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, sg := range v.Suggestions {
			fmt.Fprintf(&b, "- %s\n", sg)
		}
		b.WriteString("\n")
	}

	b.WriteString("## All results\n\n")
	if len(doc.Results) == 0 {
		b.WriteString("_No results._\n")
		return b.String()
	}
	writeResultTable(&b, doc.Results)
	return b.String()
}

func writeResultTable(b *strings.Builder, results []probe.Result) {
	b.WriteString("| Check | Category | Status | Message |\n|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(b, "| `%s` | %s | %s | %s |\n", r.CheckID, getCategory(r.CheckID), r.Status, escapeCell(r.Message))
	}
	b.WriteString("\n")
}
