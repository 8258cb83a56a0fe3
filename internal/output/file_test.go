package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mailstack/internal/probe"
	"mailstack/internal/scorer"
)

func TestNewFileSink_InfersFormat(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "json extension", file: "out.json", want: "json"},
		{name: "ndjson extension", file: "out.ndjson", want: "ndjson"},
		{name: "jsonl extension", file: "out.jsonl", want: "ndjson"},
		{name: "explicit format wins", file: "out.txt", format: "json", want: "json"},
		{name: "unknown extension", file: "out.txt", wantErr: true},
		{name: "unsupported format", file: "out.json", format: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewFileSink(filepath.Join(dir, tt.file), tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFileSink error: %v", err)
			}
			defer func() { _ = s.Close() }()
			if s.format != tt.want {
				t.Errorf("format = %q, want %q", s.format, tt.want)
			}
		})
	}
}

func TestNewFileSink_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Results == nil || len(doc.Results) != 0 {
		t.Errorf("expected empty results array, got %s", raw)
	}
}

func TestFileSink_JSONAggregate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink error: %v", err)
	}

	var rep probe.Report
	rep.Add(probe.Pass("architecture", "x86_64"))
	rep.Add(probe.Fail("container-runtime", "docker is not installed").WithCause(probe.CauseDockerMissing))

	mgr := NewManager()
	_ = mgr.AddSink(s)
	if err := mgr.WriteRun("check", rep, scorer.Evaluate(rep), 1); err != nil {
		t.Fatalf("WriteRun error: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Results) != 2 || doc.Results[1].Cause != probe.CauseDockerMissing {
		t.Errorf("unexpected results: %+v", doc.Results)
	}
	if doc.Verdict == nil || doc.Verdict.OK || doc.Verdict.Remediation == "" {
		t.Errorf("unexpected verdict: %+v", doc.Verdict)
	}
}
