package probe

import (
	"context"
	"testing"

	"mailstack/internal/data"
)

type dummyCheck struct {
	id string
}

func (c *dummyCheck) ID() string                         { return c.id }
func (c *dummyCheck) Title() string                      { return "Dummy Check" }
func (c *dummyCheck) Description() string                { return "Does nothing" }
func (c *dummyCheck) Dependencies() []data.DependencyKey { return nil }
func (c *dummyCheck) Evaluate(ctx context.Context, dc data.DataContext) (Result, error) {
	return Pass(c.id, ""), nil
}

func TestRegistry(t *testing.T) {
	mu.Lock()
	saved := registry
	registry = make(map[string]Check)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		registry = saved
		mu.Unlock()
	})

	Register(&dummyCheck{id: "port-25"})
	Register(&dummyCheck{id: "port-80"})
	Register(&dummyCheck{id: "memory"})

	if all := List(); len(all) != 3 || all[0].ID() != "memory" {
		t.Fatalf("unexpected List(): %v", all)
	}

	selected, err := Resolve("memory")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(selected) != 1 || selected[0].ID() != "memory" {
		t.Errorf("Expected memory, got %v", selected)
	}

	selected, err = Resolve("port-*, memory, port-25")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(selected) != 3 {
		t.Errorf("Expected 3 checks, got %d", len(selected))
	}

	selected, err = Resolve("")
	if err != nil || len(selected) != 3 {
		t.Errorf("Resolve(\"\") = %v, %v", selected, err)
	}

	if _, err := Resolve("nope"); err == nil {
		t.Error("Expected error for unknown check")
	}
	if _, err := Resolve("disk-*"); err == nil {
		t.Error("Expected error for unmatched wildcard")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic on duplicate registration")
			}
		}()
		Register(&dummyCheck{id: "memory"})
	}()
}

func TestReport_CountersMatchStatuses(t *testing.T) {
	var r Report
	statuses := []Status{StatusPass, StatusWarn, StatusFail, StatusSkipped, StatusPass, StatusFail, StatusWarn, StatusPass}
	for i, s := range statuses {
		r.Add(NewResult("c", s, ""))

		var pass, warn, fail int
		for _, res := range r.Results {
			switch res.Status {
			case StatusPass:
				pass++
			case StatusWarn:
				warn++
			case StatusFail:
				fail++
			default:
				t.Fatalf("step %d: unexpected status %s in report", i, res.Status)
			}
		}
		if pass != r.Pass || warn != r.Warn || fail != r.Fail {
			t.Fatalf("step %d: counters %d/%d/%d, statuses %d/%d/%d", i, r.Pass, r.Warn, r.Fail, pass, warn, fail)
		}
	}
	if len(r.Results) != 7 {
		t.Errorf("expected SKIPPED to be dropped, got %d results", len(r.Results))
	}
}

func TestReport_Causes(t *testing.T) {
	var r Report
	r.Add(Fail("time-sync", "").WithCause(CauseNTPUnsynchronized))
	r.Add(Fail("container-runtime", "").WithCause(CauseDockerMissing))
	r.Add(Warn("swap", "").WithCause(CauseSwapLow))
	r.Add(Fail("time-sync", "").WithCause(CauseNTPUnsynchronized))
	r.Add(Fail("memory", ""))

	got := r.Causes(StatusFail)
	if len(got) != 2 || got[0] != CauseNTPUnsynchronized || got[1] != CauseDockerMissing {
		t.Errorf("Causes(FAIL) = %v", got)
	}
}

func TestResult_WithEvidenceCopies(t *testing.T) {
	base := Pass("memory", "ok").WithEvidence("mem_total_kib", "1")
	derived := base.WithEvidence("extra", "2")
	if _, ok := base.Evidence["extra"]; ok {
		t.Error("WithEvidence mutated the original result")
	}
	if derived.Evidence["mem_total_kib"] != "1" || derived.Evidence["extra"] != "2" {
		t.Errorf("unexpected evidence: %v", derived.Evidence)
	}
}
