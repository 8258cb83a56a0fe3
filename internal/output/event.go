package output

import (
	"mailstack/internal/probe"
	"mailstack/internal/scorer"
)

const (
	EventRunStarted  = "run.started"
	EventCheckResult = "check.result"
	EventRunFinished = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line):
// run.started, one check.result per result, then run.finished carrying the
// verdict. JSON mode remains an aggregate document.
type Event struct {
	Type string `json:"type"`
	// Run names the pipeline stage that produced the stream ("check", "verify").
	Run string `json:"run,omitempty"`
	*probe.Result
	Checks   int             `json:"checks,omitempty"`
	Verdict  *scorer.Verdict `json:"verdict,omitempty"`
	ExitCode int             `json:"exit_code,omitempty"`
}

func eventFromResult(r probe.Result) Event {
	return Event{Type: EventCheckResult, Result: &r}
}

// document is the aggregate JSON form of a run.
type document struct {
	Run     string          `json:"run,omitempty"`
	Results []probe.Result  `json:"results"`
	Verdict *scorer.Verdict `json:"verdict,omitempty"`
}

// collector accumulates the aggregate view shared by the JSON sinks.
type collector struct {
	doc document
}

func (c *collector) observe(v any) {
	switch t := v.(type) {
	case probe.Result:
		c.doc.Results = append(c.doc.Results, t)
	case Event:
		if t.Run != "" {
			c.doc.Run = t.Run
		}
		if t.Type == EventRunFinished && t.Verdict != nil {
			verdict := *t.Verdict
			c.doc.Verdict = &verdict
		}
	}
}

func (c *collector) document() document {
	d := c.doc
	if d.Results == nil {
		d.Results = []probe.Result{}
	}
	return d
}
