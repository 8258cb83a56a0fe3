package probe

// Report is an ordered list of results with per-status tallies. Build it with
// Add; the counters always equal the status counts of Results.
type Report struct {
	Results []Result `json:"results"`
	Pass    int      `json:"pass"`
	Warn    int      `json:"warn"`
	Fail    int      `json:"fail"`
}

// Add appends res and updates the tallies. SKIPPED results are dropped.
func (r *Report) Add(res Result) {
	switch res.Status {
	case StatusPass:
		r.Pass++
	case StatusWarn:
		r.Warn++
	case StatusFail:
		r.Fail++
	default:
		return
	}
	r.Results = append(r.Results, res)
}

// Causes returns the distinct non-empty causes carried by results with the
// given status, in report order.
func (r Report) Causes(status Status) []string {
	seen := make(map[string]bool)
	var out []string
	for _, res := range r.Results {
		if res.Status != status || res.Cause == "" || seen[res.Cause] {
			continue
		}
		seen[res.Cause] = true
		out = append(out, res.Cause)
	}
	return out
}
