// Package scorer turns a probe report into a readiness verdict.
package scorer

import (
	"strings"

	"mailstack/internal/probe"
)

// Verdict is the outcome of scoring a report. Remediation is advisory and is
// never executed.
type Verdict struct {
	OK          bool     `json:"ok"`
	Pass        int      `json:"pass"`
	Warn        int      `json:"warn"`
	Fail        int      `json:"fail"`
	Remediation string   `json:"remediation,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type fix struct {
	cause   string
	command string
}

// Known-fixable failure causes, in the order their fixes must run. Later steps
// assume the earlier ones succeeded.
var remediationOrder = []fix{
	{cause: probe.CauseNTPUnsynchronized, command: "timedatectl set-ntp true"},
	{cause: probe.CauseDockerMissing, command: "curl -fsSL https://get.docker.com | sh"},
	{cause: probe.CauseComposeMissing, command: "apt-get install -y docker-compose-plugin"},
}

var causeSuggestions = map[string]string{
	probe.CauseSwapLow:         "Add at least 1 GiB of swap: fallocate -l 1G /swapfile && chmod 600 /swapfile && mkswap /swapfile && swapon /swapfile",
	probe.CauseFirewallActive:  "Open TCP ports 25, 80, 110, 143, 443, 465, 587, 993, 995 and 4190 in the active firewall.",
	probe.CauseOSUnsupported:   "Use a supported distribution (Debian 11+, Ubuntu 22+, AlmaLinux/Rocky 8+, Alpine 3+).",
	probe.CauseFactUnknown:     "Some host facts could not be gathered; re-run with --verbose to see which collaborator failed.",
	probe.CauseSMTPUnreachable: "Postfix is running but did not answer EHLO on 127.0.0.1:25; check smtpd in master.cf and the daemon logs.",
}

var checkSuggestions = map[string]string{
	"mtu":            "Set the container network MTU to match the default-route interface (docker-compose.override.yml).",
	"virtualization": "Prefer KVM, VMware or Hyper-V guests; other hypervisors are untested.",
}

// Evaluate scores r. OK is true iff r has no FAIL results; warnings never
// block readiness.
func Evaluate(r probe.Report) Verdict {
	v := Verdict{
		OK:   r.Fail == 0,
		Pass: r.Pass,
		Warn: r.Warn,
		Fail: r.Fail,
	}

	if !v.OK {
		v.Remediation = Remediation(r)
		return v
	}
	if v.Warn > 0 {
		v.Suggestions = suggestions(r)
	}
	return v
}

// Remediation joins the fixes for every known-fixable failure cause in r, or
// returns "" when none apply.
func Remediation(r probe.Report) string {
	present := make(map[string]bool)
	for _, c := range r.Causes(probe.StatusFail) {
		present[c] = true
	}
	var steps []string
	for _, f := range remediationOrder {
		if present[f.cause] {
			steps = append(steps, f.command)
		}
	}
	return strings.Join(steps, " && ")
}

func suggestions(r probe.Report) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, res := range r.Results {
		if res.Status != probe.StatusWarn {
			continue
		}
		if s, ok := causeSuggestions[res.Cause]; ok {
			add(s)
			continue
		}
		add(checkSuggestions[res.CheckID])
	}
	return out
}
