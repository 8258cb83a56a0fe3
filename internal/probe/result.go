package probe

type Status string

const (
	StatusPass    Status = "PASS"
	StatusWarn    Status = "WARN"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
)

// Causes understood by the scorer.
const (
	CauseNTPUnsynchronized = "ntp-unsynchronized"
	CauseDockerMissing     = "docker-missing"
	CauseComposeMissing    = "compose-missing"
	CauseSwapLow           = "swap-low"
	CauseFirewallActive    = "firewall-active"
	CauseOSUnsupported     = "os-unsupported"
	CauseFactUnknown       = "fact-unknown"

	// Post-install verification.
	CauseServiceInactive = "service-inactive"
	CausePortClosed      = "port-closed"
	CauseQueueError      = "queue-error"
	CauseSMTPUnreachable = "smtp-unreachable"
)

type Result struct {
	CheckID string `json:"check_id"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	// Cause is a machine-readable reason code for non-passing results.
	Cause string `json:"cause,omitempty"`
	// Evidence contains simple key-value string pairs supporting the result.
	Evidence map[string]string `json:"evidence,omitempty"`
}

func NewResult(checkID string, status Status, message string) Result {
	return Result{CheckID: checkID, Status: status, Message: message}
}

func Pass(checkID, message string) Result {
	return NewResult(checkID, StatusPass, message)
}

func Warn(checkID, message string) Result {
	return NewResult(checkID, StatusWarn, message)
}

func Fail(checkID, message string) Result {
	return NewResult(checkID, StatusFail, message)
}

func Skipped(checkID, message string) Result {
	return NewResult(checkID, StatusSkipped, message)
}

// WithCause returns a copy of r carrying cause.
func (r Result) WithCause(cause string) Result {
	r.Cause = cause
	return r
}

// WithEvidence returns a copy of r with key=value added to its evidence.
func (r Result) WithEvidence(key, value string) Result {
	ev := make(map[string]string, len(r.Evidence)+1)
	for k, v := range r.Evidence {
		ev[k] = v
	}
	ev[key] = value
	r.Evidence = ev
	return r
}
