package errs

import (
	"errors"
	"fmt"
)

// ExitStatus is a silent error that only carries a process exit code. It is
// used when a command already printed its own report (a failed check run).
type ExitStatus int

func (s ExitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(s))
}

// ExitCode maps an error to the process exit status. Every failure class exits
// 1; the classification drives the message, not the code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var st ExitStatus
	if errors.As(err, &st) {
		return int(st)
	}
	return 1
}

// Format renders err for the terminal: the cause on one line and, when known,
// a suggested command on the next.
func Format(err error) string {
	if err == nil {
		return ""
	}
	var st ExitStatus
	if errors.As(err, &st) {
		return ""
	}
	e, ok := As(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	msg := fmt.Sprintf("Error (%s): %v", e.Kind, err)
	if e.Remediation != "" {
		msg += "\nSuggested fix: " + e.Remediation
	}
	return msg
}
