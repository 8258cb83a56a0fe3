package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mailstack/internal/host"
)

// presentDependencyError renders a fact gathering failure for a result
// message. Without verbose, collaborator output is reduced to the one fact an
// operator can act on.
func presentDependencyError(err error, verbose bool) string {
	if err == nil {
		return "unknown error"
	}
	if verbose {
		return strings.TrimSpace(err.Error())
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, host.ErrUnknown):
		if errors.Is(err, host.ErrNotFound) && !hasExitFailure(err) {
			return "no source available (required tools not installed)"
		}
		return "no source answered"
	case errors.Is(err, host.ErrNotFound):
		return "required tool not installed"
	}

	var ee *host.ExitError
	if errors.As(err, &ee) {
		return fmt.Sprintf("%s exited with status %d", firstWord(ee.Command), ee.Code)
	}

	msg := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		return "unknown error"
	}
	return msg
}

func hasExitFailure(err error) bool {
	var ee *host.ExitError
	return errors.As(err, &ee)
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
