package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"mailstack/internal/host"
)

func TestPresentDependencyError(t *testing.T) {
	exitErr := &host.ExitError{Command: "timedatectl show -p NTPSynchronized --value", Code: 1, Output: "Failed to connect to bus"}

	tests := []struct {
		name    string
		err     error
		verbose bool
		want    string
	}{
		{name: "nil", err: nil, want: "unknown error"},
		{
			name: "all candidates missing",
			err:  fmt.Errorf("%w: %w", host.ErrUnknown, errors.Join(fmt.Errorf("ss: %w", host.ErrNotFound), fmt.Errorf("netstat: %w", host.ErrNotFound))),
			want: "no source available (required tools not installed)",
		},
		{
			name: "candidates failed",
			err:  fmt.Errorf("%w: %w", host.ErrUnknown, errors.Join(fmt.Errorf("ss: %w", host.ErrNotFound), exitErr)),
			want: "no source answered",
		},
		{name: "single tool missing", err: fmt.Errorf("docker: %w", host.ErrNotFound), want: "required tool not installed"},
		{name: "exit failure", err: exitErr, want: "timedatectl exited with status 1"},
		{name: "timeout", err: fmt.Errorf("gather: %w", context.DeadlineExceeded), want: "timed out"},
		{name: "multi-line", err: errors.New("read /proc/meminfo: boom\nmore detail"), want: "read /proc/meminfo: boom"},
		{name: "verbose keeps everything", err: exitErr, verbose: true, want: exitErr.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := presentDependencyError(tt.err, tt.verbose); got != tt.want {
				t.Errorf("presentDependencyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPresentDependencyError_DoesNotLeakCollaboratorOutput(t *testing.T) {
	err := &host.ExitError{Command: "ss -H -tlnp", Code: 2, Output: "Cannot open netlink socket: Permission denied"}
	if got := presentDependencyError(err, false); strings.Contains(got, "netlink") {
		t.Errorf("collaborator output leaked without verbose: %q", got)
	}
}
