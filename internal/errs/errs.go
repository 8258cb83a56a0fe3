// Package errs classifies pipeline failures so the CLI can report a cause, a
// remediation, and an exit status consistently.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the broad class of a failure.
type Kind string

const (
	// KindValidation is bad user input. Reported before any side effect.
	KindValidation Kind = "validation"
	// KindPrecondition is a host that cannot be worked on (not root, unsupported
	// OS family, a run already in progress, a healthy stack already live).
	KindPrecondition Kind = "precondition"
	// KindNotInstalled means the install directory or stack is missing.
	KindNotInstalled Kind = "not_installed"
	// KindExternalTool is a collaborator command that exited non-zero.
	KindExternalTool Kind = "external_tool"
	// KindVerification is a post-start check that did not pass.
	KindVerification Kind = "verification"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind        Kind
	Op          string
	Message     string
	Remediation string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithRemediation returns a copy of e carrying a suggested fix.
func (e *Error) WithRemediation(cmd string) *Error {
	cp := *e
	cp.Remediation = cmd
	return &cp
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Validation(op, format string, args ...any) *Error {
	return newError(KindValidation, op, format, args...)
}

func Precondition(op, format string, args ...any) *Error {
	return newError(KindPrecondition, op, format, args...)
}

func NotInstalled(op, format string, args ...any) *Error {
	return newError(KindNotInstalled, op, format, args...)
}

func Verification(op, format string, args ...any) *Error {
	return newError(KindVerification, op, format, args...)
}

// ExternalTool wraps a failed collaborator command.
func ExternalTool(op string, err error) *Error {
	return &Error{Kind: KindExternalTool, Op: op, Err: err}
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries a classified error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Swallow discards ExternalTool failures from idempotent cleanup steps, where
// "already in the desired state" surfaces as a non-zero exit. Other errors are
// returned unchanged.
func Swallow(err error) error {
	if err == nil || Is(err, KindExternalTool) {
		return nil
	}
	return err
}
