// Package hosttest provides scripted stand-ins for host collaborators.
package hosttest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mailstack/internal/host"
)

// Response is the scripted outcome of one command.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Runner replays scripted responses keyed by the full command line. Several
// responses for the same line are consumed in order; the last one repeats.
// Unscripted commands succeed with empty output unless their binary is marked
// missing.
type Runner struct {
	mu        sync.Mutex
	responses map[string][]Response
	missing   map[string]bool
	calls     []host.Command
	hooks     map[string]func()
}

func NewRunner() *Runner {
	return &Runner{
		responses: make(map[string][]Response),
		missing:   make(map[string]bool),
		hooks:     make(map[string]func()),
	}
}

// On scripts a response for an exact command line.
func (r *Runner) On(line string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = append(r.responses[line], resp)
	return r
}

// Set replaces every response scripted so far for line.
func (r *Runner) Set(line string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = []Response{resp}
	return r
}

// OK scripts a successful response with stdout.
func (r *Runner) OK(line, stdout string) *Runner {
	return r.On(line, Response{Stdout: stdout})
}

// Fail scripts a non-zero exit.
func (r *Runner) Fail(line string, code int, output string) *Runner {
	return r.On(line, Response{ExitCode: code, Stderr: output})
}

// Missing marks binaries as not installed.
func (r *Runner) Missing(names ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.missing[n] = true
	}
	return r
}

// Present clears a Missing mark, for binaries that appear mid-test.
func (r *Runner) Present(names ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		delete(r.missing, n)
	}
	return r
}

// OnRun registers a side effect fired when line runs, after its response is
// chosen. Tests use it to flip host state (a purge making packages vanish).
func (r *Runner) OnRun(line string, fn func()) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[line] = fn
	return r
}

func (r *Runner) Run(_ context.Context, cmd host.Command) (host.Result, error) {
	line := cmd.Line()

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	if r.missing[cmd.Name] {
		r.mu.Unlock()
		return host.Result{}, fmt.Errorf("%s: %w", cmd.Name, host.ErrNotFound)
	}
	resp := Response{}
	if q := r.responses[line]; len(q) > 0 {
		resp = q[0]
		if len(q) > 1 {
			r.responses[line] = q[1:]
		}
	}
	hook := r.hooks[line]
	r.mu.Unlock()

	if hook != nil {
		hook()
	}

	res := host.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.Err != nil {
		return res, resp.Err
	}
	if resp.ExitCode != 0 {
		return res, &host.ExitError{Command: line, Code: resp.ExitCode, Output: resp.Stderr + resp.Stdout}
	}
	return res, nil
}

// Lines returns every command line run so far, in order.
func (r *Runner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Line())
	}
	return out
}

// Calls returns every command run so far, in order.
func (r *Runner) Calls() []host.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]host.Command(nil), r.calls...)
}

// Ran reports whether a command line with the given prefix ran.
func (r *Runner) Ran(prefix string) bool {
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// Index returns the position of the first command line with the given prefix,
// or -1.
func (r *Runner) Index(prefix string) int {
	for i, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			return i
		}
	}
	return -1
}
