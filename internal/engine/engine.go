package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mailstack/internal/config"
	"mailstack/internal/data"
	"mailstack/internal/errs"
	"mailstack/internal/fetcher"
	"mailstack/internal/logfields"
	"mailstack/internal/output"
	"mailstack/internal/probe"
	"mailstack/internal/scorer"
)

const (
	RunCheck  = "check"
	RunVerify = "verify"
)

// ExitCodeFor maps a verdict to the process exit status: 0 when the host is
// ready, 1 otherwise.
func ExitCodeFor(v scorer.Verdict) int {
	if v.OK {
		return 0
	}
	return 1
}

func setupOutputManager(cfg *config.Config, stdout io.Writer, colorize bool) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		cs := output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus, colorize && !cfg.Output.NoColor)
		if err := outMgr.AddSink(cs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Metrics Sink
	if cfg.Output.MetricsFile != "" {
		ms, err := output.NewMetricsSink(cfg.Output.MetricsFile)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(ms); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// resultIfDependenciesMissingOrFailed returns a synthetic WARN result when a
// check's facts could not be gathered.
//
// A "dependency" is a host fact identified by a data.DependencyKey. Facts are
// gathered ahead of time into a DataContext; a fact that is missing (or failed
// to gather) leaves the check unable to decide, which is reported as unknown
// rather than as a failure.
func resultIfDependenciesMissingOrFailed(checkID string, dc data.DataContext, deps []data.DependencyKey, depErrs map[data.DependencyKey]error, verbose bool) (probe.Result, bool) {
	var missing []string
	var failedDepMessages []string

	for _, d := range deps {
		if _, ok := dc.Get(d); ok {
			continue
		}
		if depErr := depErrs[d]; depErr != nil {
			// With several failed facts, name each so the user can tell which
			// collaborator failed.
			failedDepMessages = append(failedDepMessages, fmt.Sprintf("%s: %s", d, presentDependencyError(depErr, verbose)))
			continue
		}
		missing = append(missing, string(d))
	}

	if len(failedDepMessages) > 0 {
		msg := strings.Join(failedDepMessages, "; ")
		if len(failedDepMessages) == 1 {
			if _, after, ok := strings.Cut(failedDepMessages[0], ": "); ok {
				msg = after
			}
		}
		return probe.Warn(checkID, "unknown: "+msg).WithCause(probe.CauseFactUnknown), true
	}

	if len(missing) > 0 {
		return probe.Warn(checkID, fmt.Sprintf("unknown: facts not gathered: %v", missing)).WithCause(probe.CauseFactUnknown), true
	}

	return probe.Result{}, false
}

type Engine struct {
	Fetcher     *fetcher.Fetcher
	Concurrency int
	Verbose     bool
	// Color enables ANSI colors on the console sink.
	Color  bool
	Logger *slog.Logger
}

func NewEngine(f *fetcher.Fetcher, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{Fetcher: f, Concurrency: 1, Logger: logger}
	if cfg != nil {
		e.Concurrency = cfg.Runtime.Concurrency
		e.Verbose = cfg.Runtime.Verbose
	}
	return e
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Probe gathers the facts the checks need and evaluates every check. It never
// aborts: fact failures and check errors become WARN results, so the report is
// always complete.
func (e *Engine) Probe(ctx context.Context, checks []probe.Check) probe.Report {
	log := e.logger().With(logfields.Stage("probe"))
	start := time.Now()

	plan := NewPlan(checks)
	exec := ExecutionResult{Data: data.NewMapDataContext(nil)}
	if sched, err := NewScheduler(e.Fetcher, max(e.Concurrency, 1)); err != nil {
		log.Warn("fact gathering unavailable", logfields.Error(err))
	} else {
		res, err := sched.Execute(ctx, plan)
		if err != nil {
			log.Warn("fact gathering interrupted", logfields.Error(err))
		}
		if res.Data != nil {
			exec = res
		}
	}
	for key, err := range exec.DepErrs {
		log.Debug("fact unknown", slog.String("fact", string(key)), logfields.Error(err))
	}

	var rep probe.Report
	for _, c := range plan.Checks {
		res := e.evaluate(ctx, c, exec)
		log.Debug("check evaluated", logfields.Check(res.CheckID), logfields.Status(string(res.Status)))
		rep.Add(res)
	}

	log.Info("probe finished",
		slog.Int("pass", rep.Pass), slog.Int("warn", rep.Warn), slog.Int("fail", rep.Fail),
		logfields.Duration(time.Since(start)))
	return rep
}

func (e *Engine) evaluate(ctx context.Context, c probe.Check, exec ExecutionResult) probe.Result {
	deps := c.Dependencies()
	if res, ok := resultIfDependenciesMissingOrFailed(c.ID(), exec.Data, deps, exec.DepErrs, e.Verbose); ok {
		return res
	}

	// Enforce the check contract: a check must not read facts it did not
	// declare in Dependencies().
	tracked := data.NewTrackingDataContext(exec.Data)
	res, err := c.Evaluate(ctx, tracked)
	if undeclared := undeclaredDependencyAccesses(tracked.AccessedKeys(), deps); len(undeclared) > 0 {
		msg := fmt.Sprintf("check accessed undeclared facts: %s. Declare them in Dependencies().", strings.Join(undeclared, ", "))
		if err != nil {
			msg = fmt.Sprintf("%s (evaluation error: %v)", msg, err)
		}
		return probe.Warn(c.ID(), msg)
	}
	if err != nil {
		return probe.Warn(c.ID(), fmt.Sprintf("evaluation failed: %v", err))
	}

	// Backfill the id so sinks always get a well-formed result.
	if res.CheckID == "" {
		res.CheckID = c.ID()
	}
	return res
}

func undeclaredDependencyAccesses(accessed []data.DependencyKey, declared []data.DependencyKey) []string {
	if len(accessed) == 0 {
		return nil
	}
	decl := make(map[data.DependencyKey]struct{}, len(declared))
	for _, d := range declared {
		decl[d] = struct{}{}
	}

	var out []string
	for _, k := range accessed {
		if _, ok := decl[k]; ok {
			continue
		}
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// Run is the check command: resolve the selected checks, probe, score and
// publish the report to the configured sinks.
func (e *Engine) Run(ctx context.Context, cfg *config.Config, stdout io.Writer) (probe.Report, scorer.Verdict, error) {
	checks, err := probe.Resolve(cfg.Probe.Checks)
	if err != nil {
		return probe.Report{}, scorer.Verdict{}, errs.Validation("resolve checks", "%v", err).
			WithRemediation("mailstack checks list")
	}
	e.logger().Debug("checks selected", slog.Int("count", len(checks)))

	rep := e.Probe(ctx, checks)
	v, err := e.Publish(cfg, stdout, RunCheck, rep)
	return rep, v, err
}

// Publish scores rep and writes it to every configured sink.
func (e *Engine) Publish(cfg *config.Config, stdout io.Writer, run string, rep probe.Report) (scorer.Verdict, error) {
	v := scorer.Evaluate(rep)

	outMgr, err := setupOutputManager(cfg, stdout, e.Color)
	if err != nil {
		return v, fmt.Errorf("create output sinks: %w", err)
	}
	writeErr := outMgr.WriteRun(run, rep, v, ExitCodeFor(v))
	closeErr := outMgr.Close()
	if writeErr != nil {
		return v, writeErr
	}
	return v, closeErr
}
