package install

import (
	"context"
	"log/slog"
	"time"

	"mailstack/internal/errs"
	"mailstack/internal/logfields"
)

// SettleDelay is how long services get after start before their active status
// is trusted.
const SettleDelay = 5 * time.Second

// Transition is one recorded step of a run.
type Transition struct {
	Flavor string
	From   string
	To     string
	Detail string
	Err    error
}

// Outcome summarizes a Run.
type Outcome struct {
	Flavor     string
	Initial    State
	Reconciled bool
	Phases     []Phase
	Bootstrap  *BootstrapUser
}

// Final returns the last phase reached, or "" before any.
func (o Outcome) Final() Phase {
	if len(o.Phases) == 0 {
		return ""
	}
	return o.Phases[len(o.Phases)-1]
}

type Machine struct {
	Backend     Backend
	SettleDelay time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	// OnTransition, when set, receives every state change.
	OnTransition func(ctx context.Context, t Transition)
	// Gate, when set, runs after detection and before anything on the host
	// changes. A gate error stops the run.
	Gate         func(ctx context.Context, initial State) error
	Logger       *slog.Logger
}

func NewMachine(b Backend, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{
		Backend:     b,
		SettleDelay: SettleDelay,
		Sleep:       sleepContext,
		Logger:      logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Machine) log() *slog.Logger {
	return m.Logger.With(logfields.Stage("install"), logfields.Flavor(m.Backend.Flavor()))
}

func (m *Machine) record(ctx context.Context, from, to, detail string, err error) {
	attrs := []any{slog.String("from", from), logfields.State(to)}
	if detail != "" {
		attrs = append(attrs, slog.String("detail", detail))
	}
	if err != nil {
		m.log().Error("transition failed", append(attrs, logfields.Error(err))...)
	} else {
		m.log().Info("transition", attrs...)
	}
	if m.OnTransition != nil {
		m.OnTransition(ctx, Transition{Flavor: m.Backend.Flavor(), From: from, To: to, Detail: detail, Err: err})
	}
}

// Run drives the host to RUNNING. A live installation is refused untouched; a
// partial or stopped one is destructively reconciled first. The run stops at
// the first fatal stage and reports the phase it reached.
func (m *Machine) Run(ctx context.Context) (Outcome, error) {
	out := Outcome{Flavor: m.Backend.Flavor()}

	inv, err := m.Backend.Detect(ctx)
	if err != nil {
		return out, err
	}
	out.Initial = inv.State()
	m.record(ctx, "", string(out.Initial), inv.String(), nil)

	if out.Initial == StateCompleteRunning {
		return out, errs.Precondition("install", "mail stack is already installed and running; refusing to reconfigure a live system").
			WithRemediation(m.Backend.TeardownHint())
	}
	if m.Gate != nil {
		if err := m.Gate(ctx, out.Initial); err != nil {
			m.record(ctx, string(out.Initial), string(PhaseAbsent), "preflight", err)
			return out, err
		}
	}
	if out.Initial != StateAbsent {
		if err := m.reconcile(ctx, out.Initial); err != nil {
			return out, err
		}
		out.Reconciled = true
	}

	out.Phases = append(out.Phases, PhaseAbsent)
	steps := []struct {
		to Phase
		fn func(context.Context) error
	}{
		{PhaseInstalledStopped, m.Backend.Install},
		{PhaseConfigured, m.Backend.Configure},
		{PhaseVerified, m.startAndVerify},
	}
	for _, s := range steps {
		from := out.Final()
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := s.fn(ctx); err != nil {
			m.record(ctx, string(from), string(s.to), "", err)
			return out, err
		}
		out.Phases = append(out.Phases, s.to)
		m.record(ctx, string(from), string(s.to), "", nil)
	}

	user, err := m.Backend.Bootstrap(ctx)
	if err != nil {
		m.record(ctx, string(PhaseVerified), string(PhaseRunning), "bootstrap", err)
		return out, err
	}
	out.Bootstrap = user
	out.Phases = append(out.Phases, PhaseRunning)
	detail := ""
	if user != nil {
		detail = "bootstrap user " + user.Address
	}
	m.record(ctx, string(PhaseVerified), string(PhaseRunning), detail, nil)
	return out, nil
}

func (m *Machine) reconcile(ctx context.Context, from State) error {
	m.log().Warn("reconciling incomplete installation: daemons are stopped, packages purged and mail data removed",
		logfields.State(string(from)))
	if err := m.Backend.Reconcile(ctx); err != nil {
		m.record(ctx, string(from), string(StateAbsent), "reconcile", err)
		return err
	}
	inv, err := m.Backend.Detect(ctx)
	if err != nil {
		return err
	}
	if st := inv.State(); st != StateAbsent {
		err := errs.Precondition("reconcile", "host is still %s after reconciliation (%s)", st, inv)
		m.record(ctx, string(from), string(StateAbsent), "reconcile", err)
		return err
	}
	m.record(ctx, string(from), string(StateAbsent), "reconciled", nil)
	return nil
}

func (m *Machine) startAndVerify(ctx context.Context) error {
	if err := m.Backend.Start(ctx); err != nil {
		return err
	}
	m.log().Info("waiting for services to settle", logfields.Duration(m.SettleDelay))
	if err := m.Sleep(ctx, m.SettleDelay); err != nil {
		return err
	}
	inv, err := m.Backend.Detect(ctx)
	if err != nil {
		return err
	}
	if !inv.AllActive() {
		return errs.Verification("verify start", "not active after %s: %v", m.SettleDelay, inv.Inactive()).
			WithRemediation(m.Backend.LogHint())
	}
	return nil
}

// Teardown removes whatever is installed. It reports false when there was
// nothing to remove.
func (m *Machine) Teardown(ctx context.Context) (bool, error) {
	inv, err := m.Backend.Detect(ctx)
	if err != nil {
		return false, err
	}
	st := inv.State()
	if st == StateAbsent {
		m.log().Info("nothing to remove")
		return false, nil
	}
	if err := m.reconcile(ctx, st); err != nil {
		return false, err
	}
	return true, nil
}
