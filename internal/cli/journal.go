package cli

import (
	"context"

	"mailstack/internal/install"
	"mailstack/internal/journal"
	"mailstack/internal/logfields"
)

// openJournal opens the run journal. The journal is a record only: when it
// is disabled or cannot be opened the command runs without it.
func (a *app) openJournal(ctx context.Context) *journal.Journal {
	if a.cfg.Paths.Journal == "" {
		return nil
	}
	j, err := journal.Open(ctx, a.cfg.Paths.Journal)
	if err != nil {
		a.logger.Warn("journal unavailable", logfields.Path(a.cfg.Paths.Journal), logfields.Error(err))
		return nil
	}
	return j
}

func closeJournal(j *journal.Journal) {
	if j != nil {
		_ = j.Close()
	}
}

type recordFunc func(ctx context.Context, e journal.Entry)

func (a *app) recorder(j *journal.Journal, runID, command string) recordFunc {
	log := a.logger.With(logfields.RunID(runID))
	return func(ctx context.Context, e journal.Entry) {
		if j == nil {
			return
		}
		e.RunID = runID
		e.Command = command
		if e.Flavor == "" {
			e.Flavor = a.cfg.Stack.Flavor
		}
		if err := j.Record(ctx, e); err != nil {
			log.Warn("journal write failed", logfields.Error(err))
		}
	}
}

// transitions adapts installer transitions to journal entries.
func transitions(rec recordFunc) func(context.Context, install.Transition) {
	return func(ctx context.Context, t install.Transition) {
		e := journal.Entry{Flavor: t.Flavor, From: t.From, To: t.To, Detail: t.Detail}
		if t.Err != nil {
			e.Error = t.Err.Error()
		}
		rec(ctx, e)
	}
}
