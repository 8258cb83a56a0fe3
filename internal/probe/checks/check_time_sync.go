package checks

import (
	"context"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

type TimeSyncCheck struct{}

func (c *TimeSyncCheck) ID() string {
	return "time-sync"
}

func (c *TimeSyncCheck) Title() string {
	return "Clock Synchronization"
}

func (c *TimeSyncCheck) Description() string {
	return "Requires the system clock to be NTP synchronized. TLS and DKIM depend on correct time."
}

func (c *TimeSyncCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepTimeSync}
}

func (c *TimeSyncCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	ts, res := fact[*models.TimeSync](dc, c.ID(), data.DepTimeSync)
	if res != nil {
		return *res, nil
	}
	switch {
	case !ts.Known:
		return probe.Warn(c.ID(), "unknown: no time synchronization tool answered").WithCause(probe.CauseFactUnknown), nil
	case !ts.Synchronized:
		return probe.Fail(c.ID(), "system clock is not NTP synchronized").
			WithCause(probe.CauseNTPUnsynchronized).
			WithEvidence("source", ts.Source), nil
	default:
		return probe.Pass(c.ID(), "synchronized").WithEvidence("source", ts.Source), nil
	}
}

func init() {
	probe.Register(&TimeSyncCheck{})
}
