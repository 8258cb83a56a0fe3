// Package verify checks a freshly installed mail stack from the outside: the
// daemons are active, their ports listen, the queue can be read and SMTP
// answers a handshake.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alexisbouchez/smtp.go"
	"github.com/alexisbouchez/smtp.go/smtpclient"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
	"mailstack/internal/install"
	"mailstack/internal/logfields"
	"mailstack/internal/probe"
)

const (
	// DefaultSMTPAddr is where the greeting check connects.
	DefaultSMTPAddr = "127.0.0.1:25"
	// SMTPTimeout bounds dial, greeting and EHLO together.
	SMTPTimeout = 10 * time.Second
)

type Verifier struct {
	Backend install.Backend
	Host    host.Host

	SMTPAddr    string
	SMTPTimeout time.Duration
	// LocalName is the EHLO identity.
	LocalName string
	Logger    *slog.Logger
}

func NewVerifier(b install.Backend, h host.Host, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Verifier{
		Backend:     b,
		Host:        h,
		SMTPAddr:    DefaultSMTPAddr,
		SMTPTimeout: SMTPTimeout,
		LocalName:   "localhost",
		Logger:      logger,
	}
}

// Verify runs every verification and returns the report. Individual failures
// become results; Verify itself never fails.
func (v *Verifier) Verify(ctx context.Context) probe.Report {
	log := v.Logger.With(logfields.Stage("verify"), logfields.Flavor(v.Backend.Flavor()))
	start := time.Now()

	var rep probe.Report
	for _, r := range v.services(ctx) {
		rep.Add(r)
	}
	for _, r := range v.ports(ctx) {
		rep.Add(r)
	}
	rep.Add(v.queue(ctx))
	rep.Add(v.greeting(ctx))

	for _, r := range rep.Results {
		log.Debug("verification", logfields.Check(r.CheckID), logfields.Status(string(r.Status)))
	}
	log.Info("verification finished",
		slog.Int("pass", rep.Pass), slog.Int("warn", rep.Warn), slog.Int("fail", rep.Fail),
		logfields.Duration(time.Since(start)))
	return rep
}

func (v *Verifier) services(ctx context.Context) []probe.Result {
	inv, err := v.Backend.Detect(ctx)
	if err != nil {
		return []probe.Result{
			probe.Fail("services", "could not query services: "+err.Error()).WithCause(probe.CauseServiceInactive),
		}
	}
	out := make([]probe.Result, 0, len(inv.Daemons))
	for _, d := range inv.Daemons {
		id := "service-" + d.Name
		switch {
		case d.Installed && d.Active:
			out = append(out, probe.Pass(id, d.Name+" is active"))
		case d.Installed:
			out = append(out, probe.Fail(id, d.Name+" is not active").
				WithCause(probe.CauseServiceInactive).
				WithEvidence("logs", v.Backend.LogHint()))
		default:
			out = append(out, probe.Fail(id, d.Name+" is not installed").WithCause(probe.CauseServiceInactive))
		}
	}
	return out
}

// ports reads the listening set once from a fresh fetcher so nothing cached
// before the install is reused.
func (v *Verifier) ports(ctx context.Context) []probe.Result {
	required := v.Backend.RequiredPorts()
	out := make([]probe.Result, 0, len(required))

	f := fetcher.NewFetcher(v.Host, fetcher.WithLogger(v.Logger))
	val, err := f.Fetch(ctx, data.DepListeningPorts)
	if err != nil {
		for _, p := range required {
			out = append(out, probe.Fail(listenID(p), "listening ports unknown: "+err.Error()).
				WithCause(probe.CauseFactUnknown))
		}
		return out
	}
	listening := val.(*models.ListeningPorts)
	for _, p := range required {
		if listening.Bound(p) {
			r := probe.Pass(listenID(p), fmt.Sprintf("port %d is listening", p))
			if owner := listening.Ports[p]; owner != "" {
				r = r.WithEvidence("process", owner)
			}
			out = append(out, r)
			continue
		}
		out = append(out, probe.Fail(listenID(p), fmt.Sprintf("nothing listens on port %d", p)).
			WithCause(probe.CausePortClosed))
	}
	return out
}

func listenID(port int) string {
	return "listen-" + strconv.Itoa(port)
}

// postqueue -p ends with "-- 2 Kbytes in 3 Requests." when mail is queued.
var queueTotal = regexp.MustCompile(`in (\d+) Requests?\.`)

func (v *Verifier) queue(ctx context.Context) probe.Result {
	const id = "mail-queue"
	cmd := v.Backend.QueueCommand()
	res, err := v.Host.Runner.Run(ctx, cmd)
	output := res.Stdout + res.Stderr
	switch {
	case errors.Is(err, host.ErrNotFound):
		return probe.Fail(id, cmd.Name+" not found").WithCause(probe.CauseQueueError)
	case err != nil:
		return probe.Fail(id, "queue inspection failed: "+firstLine(err.Error())).
			WithCause(probe.CauseQueueError).
			WithEvidence("command", cmd.Line())
	case strings.Contains(strings.ToLower(output), "fatal"):
		return probe.Fail(id, "queue inspection failed: "+firstLine(output)).
			WithCause(probe.CauseQueueError).
			WithEvidence("command", cmd.Line())
	}
	if m := queueTotal.FindStringSubmatch(output); m != nil {
		return probe.Pass(id, m[1]+" message(s) queued").WithEvidence("queued", m[1])
	}
	return probe.Pass(id, "queue is empty")
}

func (v *Verifier) greeting(ctx context.Context) probe.Result {
	const id = "smtp-greeting"
	c, err := smtpclient.Dial(ctx, v.SMTPAddr,
		smtpclient.WithTimeout(v.SMTPTimeout),
		smtpclient.WithLocalName(v.LocalName),
		smtpclient.WithLogger(v.Logger),
	)
	if err != nil {
		return probe.Warn(id, "no SMTP handshake on "+v.SMTPAddr+": "+err.Error()).
			WithCause(probe.CauseSMTPUnreachable)
	}
	defer c.Close()

	r := probe.Pass(id, "EHLO accepted on "+v.SMTPAddr)
	exts := c.Extensions()
	r = r.WithEvidence("extensions", strconv.Itoa(len(exts)))
	if exts.Has(smtp.ExtSTARTTLS) {
		r = r.WithEvidence("starttls", "yes")
	}
	return r
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
