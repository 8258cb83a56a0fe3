package verify

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/alexisbouchez/smtp.go/smtpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "mailstack/internal/fetcher/providers"
	"mailstack/internal/host"
	"mailstack/internal/host/hosttest"
	"mailstack/internal/install"
	"mailstack/internal/probe"
	"mailstack/internal/scorer"
)

type stubBackend struct {
	install.NativeBackend
	inv   install.Inventory
	err   error
	ports []int
	queue host.Command
}

func (b *stubBackend) Detect(context.Context) (install.Inventory, error) { return b.inv, b.err }
func (b *stubBackend) RequiredPorts() []int                              { return b.ports }
func (b *stubBackend) QueueCommand() host.Command                        { return b.queue }

func running() install.Inventory {
	return install.Inventory{Daemons: []install.Daemon{
		{Name: "postfix", Installed: true, Active: true},
		{Name: "dovecot", Installed: true, Active: true},
	}}
}

const listening = "LISTEN 0 100 0.0.0.0:25 0.0.0.0:* users:((\"master\",pid=812,fd=13))\n" +
	"LISTEN 0 100 0.0.0.0:143 0.0.0.0:* users:((\"dovecot\",pid=900,fd=20))\n"

func startSMTP(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := smtpserver.NewServer(
		smtpserver.WithHostname("mail.example.com"),
		smtpserver.WithReadTimeout(5*time.Second),
		smtpserver.WithWriteTimeout(5*time.Second),
		smtpserver.WithLogger(slog.New(slog.DiscardHandler)),
	)
	go srv.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return ln.Addr().String()
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func newVerifier(t *testing.T, b *stubBackend, r *hosttest.Runner, smtpAddr string) *Verifier {
	t.Helper()
	v := NewVerifier(b, hosttest.Host(r, hosttest.NewSystem()), nil)
	v.SMTPAddr = smtpAddr
	v.SMTPTimeout = 2 * time.Second
	return v
}

func find(t *testing.T, rep probe.Report, id string) probe.Result {
	t.Helper()
	for _, r := range rep.Results {
		if r.CheckID == id {
			return r
		}
	}
	t.Fatalf("no result %q in %+v", id, rep.Results)
	return probe.Result{}
}

func TestVerify_HealthyStack(t *testing.T) {
	r := hosttest.NewRunner().
		OK("ss -H -tlnp", listening).
		OK("postqueue -p", "Mail queue is empty\n")
	b := &stubBackend{inv: running(), ports: []int{25, 143}, queue: host.Cmd("postqueue", "-p")}

	rep := newVerifier(t, b, r, startSMTP(t)).Verify(context.Background())

	assert.Equal(t, 0, rep.Fail)
	assert.Equal(t, 0, rep.Warn)
	assert.Len(t, rep.Results, 6)
	assert.Equal(t, probe.StatusPass, find(t, rep, "service-postfix").Status)
	assert.Equal(t, "master", find(t, rep, "listen-25").Evidence["process"])
	assert.Equal(t, "queue is empty", find(t, rep, "mail-queue").Message)
	assert.Equal(t, probe.StatusPass, find(t, rep, "smtp-greeting").Status)
	assert.True(t, scorer.Evaluate(rep).OK)
}

func TestVerify_InactiveServiceAndClosedPort(t *testing.T) {
	inv := running()
	inv.Daemons[1].Active = false
	r := hosttest.NewRunner().OK("ss -H -tlnp", listening)
	b := &stubBackend{inv: inv, ports: []int{25, 993}, queue: host.Cmd("postqueue", "-p")}

	rep := newVerifier(t, b, r, startSMTP(t)).Verify(context.Background())

	dovecot := find(t, rep, "service-dovecot")
	assert.Equal(t, probe.StatusFail, dovecot.Status)
	assert.Equal(t, probe.CauseServiceInactive, dovecot.Cause)
	assert.Equal(t, probe.StatusFail, find(t, rep, "listen-993").Status)
	assert.Equal(t, probe.StatusPass, find(t, rep, "listen-25").Status)
	assert.False(t, scorer.Evaluate(rep).OK)
}

func TestVerify_Queue(t *testing.T) {
	tests := []struct {
		name   string
		script func(*hosttest.Runner)
		status probe.Status
		msg    string
	}{
		{
			name: "queued mail",
			script: func(r *hosttest.Runner) {
				r.OK("postqueue -p", "-Queue ID-  --Size--\n4F2A1 1024 Mon\n-- 1 Kbytes in 3 Requests.\n")
			},
			status: probe.StatusPass,
			msg:    "3 message(s) queued",
		},
		{
			name: "non-zero exit",
			script: func(r *hosttest.Runner) {
				r.Fail("postqueue -p", 69, "postqueue: warning: Mail system is down")
			},
			status: probe.StatusFail,
		},
		{
			name: "fatal in output",
			script: func(r *hosttest.Runner) {
				r.OK("postqueue -p", "postqueue: fatal: Queue report unavailable\n")
			},
			status: probe.StatusFail,
			msg:    "queue inspection failed: postqueue: fatal: Queue report unavailable",
		},
		{
			name: "missing binary",
			script: func(r *hosttest.Runner) {
				r.Missing("postqueue")
			},
			status: probe.StatusFail,
			msg:    "postqueue not found",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := hosttest.NewRunner().OK("ss -H -tlnp", listening)
			tc.script(r)
			b := &stubBackend{inv: running(), ports: []int{25}, queue: host.Cmd("postqueue", "-p")}

			res := newVerifier(t, b, r, closedAddr(t)).queue(context.Background())
			assert.Equal(t, tc.status, res.Status)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, res.Message)
			}
			if tc.status == probe.StatusFail {
				assert.Equal(t, probe.CauseQueueError, res.Cause)
			}
		})
	}
}

func TestVerify_NoSMTPIsOnlyAWarning(t *testing.T) {
	r := hosttest.NewRunner().OK("ss -H -tlnp", listening)
	b := &stubBackend{inv: running(), ports: []int{25}, queue: host.Cmd("postqueue", "-p")}

	rep := newVerifier(t, b, r, closedAddr(t)).Verify(context.Background())

	res := find(t, rep, "smtp-greeting")
	assert.Equal(t, probe.StatusWarn, res.Status)
	assert.Equal(t, probe.CauseSMTPUnreachable, res.Cause)
	v := scorer.Evaluate(rep)
	assert.True(t, v.OK)
	assert.NotEmpty(t, v.Suggestions)
}

func TestVerify_PortsUnknown(t *testing.T) {
	r := hosttest.NewRunner().Missing("ss", "netstat")
	b := &stubBackend{inv: running(), ports: []int{25, 143}, queue: host.Cmd("postqueue", "-p")}

	rep := newVerifier(t, b, r, closedAddr(t)).Verify(context.Background())
	for _, id := range []string{"listen-25", "listen-143"} {
		res := find(t, rep, id)
		assert.Equal(t, probe.StatusFail, res.Status)
		assert.Equal(t, probe.CauseFactUnknown, res.Cause)
	}
}
