package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailstack/internal/errs"
	"mailstack/internal/host/hosttest"
	"mailstack/internal/provision"
)

const composeSettings = "MAILCOW_HOSTNAME=mail.example.com\nTZ=UTC\nDBPASS=a\nDBROOT=b\nREDISPASS=c\n" +
	"SOGO_URL_ENCRYPTION_KEY=d\nSKIP_CLAMD=n\nENABLE_IPV6=false\nCOMPOSE_PROJECT_NAME=mailcowdockerized\n"

const composePS = "docker ps -a --filter label=com.docker.compose.project=mailcowdockerized --format {{.Names}}\t{{.State}}"

func newComposeFixture(t *testing.T, configured bool) (*Machine, *ComposeBackend, *hosttest.Runner) {
	t.Helper()
	dir := t.TempDir()
	if configured {
		require.NoError(t, os.WriteFile(filepath.Join(dir, provision.SettingsFile), []byte(composeSettings), 0o600))
	}
	r := hosttest.NewRunner()
	b := NewComposeBackend(r, dir, nil)
	m := NewMachine(b, nil)
	m.Sleep = func(context.Context, time.Duration) error { return nil }
	return m, b, r
}

func TestComposeBackend_Detect(t *testing.T) {
	_, b, r := newComposeFixture(t, true)
	r.OK(composePS, "mailcowdockerized-postfix-mailcow-1\trunning\n"+
		"mailcowdockerized-dovecot-mailcow-1\texited\n"+
		"mailcowdockerized-redis-mailcow-1\trunning\n")

	inv, err := b.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePartial, inv.State())
	assert.Equal(t, "postfix=active dovecot=stopped", inv.String())
}

func TestComposeBackend_AbsentToRunning(t *testing.T) {
	m, b, r := newComposeFixture(t, true)
	r.OK(composePS, "")
	r.OK(composePS, "mailcowdockerized-postfix-mailcow-1\trunning\nmailcowdockerized-dovecot-mailcow-1\trunning\n")

	out, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, out.Final())
	assert.Nil(t, out.Bootstrap)

	pull := r.Index("docker compose pull")
	up := r.Index("docker compose up -d")
	require.GreaterOrEqual(t, pull, 0)
	assert.Less(t, pull, up)
	for _, c := range r.Calls() {
		if len(c.Args) > 0 && c.Args[0] == "compose" {
			assert.Equal(t, b.WorkDir, c.Dir)
		}
	}
}

func TestComposeBackend_RefusesLiveStack(t *testing.T) {
	m, b, r := newComposeFixture(t, true)
	r.OK(composePS, "mailcowdockerized-postfix-mailcow-1\trunning\nmailcowdockerized-dovecot-mailcow-1\trunning\n")

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindPrecondition), "got %v", err)
	e, _ := errs.As(err)
	assert.Equal(t, "cd "+b.WorkDir+" && docker compose down", e.Remediation)
	assert.False(t, r.Ran("docker compose"))
}

func TestComposeBackend_StoppedStackIsTakenDown(t *testing.T) {
	m, _, r := newComposeFixture(t, true)
	r.OK(composePS, "mailcowdockerized-postfix-mailcow-1\texited\nmailcowdockerized-dovecot-mailcow-1\texited\n")
	r.OK(composePS, "")
	r.OK(composePS, "mailcowdockerized-postfix-mailcow-1\trunning\nmailcowdockerized-dovecot-mailcow-1\trunning\n")

	out, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleteStopped, out.Initial)
	assert.True(t, out.Reconciled)
	assert.Less(t, r.Index("docker compose down"), r.Index("docker compose pull"))
}

func TestComposeBackend_RequiresSettings(t *testing.T) {
	m, _, r := newComposeFixture(t, false)
	r.OK(composePS, "")

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotInstalled), "got %v", err)
	assert.False(t, r.Ran("docker compose pull"))
}

func TestComposeBackend_RejectsIncompleteSettings(t *testing.T) {
	m, b, r := newComposeFixture(t, false)
	require.NoError(t, os.WriteFile(filepath.Join(b.WorkDir, provision.SettingsFile), []byte("MAILCOW_HOSTNAME=mail.example.com\nTZ=UTC\n"), 0o600))
	r.OK(composePS, "")

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation), "got %v", err)
	assert.Contains(t, err.Error(), "DBPASS")
	assert.False(t, r.Ran("docker compose pull"))
}

func TestComposeBackend_DockerMissing(t *testing.T) {
	m, _, r := newComposeFixture(t, true)
	r.Missing("docker")

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindPrecondition), "got %v", err)
}

func TestComposeBackend_QueueCommand(t *testing.T) {
	_, b, _ := newComposeFixture(t, true)
	cmd := b.QueueCommand()
	assert.Equal(t, "docker compose exec -T postfix-mailcow postqueue -p", cmd.Line())
	assert.Equal(t, b.WorkDir, cmd.Dir)
	assert.Len(t, b.RequiredPorts(), 10)
}
