package host

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOSRelease(t *testing.T) {
	content := `PRETTY_NAME="Ubuntu 22.04.4 LTS"
NAME="Ubuntu"
VERSION_ID="22.04"
ID=ubuntu
ID_LIKE=debian
# comment
`
	rel, err := ParseOSRelease([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, "ubuntu", rel.ID)
	assert.Equal(t, "22.04", rel.VersionID)
	assert.Equal(t, []string{"debian"}, rel.IDLike)
	assert.Equal(t, "Ubuntu 22.04.4 LTS", rel.PrettyName)

	major, ok := rel.Major()
	require.True(t, ok)
	assert.Equal(t, 22, major)
}

func TestOSRelease_Major(t *testing.T) {
	tests := []struct {
		version string
		want    int
		ok      bool
	}{
		{"12", 12, true},
		{"3.19.1", 3, true},
		{"9.4", 9, true},
		{"", 0, false},
		{"rolling", 0, false},
	}
	for _, tt := range tests {
		got, ok := OSRelease{VersionID: tt.version}.Major()
		assert.Equal(t, tt.ok, ok, tt.version)
		assert.Equal(t, tt.want, got, tt.version)
	}
}

func TestFirstSuccess(t *testing.T) {
	ctx := context.Background()
	failing := Candidate[string]{Name: "ss", Probe: func(context.Context) (string, error) { return "", ErrNotFound }}
	working := Candidate[string]{Name: "netstat", Probe: func(context.Context) (string, error) { return "ok", nil }}
	never := Candidate[string]{Name: "never", Probe: func(context.Context) (string, error) {
		t.Fatal("candidates after the first success must not run")
		return "", nil
	}}

	v, src, err := FirstSuccess(ctx, failing, working, never)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, "netstat", src)

	_, _, err = FirstSuccess(ctx, failing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknown)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasRoutableIPv6(t *testing.T) {
	mk := func(s string) net.Addr {
		ip, n, err := net.ParseCIDR(s)
		require.NoError(t, err)
		n.IP = ip
		return n
	}
	assert.False(t, HasRoutableIPv6(nil))
	assert.False(t, HasRoutableIPv6([]net.Addr{mk("127.0.0.1/8"), mk("::1/128"), mk("fe80::1/64"), mk("192.0.2.10/24")}))
	assert.True(t, HasRoutableIPv6([]net.Addr{mk("fe80::1/64"), mk("2001:db8::25/64")}))
}

func TestExecRunner(t *testing.T) {
	r := &ExecRunner{}
	ctx := context.Background()

	res, err := r.Run(ctx, Cmd("sh", "-c", "echo hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)

	res, err = r.Run(ctx, Cmd("sh", "-c", "echo broken >&2; exit 3"))
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, 3, ExitCodeOf(err))
	assert.Contains(t, err.Error(), "broken")

	_, err = r.Run(ctx, Cmd("mailstack-definitely-not-installed"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, -1, ExitCodeOf(err))
}

func TestLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "mailstack.lock")

	release, err := Lock(path)
	require.NoError(t, err)

	_, err = Lock(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release())

	release, err = Lock(path)
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "systemctl is-active postfix", Cmd("systemctl", "is-active", "postfix").Line())
	assert.Equal(t, "ss", Cmd("ss").Line())
}
