package install

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mailstack/internal/errs"
	"mailstack/internal/host/hosttest"
	"mailstack/internal/provision"
)

func newTestStore(t *testing.T) (*UserStore, *hosttest.Runner) {
	t.Helper()
	r := hosttest.NewRunner()
	s := NewUserStore(r, t.TempDir())
	s.Cost = bcrypt.MinCost
	return s, r
}

func TestUserStore_AddListDelete(t *testing.T) {
	s, r := newTestStore(t)
	ctx := context.Background()

	u, err := s.Add(ctx, "alice", "example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Address())
	assert.Equal(t, "/var/mail/vhosts/example.com/alice", u.Maildir)
	assert.DirExists(t, filepath.Join(s.Root, u.Maildir))
	assert.True(t, r.Ran("chown -R vmail:vmail /var/mail/vhosts/example.com/alice"))

	_, err = s.Add(ctx, "bob", "example.com", "another-pass")
	require.NoError(t, err)

	users, err := s.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice@example.com", users[0].Address())
	assert.Equal(t, "bob@example.com", users[1].Address())

	raw, err := os.ReadFile(filepath.Join(s.Root, UsersFile))
	require.NoError(t, err)
	line := strings.SplitN(string(raw), "\n", 2)[0]
	require.True(t, strings.HasPrefix(line, "alice@example.com:{BLF-CRYPT}$2a$"), line)
	hash := strings.TrimPrefix(strings.SplitN(line, ":", 3)[1], "{BLF-CRYPT}")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
	assert.NotContains(t, string(raw), "s3cret-pass")

	info, err := os.Stat(filepath.Join(s.Root, UsersFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	vmailbox, err := os.ReadFile(filepath.Join(s.Root, provision.PostfixVmailbox))
	require.NoError(t, err)
	assert.Contains(t, string(vmailbox), "alice@example.com example.com/alice/\n")

	require.NoError(t, s.Delete(ctx, "alice", "example.com"))
	users, err = s.List()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob@example.com", users[0].Address())
	assert.NoDirExists(t, filepath.Join(s.Root, "/var/mail/vhosts/example.com/alice"))

	vmailbox, err = os.ReadFile(filepath.Join(s.Root, provision.PostfixVmailbox))
	require.NoError(t, err)
	assert.NotContains(t, string(vmailbox), "alice@")
}

func TestUserStore_Rejects(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", "example.com", "pw")
	require.NoError(t, err)

	for _, tc := range []struct{ name, user, domain, password string }{
		{"duplicate", "alice", "example.com", "pw"},
		{"bad name", "-alice", "example.com", "pw"},
		{"bad domain", "carol", "localhost", "pw"},
		{"empty password", "carol", "example.com", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Add(ctx, tc.user, tc.domain, tc.password)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.KindValidation), "got %v", err)
		})
	}

	err = s.Delete(ctx, "nobody", "example.com")
	assert.True(t, errs.Is(err, errs.KindValidation), "got %v", err)
}

func TestUserStore_ChownFailureIsExternal(t *testing.T) {
	s, r := newTestStore(t)
	r.Fail("chown -R vmail:vmail /var/mail/vhosts/example.com/alice", 1, "chown: invalid user: 'vmail:vmail'")

	_, err := s.Add(context.Background(), "alice", "example.com", "pw")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindExternalTool), "got %v", err)
}

func TestParseAddress(t *testing.T) {
	u, d, err := ParseAddress(" Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice", u)
	assert.Equal(t, "example.com", d)

	_, _, err = ParseAddress("alice")
	assert.True(t, errs.Is(err, errs.KindValidation))
}
