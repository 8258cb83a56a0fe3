package install

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"mailstack/internal/errs"
	"mailstack/internal/host"
	"mailstack/internal/provision"
)

// ManagedUser is a virtual mailbox of the native stack.
type ManagedUser struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
	Maildir  string `json:"maildir"`
}

func (u ManagedUser) Address() string {
	return u.Username + "@" + u.Domain
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// ParseAddress splits and validates user@domain.
func ParseAddress(addr string) (username, domain string, err error) {
	username, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(addr)), "@")
	if !ok {
		return "", "", errs.Validation("parse address", "%q is not of the form user@domain", addr)
	}
	if !usernamePattern.MatchString(username) {
		return "", "", errs.Validation("parse address", "invalid mailbox name %q", username)
	}
	if err := provision.ValidateDomain(domain); err != nil {
		return "", "", err
	}
	return username, domain, nil
}

// UserStore keeps mailboxes in the Dovecot passwd-file and the Postfix
// virtual mailbox map.
type UserStore struct {
	Runner host.Runner
	Root   string
	Cost   int
}

func NewUserStore(r host.Runner, root string) *UserStore {
	return &UserStore{Runner: r, Root: root, Cost: bcrypt.DefaultCost}
}

func (s *UserStore) path(p string) string {
	return filepath.Join(s.Root, p)
}

func maildir(username, domain string) string {
	return filepath.Join(MailRoot, domain, username)
}

// List returns the mailboxes in the passwd-file, sorted by address.
func (s *UserStore) List() ([]ManagedUser, error) {
	lines, err := readLines(s.path(UsersFile))
	if err != nil {
		return nil, err
	}
	var users []ManagedUser
	for _, line := range lines {
		addr, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		username, domain, ok := strings.Cut(addr, "@")
		if !ok {
			continue
		}
		users = append(users, ManagedUser{Username: username, Domain: domain, Maildir: maildir(username, domain)})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Address() < users[j].Address() })
	return users, nil
}

// Add creates a mailbox with a bcrypt password.
func (s *UserStore) Add(ctx context.Context, username, domain, password string) (ManagedUser, error) {
	const op = "add user"
	username, domain, err := ParseAddress(username + "@" + domain)
	if err != nil {
		return ManagedUser{}, err
	}
	u := ManagedUser{Username: username, Domain: domain, Maildir: maildir(username, domain)}
	if password == "" {
		return ManagedUser{}, errs.Validation(op, "password must not be empty")
	}

	existing, err := s.List()
	if err != nil {
		return ManagedUser{}, err
	}
	for _, e := range existing {
		if e.Address() == u.Address() {
			return ManagedUser{}, errs.Validation(op, "mailbox %s already exists", u.Address())
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return ManagedUser{}, fmt.Errorf("hash password: %w", err)
	}

	entry := fmt.Sprintf("%s:{BLF-CRYPT}%s::::::", u.Address(), hash)
	if err := s.update(UsersFile, func(lines []string) []string { return append(lines, entry) }); err != nil {
		return ManagedUser{}, err
	}
	mapping := fmt.Sprintf("%s %s/%s/", u.Address(), domain, username)
	if err := s.update(provision.PostfixVmailbox, func(lines []string) []string { return append(lines, mapping) }); err != nil {
		return ManagedUser{}, err
	}

	if err := os.MkdirAll(s.path(u.Maildir), 0o770); err != nil {
		return ManagedUser{}, fmt.Errorf("create maildir: %w", err)
	}
	for _, cmd := range []host.Command{
		host.Cmd("chown", "-R", VmailUser+":"+VmailUser, u.Maildir),
		host.Cmd("chown", "root:dovecot", UsersFile),
	} {
		if _, err := s.Runner.Run(ctx, cmd); err != nil {
			return ManagedUser{}, errs.ExternalTool(cmd.Line(), err)
		}
	}
	return u, nil
}

// Delete removes the mailbox and its maildir.
func (s *UserStore) Delete(ctx context.Context, username, domain string) error {
	addr := username + "@" + domain
	removed := false
	err := s.update(UsersFile, func(lines []string) []string {
		out := lines[:0]
		for _, l := range lines {
			if strings.HasPrefix(l, addr+":") {
				removed = true
				continue
			}
			out = append(out, l)
		}
		return out
	})
	if err != nil {
		return err
	}
	if !removed {
		return errs.Validation("delete user", "no mailbox %s", addr)
	}
	if err := s.update(provision.PostfixVmailbox, func(lines []string) []string {
		out := lines[:0]
		for _, l := range lines {
			if f := strings.Fields(l); len(f) > 0 && f[0] == addr {
				continue
			}
			out = append(out, l)
		}
		return out
	}); err != nil {
		return err
	}
	if err := os.RemoveAll(s.path(maildir(username, domain))); err != nil {
		return fmt.Errorf("remove maildir: %w", err)
	}
	return ctx.Err()
}

// update rewrites a line-oriented file through a temp file and rename.
func (s *UserStore) update(rel string, fn func([]string) []string) error {
	path := s.path(rel)
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	lines = fn(lines)

	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o640); err != nil {
		tmp.Close()
		return fmt.Errorf("update %s: %w", path, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("update %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

// readLines returns the non-empty, non-comment lines of path. A missing file
// has no lines.
func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		l := strings.TrimSpace(sc.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	return out, sc.Err()
}
