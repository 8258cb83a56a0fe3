package provision

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret_LengthAlphabetUniqueness(t *testing.T) {
	for _, n := range []int{DBPassLength, SogoKeyLength} {
		seen := make(map[string]bool, 1000)
		for i := 0; i < 1000; i++ {
			s, err := GenerateSecret(nil, n)
			require.NoError(t, err)
			require.Len(t, s, n)
			for _, r := range s {
				require.True(t, strings.ContainsRune(secretAlphabet, r), "unexpected character %q", r)
			}
			require.False(t, seen[s], "duplicate secret after %d samples", i)
			seen[s] = true
		}
	}
}

func TestGenerateSecret_ReaderFailure(t *testing.T) {
	_, err := GenerateSecret(bytes.NewReader(nil), 8)
	assert.Error(t, err)
}

func TestNewSecrets(t *testing.T) {
	s, err := NewSecrets(nil)
	require.NoError(t, err)
	assert.Len(t, s.DBPass, 28)
	assert.Len(t, s.DBRoot, 28)
	assert.Len(t, s.RedisPass, 28)
	assert.Len(t, s.SogoKey, 16)
	assert.NotEqual(t, s.DBPass, s.DBRoot)
}

func TestSecrets_NeverRendered(t *testing.T) {
	s, err := NewSecrets(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("generated", slog.Any("secrets", s))
	out := buf.String() + fmt.Sprintf("%v %+v %s", s, s, s)

	for _, v := range []string{s.DBPass, s.DBRoot, s.RedisPass, s.SogoKey} {
		assert.NotContains(t, out, v)
	}
	assert.Contains(t, buf.String(), "secrets.DBPASS=28")
}
