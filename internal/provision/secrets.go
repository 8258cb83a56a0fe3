package provision

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
)

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Secret lengths of the generated settings.
const (
	DBPassLength    = 28
	DBRootLength    = 28
	RedisPassLength = 28
	SogoKeyLength   = 16
)

// Secrets holds the generated credentials. Its String and LogValue forms
// never include the values.
type Secrets struct {
	DBPass    string
	DBRoot    string
	RedisPass string
	SogoKey   string
}

// GenerateSecret returns n characters drawn uniformly from [A-Za-z0-9].
func GenerateSecret(r io.Reader, n int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	limit := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(r, limit)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		out[i] = secretAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewSecrets draws the four independent credentials.
func NewSecrets(r io.Reader) (Secrets, error) {
	var s Secrets
	fields := []struct {
		dst *string
		n   int
	}{
		{&s.DBPass, DBPassLength},
		{&s.DBRoot, DBRootLength},
		{&s.RedisPass, RedisPassLength},
		{&s.SogoKey, SogoKeyLength},
	}
	for _, f := range fields {
		v, err := GenerateSecret(r, f.n)
		if err != nil {
			return Secrets{}, err
		}
		*f.dst = v
	}
	return s, nil
}

func (s Secrets) String() string {
	return "[redacted]"
}

// LogValue reports only the secret names and lengths.
func (s Secrets) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("DBPASS", len(s.DBPass)),
		slog.Int("DBROOT", len(s.DBRoot)),
		slog.Int("REDISPASS", len(s.RedisPass)),
		slog.Int("SOGO_URL_ENCRYPTION_KEY", len(s.SogoKey)),
	)
}
