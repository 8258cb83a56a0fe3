package provision

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultKeyBits is the RSA size of the fallback certificate.
	DefaultKeyBits = 4096
	certValidity   = 365 * 24 * time.Hour

	exampleCertDir = "data/assets/ssl-example"
	liveCertDir    = "data/assets/ssl"
	certFile       = "cert.pem"
	keyFile        = "key.pem"
)

// Certificate locates the fallback pair inside a work dir.
type Certificate struct {
	CertPath string
	KeyPath  string
	// Generated is false when an existing example pair was kept.
	Generated bool
	// Installed is true when the pair was copied into the live ssl dir.
	Installed bool
}

// EnsureSelfSigned writes a self-signed pair (CN = hostname) to the example
// assets dir unless one is already there, then copies it into the live ssl
// dir only where no file of the same name exists.
func EnsureSelfSigned(workDir, hostname string, bits int, now time.Time) (Certificate, error) {
	exDir := filepath.Join(workDir, exampleCertDir)
	c := Certificate{
		CertPath: filepath.Join(exDir, certFile),
		KeyPath:  filepath.Join(exDir, keyFile),
	}

	if !exists(c.CertPath) || !exists(c.KeyPath) {
		if err := os.MkdirAll(exDir, 0o755); err != nil {
			return c, fmt.Errorf("create %s: %w", exDir, err)
		}
		certPEM, keyPEM, err := selfSigned(hostname, bits, now)
		if err != nil {
			return c, err
		}
		if err := os.WriteFile(c.KeyPath, keyPEM, 0o600); err != nil {
			return c, fmt.Errorf("write key: %w", err)
		}
		if err := os.WriteFile(c.CertPath, certPEM, 0o644); err != nil {
			return c, fmt.Errorf("write certificate: %w", err)
		}
		c.Generated = true
	}

	liveDir := filepath.Join(workDir, liveCertDir)
	if err := os.MkdirAll(liveDir, 0o755); err != nil {
		return c, fmt.Errorf("create %s: %w", liveDir, err)
	}
	for _, pair := range []struct {
		src  string
		name string
		mode os.FileMode
	}{
		{c.CertPath, certFile, 0o644},
		{c.KeyPath, keyFile, 0o600},
	} {
		copied, err := copyIfAbsent(pair.src, filepath.Join(liveDir, pair.name), pair.mode)
		if err != nil {
			return c, err
		}
		c.Installed = c.Installed || copied
	}
	return c, nil
}

func selfSigned(hostname string, bits int, now time.Time) (certPEM, keyPEM []byte, err error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate private key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"mailcow"},
			CommonName:   hostname,
		},
		DNSNames:  []string{hostname},
		NotBefore: now,
		NotAfter:  now.Add(certValidity),

		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

func copyIfAbsent(src, dst string, mode os.FileMode) (bool, error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	in, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return false, fmt.Errorf("copy %s: %w", dst, err)
	}
	return true, out.Close()
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
