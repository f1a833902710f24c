package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loykin/recipebook/internal/config"
)

// ParseMinVersion maps a config version string to a crypto/tls constant.
// Empty means TLS 1.2.
func ParseMinVersion(ver string) (uint16, error) {
	switch ver {
	case "", "1.2", "TLS1.2", "tls1.2":
		return tls.VersionTLS12, nil
	case "1.3", "TLS1.3", "tls1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", ver)
	}
}

// getCertificateFunc re-reads the key pair on every handshake so renewed
// certificates are picked up without a restart.
func getCertificateFunc(certFile, keyFile string) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		cert, err := tls.LoadX509KeyPair(filepath.Clean(certFile), filepath.Clean(keyFile))
		if err != nil {
			return nil, err
		}
		return &cert, nil
	}
}

// SetupTLS builds the server TLS configuration. It returns nil when TLS is
// disabled. The key pair is loaded once up front so a bad certificate is a
// startup error rather than a handshake failure.
func SetupTLS(c config.TLSConfig) (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, errors.New("TLS enabled but cert_file or key_file is empty")
	}
	minVer, err := ParseMinVersion(c.MinVersion)
	if err != nil {
		return nil, err
	}
	if _, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile); err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	// #nosec G402 minimum version is TLS 1.2 or higher
	return &tls.Config{
		GetCertificate: getCertificateFunc(c.CertFile, c.KeyFile),
		MinVersion:     minVer,
	}, nil
}

// certificatesExist checks if both certificate files exist
func certificatesExist(certPath, keyPath string) bool {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	return certErr == nil && keyErr == nil
}
