package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/recipebook/internal/config"
)

func devCert(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	c := DevCertConfig(t.TempDir())
	require.NoError(t, GenerateSelfSignedCert(c))
	return c.CertPath, c.KeyPath
}

func TestGenerateSelfSignedCert(t *testing.T) {
	certPath, keyPath := devCert(t)

	b, err := os.ReadFile(certPath)
	require.NoError(t, err)
	block, _ := pem.Decode(b)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cert.Subject.CommonName)
	assert.Contains(t, cert.DNSNames, "localhost")
	assert.Len(t, cert.IPAddresses, 2)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)
}

func TestGenerateSelfSignedCert_KeepsExisting(t *testing.T) {
	c := DevCertConfig(t.TempDir())
	require.NoError(t, GenerateSelfSignedCert(c))
	first, err := os.ReadFile(c.CertPath)
	require.NoError(t, err)

	require.NoError(t, GenerateSelfSignedCert(c))
	second, err := os.ReadFile(c.CertPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	c.Overwrite = true
	require.NoError(t, GenerateSelfSignedCert(c))
	third, err := os.ReadFile(c.CertPath)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestGenerateSelfSignedCert_Errors(t *testing.T) {
	assert.Error(t, GenerateSelfSignedCert(CertConfig{}))
	c := DevCertConfig(filepath.Join(t.TempDir(), "missing-dir"))
	assert.Error(t, GenerateSelfSignedCert(c))
}

func TestSetupTLS_Disabled(t *testing.T) {
	cfg, err := SetupTLS(config.TLSConfig{})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSetupTLS_Enabled(t *testing.T) {
	certPath, keyPath := devCert(t)
	cfg, err := SetupTLS(config.TLSConfig{Enabled: true, CertFile: certPath, KeyFile: keyPath, MinVersion: "1.3"})
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)

	cert, err := cfg.GetCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
}

func TestSetupTLS_Errors(t *testing.T) {
	certPath, keyPath := devCert(t)
	tests := []struct {
		name string
		cfg  config.TLSConfig
	}{
		{"no files", config.TLSConfig{Enabled: true}},
		{"bad version", config.TLSConfig{Enabled: true, CertFile: certPath, KeyFile: keyPath, MinVersion: "1.0"}},
		{"missing cert", config.TLSConfig{Enabled: true, CertFile: certPath + ".nope", KeyFile: keyPath}},
		{"swapped files", config.TLSConfig{Enabled: true, CertFile: keyPath, KeyFile: certPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SetupTLS(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestParseMinVersion(t *testing.T) {
	v, err := ParseMinVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), v)
	v, err = ParseMinVersion("tls1.3")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), v)
	_, err = ParseMinVersion("1.1")
	assert.Error(t, err)
}
