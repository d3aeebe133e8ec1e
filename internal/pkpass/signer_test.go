package pkpass

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smallstep/pkcs7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/internal/platform/config"
)

func TestPKCS7Signer_DetachedSignature(t *testing.T) {
	s := newTestSigner(t)
	manifest := []byte(`{"pass.json":"abc"}`)

	der, err := s.Sign(manifest)
	require.NoError(t, err)

	p7, err := pkcs7.Parse(der)
	require.NoError(t, err)
	assert.Empty(t, p7.Content, "signature is detached")
	assert.Len(t, p7.Certificates, 2, "leaf and WWDR are embedded")

	require.NoError(t, verifySignature(der, manifest))
	assert.ErrorIs(t, verifySignature(der, []byte(`{"pass.json":"abd"}`)), ErrSigning)
}

func TestLoadSigner_PEM(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := newTestIdentity(t, "leaf").writePEM(t, dir)

	wwdr := newTestIdentity(t, "wwdr")
	wwdrPath := filepath.Join(dir, "wwdr.cer")
	require.NoError(t, os.WriteFile(wwdrPath, wwdr.cert.Raw, 0o600))

	s, err := LoadSigner(config.Signing{CertificatePath: certPath, KeyPath: keyPath, WWDRPath: wwdrPath})
	require.NoError(t, err)
	_, err = s.Sign([]byte("{}"))
	require.NoError(t, err)
}

func TestLoadSigner_Errors(t *testing.T) {
	_, err := LoadSigner(config.Signing{})
	assert.Error(t, err)

	_, err = LoadSigner(config.Signing{P12Path: filepath.Join(t.TempDir(), "missing.p12")})
	assert.Error(t, err)

	dir := t.TempDir()
	certPath, keyPath := newTestIdentity(t, "leaf").writePEM(t, dir)
	bad := filepath.Join(dir, "bad.cer")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0o600))
	_, err = LoadSigner(config.Signing{CertificatePath: certPath, KeyPath: keyPath, WWDRPath: bad})
	assert.Error(t, err)
}

func TestLoadAssets(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadAssets(dir)
	require.Error(t, err, "icon.png is required")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "icon.png"), []byte("i"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thumbnail.png"), []byte("t"), 0o600))

	a, err := LoadAssets(dir)
	require.NoError(t, err)
	assert.Equal(t, []byte("i"), a.Static["icon.png"])
	assert.Equal(t, []byte("t"), a.Thumbnails["thumbnail.png"])
	assert.NotContains(t, a.Static, "logo.png")
}
