package pkpass

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"image"
	"image/color"
	"image/png"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	passmodels "mobilid/internal/pass/models"
	"mobilid/internal/platform/config"
)

type testIdentity struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
}

func newTestIdentity(t *testing.T, cn string) testIdentity {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return testIdentity{cert: cert, key: key}
}

func (id testIdentity) writePEM(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()
	certPath = filepath.Join(dir, "pass.pem")
	keyPath = filepath.Join(dir, "pass.key")
	require.NoError(t, os.WriteFile(certPath,
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.cert.Raw}), 0o600))
	require.NoError(t, os.WriteFile(keyPath,
		pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(id.key)}), 0o600))
	return certPath, keyPath
}

func newTestSigner(t *testing.T) *PKCS7Signer {
	t.Helper()
	leaf := newTestIdentity(t, "Pass Type ID: pass.edu.oc.id")
	wwdr := newTestIdentity(t, "Test WWDR")
	s, err := NewPKCS7Signer(leaf.cert, leaf.key, wwdr.cert)
	require.NoError(t, err)
	return s
}

func testAssets() *Assets {
	return &Assets{
		Static: map[string][]byte{
			"icon.png":    []byte("icon"),
			"icon@2x.png": []byte("icon2"),
			"logo.png":    []byte("logo"),
		},
		Thumbnails: map[string][]byte{
			"thumbnail.png":    []byte("default-thumb"),
			"thumbnail@2x.png": []byte("default-thumb2"),
			"thumbnail@3x.png": []byte("default-thumb3"),
		},
	}
}

func testPassConfig() config.Pass {
	cfg := config.Default().Pass
	cfg.TypeIdentifier = "pass.edu.oc.id"
	cfg.TeamIdentifier = "TEAM123"
	cfg.WebServiceURL = "https://passes.example.edu/passkit"
	return cfg
}

func testRecord() passmodels.PassRecord {
	return passmodels.PassRecord{
		SerialNumber: "1234567",
		PassType:     "pass.edu.oc.id",
		VersionHash:  "hash-one",
		AuthToken:    "auth-token",
		LastUpdate:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Attributes: passmodels.Attributes{
			Name:           "Jane Doe",
			Balance:        "12.50",
			MealsRemaining: "3",
			KudosEarned:    "4",
			KudosRequired:  "10",
			PIN:            "1234",
			PrintBalance:   "1.20",
		},
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 50))
	for x := 0; x < 40; x++ {
		for y := 0; y < 50; y++ {
			img.Set(x, y, color.RGBA{R: 128, G: 20, B: 41, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
