package pkpass

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/smallstep/pkcs7"
	"golang.org/x/crypto/pkcs12"

	"mobilid/internal/platform/config"
)

// Signer produces the detached signature stored as the archive's
// "signature" entry.
type Signer interface {
	Sign(manifest []byte) ([]byte, error)
}

// PKCS7Signer signs manifests with the pass type certificate, embedding the
// WWDR intermediate so wallets can build the chain.
type PKCS7Signer struct {
	cert *x509.Certificate
	key  crypto.PrivateKey
	wwdr *x509.Certificate
}

func NewPKCS7Signer(cert *x509.Certificate, key crypto.PrivateKey, wwdr *x509.Certificate) (*PKCS7Signer, error) {
	if cert == nil || key == nil {
		return nil, errors.New("pkpass: signer requires a certificate and key")
	}
	return &PKCS7Signer{cert: cert, key: key, wwdr: wwdr}, nil
}

// LoadSigner builds a signer from the configured credentials. A .p12 bundle
// wins over separate PEM certificate and key files.
func LoadSigner(cfg config.Signing) (*PKCS7Signer, error) {
	var (
		cert *x509.Certificate
		key  crypto.PrivateKey
		err  error
	)
	switch {
	case cfg.P12Path != "":
		cert, key, err = loadP12(cfg.P12Path, cfg.P12Password)
	case cfg.CertificatePath != "" && cfg.KeyPath != "":
		cert, key, err = loadPEMPair(cfg.CertificatePath, cfg.KeyPath)
	default:
		return nil, errors.New("pkpass: no signing credentials configured")
	}
	if err != nil {
		return nil, err
	}

	var wwdr *x509.Certificate
	if cfg.WWDRPath != "" {
		if wwdr, err = loadCertificate(cfg.WWDRPath); err != nil {
			return nil, err
		}
	}
	return NewPKCS7Signer(cert, key, wwdr)
}

func (s *PKCS7Signer) Sign(manifest []byte) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	var parents []*x509.Certificate
	if s.wwdr != nil {
		parents = append(parents, s.wwdr)
	}
	if err := sd.AddSignerChain(s.cert, s.key, parents, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("%w: add signer: %v", ErrSigning, err)
	}
	sd.Detach()

	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: finish: %v", ErrSigning, err)
	}
	return der, nil
}

// verifySignature checks a detached signature against the manifest bytes.
// Chain trust is not evaluated.
func verifySignature(signature, manifest []byte) error {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return fmt.Errorf("%w: parse signature: %v", ErrSigning, err)
	}
	p7.Content = manifest
	if err := p7.Verify(); err != nil {
		return fmt.Errorf("%w: verify signature: %v", ErrSigning, err)
	}
	return nil
}

func loadP12(path, password string) (*x509.Certificate, crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read p12: %w", err)
	}
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("decode p12: %w", err)
	}
	return cert, key, nil
}

func loadPEMPair(certPath, keyPath string) (*x509.Certificate, crypto.PrivateKey, error) {
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load key pair: %w", err)
	}
	leaf := pair.Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(pair.Certificate[0]); err != nil {
			return nil, nil, fmt.Errorf("parse certificate: %w", err)
		}
	}
	return leaf, pair.PrivateKey, nil
}

// loadCertificate accepts PEM or raw DER; Apple ships the WWDR cert as DER.
func loadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("parse certificate %s: %w", path, err)
	}
	return cert, nil
}
