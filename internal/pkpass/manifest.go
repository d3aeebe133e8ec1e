package pkpass

import (
	"crypto/sha1" //nolint:gosec // the pass format mandates SHA-1 manifest digests
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	passFile      = "pass.json"
	manifestFile  = "manifest.json"
	signatureFile = "signature"
)

var (
	// ErrManifest is an IntegrityError: the manifest does not describe the
	// archive it ships in.
	ErrManifest = errors.New("pkpass: manifest mismatch")
	// ErrSigning is an IntegrityError: the manifest could not be signed.
	ErrSigning = errors.New("pkpass: signing failed")
)

// Manifest maps each archive entry to the hex SHA-1 of its content.
type Manifest map[string]string

func newManifest(files map[string][]byte) Manifest {
	m := make(Manifest, len(files))
	for name, data := range files {
		m[name] = digest(data)
	}
	return m
}

// Bytes renders the manifest. encoding/json sorts map keys, so the output
// is stable for a given file set.
func (m Manifest) Bytes() ([]byte, error) {
	out, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrManifest, err)
	}
	return out, nil
}

func (m Manifest) check(name string, data []byte) error {
	want, ok := m[name]
	if !ok {
		return fmt.Errorf("%w: %s not listed", ErrManifest, name)
	}
	if got := digest(data); got != want {
		return fmt.Errorf("%w: %s digest %s, manifest %s", ErrManifest, name, got, want)
	}
	return nil
}

func digest(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
