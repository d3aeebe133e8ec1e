package pkpass

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zip"
)

// ContentType is the media type of a signed pass archive.
const ContentType = "application/vnd.apple.pkpass"

// Archive is a signed, zipped pass ready to serve.
type Archive struct {
	SerialNumber string
	VersionHash  string
	Bytes        []byte
}

// Len reports the archive size in bytes.
func (a *Archive) Len() int {
	return len(a.Bytes)
}

// writeZip stores the signature and manifest first, then pass.json and the
// remaining entries in name order.
func writeZip(signature, manifest []byte, files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	if err := write(signatureFile, signature); err != nil {
		return nil, err
	}
	if err := write(manifestFile, manifest); err != nil {
		return nil, err
	}
	if err := write(passFile, files[passFile]); err != nil {
		return nil, err
	}
	for _, name := range sortedNames(files) {
		if name == passFile {
			continue
		}
		if err := write(name, files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Contents is the decoded form of an archive.
type Contents struct {
	Manifest  Manifest
	Signature []byte
	Files     map[string][]byte
}

// Open unzips an archive without checking it.
func Open(data []byte) (*Contents, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	c := &Contents{Files: make(map[string][]byte, len(zr.File))}
	var rawManifest []byte
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		switch f.Name {
		case manifestFile:
			rawManifest = b
		case signatureFile:
			c.Signature = b
		default:
			c.Files[f.Name] = b
		}
	}
	if rawManifest == nil {
		return nil, fmt.Errorf("%w: %s missing", ErrManifest, manifestFile)
	}
	if err := json.Unmarshal(rawManifest, &c.Manifest); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrManifest, err)
	}
	c.Files[manifestFile] = rawManifest
	return c, nil
}

// Verify re-reads an archive and checks that the manifest lists exactly the
// payload entries with matching digests and that the signature covers the
// manifest.
func Verify(data []byte) error {
	c, err := Open(data)
	if err != nil {
		return err
	}
	if _, ok := c.Files[passFile]; !ok {
		return fmt.Errorf("%w: %s missing", ErrManifest, passFile)
	}
	payload := 0
	for name, b := range c.Files {
		if name == manifestFile {
			continue
		}
		if err := c.Manifest.check(name, b); err != nil {
			return err
		}
		payload++
	}
	if payload != len(c.Manifest) {
		return fmt.Errorf("%w: manifest lists %d entries, archive has %d", ErrManifest, len(c.Manifest), payload)
	}
	if len(c.Signature) == 0 {
		return fmt.Errorf("%w: %s missing", ErrSigning, signatureFile)
	}
	return verifySignature(c.Signature, c.Files[manifestFile])
}

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
