// Package token implements the symmetric token handshake the identity
// source expects on every request.
//
// Two schemes are supported. The salted scheme is byte-compatible with
// `openssl enc -aes-256-cbc -md md5`: an 8-byte "Salted__" marker, an 8-byte
// salt, then CBC ciphertext, with key and IV derived by EVP_BytesToKey. The
// digest scheme keys AES-256 with SHA-256(secret) and prepends a random IV.
// Both draw fresh randomness per call so tokens are never reproducible.
package token

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // EVP_BytesToKey compatibility, not integrity
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

var (
	// ErrCodec is the parent of every decode failure.
	ErrCodec      = errors.New("token codec")
	ErrMalformed  = fmt.Errorf("%w: malformed token", ErrCodec)
	ErrBadPadding = fmt.Errorf("%w: bad padding", ErrCodec)
)

// Scheme selects the key derivation variant.
type Scheme string

const (
	SaltedScheme Scheme = "salted"
	DigestScheme Scheme = "digest"
)

const (
	saltMarker = "Salted__"
	saltLen    = 8
	keyLen     = 32
)

// Codec encrypts and decrypts identity tokens.
type Codec struct {
	scheme Scheme
	rand   io.Reader
}

type Option func(*Codec)

// WithRand overrides the randomness source. Tests only.
func WithRand(r io.Reader) Option {
	return func(c *Codec) { c.rand = r }
}

// New returns a codec for the given scheme. Unknown schemes fall back to
// SaltedScheme.
func New(scheme Scheme, opts ...Option) *Codec {
	if scheme != DigestScheme {
		scheme = SaltedScheme
	}
	c := &Codec{scheme: scheme, rand: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scheme reports the configured variant.
func (c *Codec) Scheme() Scheme { return c.scheme }

// IdentityPayload renders the plaintext the identity source validates:
// "<identity_id>-<unix_timestamp>". Freshness is enforced upstream.
func IdentityPayload(id string, now time.Time) string {
	return id + "-" + strconv.FormatInt(now.Unix(), 10)
}

// Encrypt returns a std-base64 token for plaintext under secret.
func (c *Codec) Encrypt(plaintext, secret string) (string, error) {
	switch c.scheme {
	case DigestScheme:
		return c.encryptDigest(plaintext, secret)
	default:
		return c.encryptSalted(plaintext, secret)
	}
}

// Decrypt reverses Encrypt. Failures wrap ErrCodec.
func (c *Codec) Decrypt(token, secret string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch c.scheme {
	case DigestScheme:
		return decryptDigest(raw, secret)
	default:
		return decryptSalted(raw, secret)
	}
}

func (c *Codec) encryptSalted(plaintext, secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key, iv := deriveKeyIV([]byte(secret), salt)
	ct, err := cbcEncrypt(key, iv, []byte(plaintext))
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, len(saltMarker)+saltLen+len(ct))
	out = append(out, saltMarker...)
	out = append(out, salt...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func decryptSalted(raw []byte, secret string) (string, error) {
	if len(raw) < len(saltMarker)+saltLen+aes.BlockSize || !bytes.HasPrefix(raw, []byte(saltMarker)) {
		return "", ErrMalformed
	}
	salt := raw[len(saltMarker) : len(saltMarker)+saltLen]
	key, iv := deriveKeyIV([]byte(secret), salt)
	pt, err := cbcDecrypt(key, iv, raw[len(saltMarker)+saltLen:])
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func (c *Codec) encryptDigest(plaintext, secret string) (string, error) {
	key := sha256.Sum256([]byte(secret))
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}
	ct, err := cbcEncrypt(key[:], iv, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(append(iv, ct...)), nil
}

func decryptDigest(raw []byte, secret string) (string, error) {
	if len(raw) < 2*aes.BlockSize {
		return "", ErrMalformed
	}
	key := sha256.Sum256([]byte(secret))
	pt, err := cbcDecrypt(key[:], raw[:aes.BlockSize], raw[aes.BlockSize:])
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// deriveKeyIV is OpenSSL's EVP_BytesToKey with MD5 and one iteration:
// d_i = MD5(d_{i-1} || secret || salt) until 48 bytes are available.
func deriveKeyIV(secret, salt []byte) (key, iv []byte) {
	var d, prev []byte
	for len(d) < keyLen+aes.BlockSize {
		h := md5.New() //nolint:gosec
		h.Write(prev)
		h.Write(secret)
		h.Write(salt)
		prev = h.Sum(nil)
		d = append(d, prev...)
	}
	return d[:keyLen], d[keyLen : keyLen+aes.BlockSize]
}

func cbcEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func cbcDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrMalformed
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
