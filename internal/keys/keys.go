// Package keys implements WireGuard-style Curve25519 key material:
// generation, base64 encoding, file persistence with strict permission
// checks, and zeroization on close.
package keys

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/aurabx/wgagentd/internal/werrors"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/sys/unix"
)

// PrivateKey holds 32 bytes of Curve25519 scalar material. It is never
// logged or stringified in cleartext.
type PrivateKey struct {
	mu     sync.Mutex
	bytes  [32]byte
	zeroed bool
}

// PublicKey holds 32 bytes of Curve25519 point material. Unlike
// PrivateKey, it is safe to log.
type PublicKey struct {
	bytes [32]byte
}

// KeyPair bundles a PrivateKey with its derived PublicKey.
type KeyPair struct {
	Private *PrivateKey
	Public  PublicKey
}

// MARK: GeneratePrivateKey
func GeneratePrivateKey() (*PrivateKey, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, werrors.Wrap(werrors.Security, "generating private key", err)
	}
	clamp(&raw)
	return newPrivateKey(raw), nil
}

// MARK: ParsePrivateKeyBase64
func ParsePrivateKeyBase64(s string) (*PrivateKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, werrors.Wrap(werrors.Serialization, "decoding private key", err)
	}
	if len(decoded) != 32 {
		return nil, werrors.New(werrors.Serialization, "private key must decode to 32 bytes")
	}
	var raw [32]byte
	copy(raw[:], decoded)
	return newPrivateKey(raw), nil
}

// MARK: LoadPrivateKeyFile
// Reads a private key from disk, refusing to proceed if the file is
// group- or world-accessible.
func LoadPrivateKeyFile(path string) (*PrivateKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, werrors.Wrap(werrors.Platform, "stat private key file", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, werrors.New(werrors.Permission, fmt.Sprintf("private key file %s must not be group/world accessible (mode %04o)", path, info.Mode().Perm()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, werrors.Wrap(werrors.Platform, "reading private key file", err)
	}

	return ParsePrivateKeyBase64(trimNewline(string(data)))
}

// MARK: Save
// Writes the private key to path, base64-encoded, creating the file
// with mode 0600 if it doesn't already exist.
func (k *PrivateKey) Save(path string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.zeroed {
		return werrors.New(werrors.Security, "private key already zeroed")
	}

	encoded := base64.StdEncoding.EncodeToString(k.bytes[:]) + "\n"
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return werrors.Wrap(werrors.Platform, "creating private key file", err)
	}
	defer f.Close()

	if err := unix.Fchmod(int(f.Fd()), 0o600); err != nil {
		return werrors.Wrap(werrors.Permission, "setting private key file mode", err)
	}
	if _, err := f.WriteString(encoded); err != nil {
		return werrors.Wrap(werrors.Platform, "writing private key file", err)
	}
	return nil
}

// MARK: PublicKey
// Derives the corresponding PublicKey via Curve25519 scalar multiplication.
func (k *PrivateKey) PublicKey() (PublicKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.zeroed {
		return PublicKey{}, werrors.New(werrors.Security, "private key already zeroed")
	}

	pub, err := curve25519.X25519(k.bytes[:], curve25519.Basepoint)
	if err != nil {
		return PublicKey{}, werrors.Wrap(werrors.Security, "deriving public key", err)
	}
	var out PublicKey
	copy(out.bytes[:], pub)
	return out, nil
}

// MARK: Bytes
// Returns a copy of the raw scalar. Callers must not retain it beyond
// the PrivateKey's lifetime.
func (k *PrivateKey) Bytes() ([32]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.zeroed {
		return [32]byte{}, werrors.New(werrors.Security, "private key already zeroed")
	}
	return k.bytes, nil
}

// MARK: Close
// Zeroes the key material. Safe to call more than once.
func (k *PrivateKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.zeroed {
		return nil
	}
	for i := range k.bytes {
		k.bytes[i] = 0
	}
	k.zeroed = true
	runtime.SetFinalizer(k, nil)
	return nil
}

// MARK: String
func (k *PrivateKey) String() string {
	return "[REDACTED]"
}

// MARK: GoString
func (k *PrivateKey) GoString() string {
	return "keys.PrivateKey([REDACTED])"
}

func newPrivateKey(raw [32]byte) *PrivateKey {
	k := &PrivateKey{bytes: raw}
	runtime.SetFinalizer(k, func(k *PrivateKey) { _ = k.Close() })
	return k
}

func clamp(raw *[32]byte) {
	raw[0] &= 248
	raw[31] &= 127
	raw[31] |= 64
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

// MARK: ParsePublicKeyBase64
func ParsePublicKeyBase64(s string) (PublicKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return PublicKey{}, werrors.Wrap(werrors.Serialization, "decoding public key", err)
	}
	if len(decoded) != 32 {
		return PublicKey{}, werrors.New(werrors.Serialization, "public key must decode to 32 bytes")
	}
	var out PublicKey
	copy(out.bytes[:], decoded)
	return out, nil
}

// MARK: Bytes
func (p PublicKey) Bytes() [32]byte {
	return p.bytes
}

// MARK: Base64
func (p PublicKey) Base64() string {
	return base64.StdEncoding.EncodeToString(p.bytes[:])
}

// MARK: String
func (p PublicKey) String() string {
	return p.Base64()
}

// MARK: GoString
func (p PublicKey) GoString() string {
	return fmt.Sprintf("keys.PublicKey(%s)", p.Base64())
}

// MARK: Equal
func (p PublicKey) Equal(other PublicKey) bool {
	return p.bytes == other.bytes
}

// MARK: GenerateKeyPair
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// MARK: LoadKeyPairFile
func LoadKeyPairFile(path string) (*KeyPair, error) {
	priv, err := LoadPrivateKeyFile(path)
	if err != nil {
		return nil, err
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}
