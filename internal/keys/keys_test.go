package keys

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateAndDeriveRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	defer priv.Close()

	pub, err := priv.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey() error = %v", err)
	}

	again, err := priv.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey() second call error = %v", err)
	}
	if !pub.Equal(again) {
		t.Fatalf("public key derivation is not deterministic")
	}
}

func TestPrivateKeyBase64RoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	defer priv.Close()

	raw, err := priv.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	decoded, err := ParsePrivateKeyBase64(base64.StdEncoding.EncodeToString(raw[:]))
	if err != nil {
		t.Fatalf("ParsePrivateKeyBase64() error = %v", err)
	}
	defer decoded.Close()

	rawDecoded, _ := decoded.Bytes()
	if rawDecoded != raw {
		t.Fatalf("round-tripped key material mismatch")
	}
}

func TestPrivateKeyNotLogged(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	defer priv.Close()

	if got := priv.String(); got != "[REDACTED]" {
		t.Fatalf("String() = %q, want [REDACTED]", got)
	}
	if got := priv.GoString(); got == "" {
		t.Fatalf("GoString() should not be empty")
	}
}

func TestPublicKeyIsLoggable(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	defer priv.Close()

	pub, _ := priv.PublicKey()
	if pub.String() != pub.Base64() {
		t.Fatalf("public key String() should equal its base64 form")
	}
}

func TestSaveAndLoadPrivateKeyFile(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	defer priv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "private.key")
	if err := priv.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %04o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadPrivateKeyFile(path)
	if err != nil {
		t.Fatalf("LoadPrivateKeyFile() error = %v", err)
	}
	defer loaded.Close()

	want, _ := priv.Bytes()
	got, _ := loaded.Bytes()
	if got != want {
		t.Fatalf("loaded key does not match saved key")
	}
}

func TestLoadPrivateKeyFileRejectsLoosePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "private.key")
	if err := os.WriteFile(path, []byte("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=\n"), 0o644); err != nil {
		t.Fatalf("writing test key file: %v", err)
	}

	if _, err := LoadPrivateKeyFile(path); err == nil {
		t.Fatalf("expected permission error for mode 0644 key file")
	}
}

func TestCloseZeroesKeyMaterial(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	if err := priv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := priv.Bytes(); err == nil {
		t.Fatalf("expected error reading bytes after Close()")
	}
	if err := priv.Close(); err != nil {
		t.Fatalf("Close() should be idempotent, got %v", err)
	}
}

func TestParsePrivateKeyBase64InvalidLength(t *testing.T) {
	if _, err := ParsePrivateKeyBase64("dG9vc2hvcnQ="); err == nil {
		t.Fatalf("expected error for short key")
	}
}
