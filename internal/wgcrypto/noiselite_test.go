package wgcrypto

import (
	"bytes"
	"net"
	"testing"

	"github.com/aurabx/wgagentd/internal/keys"
)

func newPeerPair(t *testing.T) (a, b *NoiseLiteSession) {
	t.Helper()

	localA, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	localB, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}

	pubA, _ := localA.PublicKey()
	pubB, _ := localB.PublicKey()

	sessA, err := NewNoiseLiteSession(localA, pubB, true, nil)
	if err != nil {
		t.Fatalf("NewNoiseLiteSession(A) error = %v", err)
	}
	sessB, err := NewNoiseLiteSession(localB, pubA, false, nil)
	if err != nil {
		t.Fatalf("NewNoiseLiteSession(B) error = %v", err)
	}
	return sessA, sessB
}

var testSourceHint = net.ParseIP("198.51.100.1")

func ipv4Packet(payload string) []byte {
	pkt := make([]byte, 20+len(payload))
	pkt[0] = 0x45
	copy(pkt[20:], payload)
	return pkt
}

func TestEncapsulateDecapsulateRoundTrip(t *testing.T) {
	a, b := newPeerPair(t)

	plaintext := ipv4Packet("hello from A")
	result := a.Encapsulate(plaintext)
	if result.Kind != WriteToNetwork {
		t.Fatalf("Encapsulate() kind = %v, want WriteToNetwork", result.Kind)
	}

	decoded := b.Decapsulate(testSourceHint, result.Data)
	if decoded.Kind != WriteToTunnelV4 {
		t.Fatalf("Decapsulate() kind = %v, want WriteToTunnelV4", decoded.Kind)
	}
	if !bytes.Equal(decoded.Data, plaintext) {
		t.Fatalf("round-tripped packet mismatch")
	}
}

func TestDecapsulateRejectsReplay(t *testing.T) {
	a, b := newPeerPair(t)

	datagram := a.Encapsulate(ipv4Packet("once")).Data

	first := b.Decapsulate(testSourceHint, datagram)
	if first.Kind != WriteToTunnelV4 {
		t.Fatalf("first decapsulate should succeed, got %v", first.Kind)
	}

	second := b.Decapsulate(testSourceHint, datagram)
	if second.Kind != Err {
		t.Fatalf("replayed datagram should be rejected, got %v", second.Kind)
	}
}

func TestDecapsulateRejectsTamperedCiphertext(t *testing.T) {
	a, b := newPeerPair(t)

	datagram := a.Encapsulate(ipv4Packet("tamper me")).Data
	tampered := append([]byte(nil), datagram...)
	tampered[len(tampered)-1] ^= 0xFF

	result := b.Decapsulate(testSourceHint, tampered)
	if result.Kind != Err {
		t.Fatalf("tampered datagram should fail auth, got %v", result.Kind)
	}
}

func TestDecapsulateRejectsForeignSession(t *testing.T) {
	_, b := newPeerPair(t)
	c, _ := newPeerPair(t)

	datagram := c.Encapsulate(ipv4Packet("wrong session")).Data
	result := b.Decapsulate(testSourceHint, datagram)
	if result.Kind != Err {
		t.Fatalf("datagram from unrelated session should be rejected, got %v", result.Kind)
	}
}

func TestTickIsANoOp(t *testing.T) {
	a, _ := newPeerPair(t)
	if got := a.Tick(); got.Kind != Done {
		t.Fatalf("Tick() = %v, want Done", got.Kind)
	}
}

func TestMismatchedPresharedKeysFailToCommunicate(t *testing.T) {
	localA, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	localB, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	pubA, _ := localA.PublicKey()
	pubB, _ := localB.PublicKey()

	pskA := bytes.Repeat([]byte{0xAA}, 32)
	pskB := bytes.Repeat([]byte{0xBB}, 32)

	a, err := NewNoiseLiteSession(localA, pubB, true, pskA)
	if err != nil {
		t.Fatalf("NewNoiseLiteSession(A) error = %v", err)
	}
	b, err := NewNoiseLiteSession(localB, pubA, false, pskB)
	if err != nil {
		t.Fatalf("NewNoiseLiteSession(B) error = %v", err)
	}

	datagram := a.Encapsulate(ipv4Packet("psk mismatch")).Data
	if result := b.Decapsulate(testSourceHint, datagram); result.Kind != Err {
		t.Fatalf("decapsulate with mismatched preshared keys should fail, got %v", result.Kind)
	}
}

func TestMatchingPresharedKeysCommunicate(t *testing.T) {
	localA, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	localB, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	pubA, _ := localA.PublicKey()
	pubB, _ := localB.PublicKey()

	psk := bytes.Repeat([]byte{0xCC}, 32)

	a, err := NewNoiseLiteSession(localA, pubB, true, psk)
	if err != nil {
		t.Fatalf("NewNoiseLiteSession(A) error = %v", err)
	}
	b, err := NewNoiseLiteSession(localB, pubA, false, psk)
	if err != nil {
		t.Fatalf("NewNoiseLiteSession(B) error = %v", err)
	}

	plaintext := ipv4Packet("psk match")
	datagram := a.Encapsulate(plaintext).Data
	result := b.Decapsulate(testSourceHint, datagram)
	if result.Kind != WriteToTunnelV4 {
		t.Fatalf("decapsulate with matching preshared keys should succeed, got %v", result.Kind)
	}
	if !bytes.Equal(result.Data, plaintext) {
		t.Fatalf("round-tripped packet mismatch")
	}
}
