package wgcrypto

import (
	"crypto/cipher"
	"encoding/binary"
	"hash"
	"net"
	"sync"
	"sync/atomic"

	"github.com/aurabx/wgagentd/internal/keys"
	"github.com/aurabx/wgagentd/internal/werrors"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	headerLen    = 16 + 1 + 8 // session id + direction byte + nonce
	directionTx  = 0x01
	directionRx  = 0x02
	minPacketLen = 20
)

// NoiseLiteSession is a concrete Session realized with Curve25519 ECDH,
// HKDF key derivation over BLAKE2s-256, and ChaCha20-Poly1305 AEAD in each
// direction — the same primitive family a Noise_IKpsk2 session uses,
// arranged into a single synchronous key-agreement step rather than the
// full handshake state machine (out of scope; see the package doc).
type NoiseLiteSession struct {
	mu sync.Mutex

	sessionID   [16]byte
	isInitiator bool

	sendAEAD cipher.AEAD
	recvAEAD cipher.AEAD
	sendCtr  uint64
	recvSeen map[uint64]struct{}
}

// MARK: NewNoiseLiteSession
// Derives a session from a local private key and a remote public key.
// isInitiator picks which derived key is used for which direction so
// the two ends of a session agree on sendAEAD/recvAEAD without
// exchanging anything beyond the static public keys already present in
// configuration — a simplification that assumes out-of-band key
// agreement has already happened, consistent with this being a "lite"
// stand-in rather than a full handshake. psk is the peer's optional
// preshared key (32 bytes, or nil); when set it is mixed into the HKDF
// input keying material, the simplified stand-in here for what a real
// Noise_IKpsk2 handshake does with PSK at its mix_key step.
func NewNoiseLiteSession(local *keys.PrivateKey, remote keys.PublicKey, isInitiator bool, psk []byte) (*NoiseLiteSession, error) {
	localRaw, err := local.Bytes()
	if err != nil {
		return nil, werrors.Wrap(werrors.Security, "reading local private key", err)
	}
	remoteRaw := remote.Bytes()

	shared, err := curve25519.X25519(localRaw[:], remoteRaw[:])
	if err != nil {
		return nil, werrors.Wrap(werrors.Security, "computing shared secret", err)
	}
	if len(psk) > 0 {
		shared = append(shared, psk...)
	}

	localPub, err := local.PublicKey()
	if err != nil {
		return nil, werrors.Wrap(werrors.Security, "deriving local public key", err)
	}
	localPubRaw := localPub.Bytes()
	initiatorPub, responderPub := localPubRaw[:], remoteRaw[:]
	if !isInitiator {
		initiatorPub, responderPub = remoteRaw[:], localPubRaw[:]
	}

	initToResp, respToInit, sessionID, err := deriveKeys(shared, initiatorPub, responderPub)
	if err != nil {
		return nil, err
	}

	var sendKey, recvKey []byte
	if isInitiator {
		sendKey, recvKey = initToResp, respToInit
	} else {
		sendKey, recvKey = respToInit, initToResp
	}

	sendAEAD, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return nil, werrors.Wrap(werrors.Security, "constructing send cipher", err)
	}
	recvAEAD, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return nil, werrors.Wrap(werrors.Security, "constructing recv cipher", err)
	}

	return &NoiseLiteSession{
		sessionID:   sessionID,
		isInitiator: isInitiator,
		sendAEAD:    sendAEAD,
		recvAEAD:    recvAEAD,
		recvSeen:    make(map[uint64]struct{}),
	}, nil
}

// deriveKeys expands the ECDH shared secret into two direction-specific
// keys plus a 16-byte session id, using HKDF over BLAKE2s-256 and distinct
// info strings — the same key-separation idiom the chacha20 session package
// uses for its send/recv nonces, applied here to key material instead. The
// salt is the initiator's public key followed by the responder's, so both
// ends derive identical keys.
func deriveKeys(shared, initiatorPub, responderPub []byte) (initToResp, respToInit []byte, sessionID [16]byte, err error) {
	salt := append(append([]byte{}, initiatorPub...), responderPub...)

	initToResp = make([]byte, chacha20poly1305.KeySize)
	if _, err = hkdfRead(shared, salt, []byte("wgagentd init->resp"), initToResp); err != nil {
		return nil, nil, sessionID, err
	}
	respToInit = make([]byte, chacha20poly1305.KeySize)
	if _, err = hkdfRead(shared, salt, []byte("wgagentd resp->init"), respToInit); err != nil {
		return nil, nil, sessionID, err
	}
	idBytes := make([]byte, 16)
	if _, err = hkdfRead(shared, salt, []byte("wgagentd session-id"), idBytes); err != nil {
		return nil, nil, sessionID, err
	}
	copy(sessionID[:], idBytes)
	return initToResp, respToInit, sessionID, nil
}

func hkdfRead(secret, salt, info, out []byte) (int, error) {
	r := hkdf.New(blake2sNew, secret, salt, info)
	return r.Read(out)
}

func blake2sNew() hash.Hash {
	h, _ := blake2s.New256(nil)
	return h
}

// MARK: Encapsulate
func (s *NoiseLiteSession) Encapsulate(packet []byte) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := atomic.AddUint64(&s.sendCtr, 1)
	aad := s.buildAAD(directionFor(s.isInitiator, true), nonce)
	nonceBytes := aeadNonce(nonce)

	sealed := s.sendAEAD.Seal(nil, nonceBytes, packet, aad)

	out := make([]byte, 0, headerLen+len(sealed))
	out = append(out, s.sessionID[:]...)
	out = append(out, directionFor(s.isInitiator, true))
	out = binary.BigEndian.AppendUint64(out, nonce)
	out = append(out, sealed...)
	return network(out)
}

// MARK: Decapsulate
// sourceHint is the datagram's source IP, passed through per the Session
// contract; this design drops unrecognized senders upstream of here
// rather than using it to learn roaming endpoints (see Non-goals), so it
// is not otherwise consulted.
func (s *NoiseLiteSession) Decapsulate(sourceHint net.IP, datagram []byte) Result {
	if len(datagram) < headerLen {
		return fail("datagram shorter than session header")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var gotID [16]byte
	copy(gotID[:], datagram[:16])
	if gotID != s.sessionID {
		return fail("session id mismatch")
	}

	direction := datagram[16]
	nonce := binary.BigEndian.Uint64(datagram[17:25])
	ciphertext := datagram[headerLen:]

	if _, seen := s.recvSeen[nonce]; seen {
		return fail("replayed nonce %d", nonce)
	}

	aad := s.buildAADRaw(direction, nonce)
	nonceBytes := aeadNonce(nonce)
	plaintext, err := s.recvAEAD.Open(nil, nonceBytes, ciphertext, aad)
	if err != nil {
		return fail("decrypting datagram: %w", err)
	}
	s.recvSeen[nonce] = struct{}{}

	if len(plaintext) < minPacketLen {
		return done()
	}
	switch plaintext[0] >> 4 {
	case 4:
		return tunnel4(plaintext)
	case 6:
		return tunnel6(plaintext)
	default:
		return done()
	}
}

// MARK: Tick
// NoiseLiteSession establishes its keys synchronously at construction,
// so there is no handshake retry/expiry state to drive here.
func (s *NoiseLiteSession) Tick() Result {
	return done()
}

func (s *NoiseLiteSession) buildAAD(direction uint8, nonce uint64) []byte {
	return s.buildAADRaw(direction, nonce)
}

func (s *NoiseLiteSession) buildAADRaw(direction uint8, nonce uint64) []byte {
	aad := make([]byte, 0, headerLen)
	aad = append(aad, s.sessionID[:]...)
	aad = append(aad, direction)
	aad = binary.BigEndian.AppendUint64(aad, nonce)
	return aad
}

func directionFor(isInitiator, sending bool) uint8 {
	if isInitiator == sending {
		return directionTx
	}
	return directionRx
}

func aeadNonce(counter uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[chacha20poly1305.NonceSize-8:], counter)
	return nonce
}
