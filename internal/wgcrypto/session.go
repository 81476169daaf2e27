// Package wgcrypto defines the Session contract that Device speaks to
// (encapsulate/decapsulate/tick, never a raw WireGuard handshake) and
// ships one concrete implementation, NoiseLiteSession, built from the
// same AEAD primitive family a production Noise_IKpsk2 session would
// use. It intentionally does not implement the WireGuard wire protocol
// byte-for-byte; that stays out of scope, same as the rest of this
// repo's crypto boundary.
package wgcrypto

import (
	"fmt"
	"net"
)

// ResultKind tags what a Session operation produced.
type ResultKind int

const (
	// Done means the operation completed with nothing further to do.
	Done ResultKind = iota
	// WriteToNetwork means Data holds a UDP datagram to send to the peer.
	WriteToNetwork
	// WriteToTunnelV4 means Data holds a decrypted IPv4 packet for the TUN device.
	WriteToTunnelV4
	// WriteToTunnelV6 means Data holds a decrypted IPv6 packet for the TUN device.
	WriteToTunnelV6
	// Err means the operation failed; Err holds the cause.
	Err
)

// MARK: String
func (k ResultKind) String() string {
	switch k {
	case WriteToNetwork:
		return "write_to_network"
	case WriteToTunnelV4:
		return "write_to_tunnel_v4"
	case WriteToTunnelV6:
		return "write_to_tunnel_v6"
	case Err:
		return "err"
	default:
		return "done"
	}
}

// Result is the tagged union every Session operation returns.
type Result struct {
	Kind ResultKind
	Data []byte
	Err  error
}

// MARK: done / network / tunnel4 / tunnel6 / fail
// Small constructors so call sites read like the tagged union they are.

func done() Result                        { return Result{Kind: Done} }
func network(b []byte) Result             { return Result{Kind: WriteToNetwork, Data: b} }
func tunnel4(b []byte) Result             { return Result{Kind: WriteToTunnelV4, Data: b} }
func tunnel6(b []byte) Result             { return Result{Kind: WriteToTunnelV6, Data: b} }
func fail(format string, a ...any) Result { return Result{Kind: Err, Err: fmt.Errorf(format, a...)} }

// Session is the external, swappable contract Device drives. A real
// WireGuard implementation and NoiseLiteSession are both valid Sessions;
// Device never knows or cares which one it has.
type Session interface {
	// Encapsulate accepts a plaintext packet read from the TUN device and
	// returns a Result, typically WriteToNetwork.
	Encapsulate(packet []byte) Result
	// Decapsulate accepts a datagram read from the UDP socket plus the
	// source address it arrived from, and returns a Result:
	// WriteToTunnelV4/V6 for plaintext ready to deliver, WriteToNetwork
	// if the session needs to reply (e.g. a handshake response), or Done
	// if nothing came of it. sourceHint is informational only — this
	// design drops datagrams from unrecognized endpoints rather than
	// learning roaming endpoints from it (no Non-goals exception).
	Decapsulate(sourceHint net.IP, datagram []byte) Result
	// Tick drives time-based session maintenance (retries, expiry) and
	// returns WriteToNetwork if that produced an outbound datagram.
	Tick() Result
}
