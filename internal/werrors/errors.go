// Package werrors defines the error taxonomy shared across the agent:
// a small Kind enum that every subsystem tags its errors with, so the
// control protocol can translate internal failures into the wire-level
// vocabulary without re-deriving what kind of failure occurred.
package werrors

import "fmt"

// Kind classifies an Error by the subsystem and failure category it
// came from.
type Kind int

const (
	Internal Kind = iota
	Config
	Platform
	WireGuard
	TunDevice
	InvalidState
	NotFound
	Permission
	Serialization
	Security
)

// MARK: String
func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Platform:
		return "platform"
	case WireGuard:
		return "wireguard"
	case TunDevice:
		return "tun_device"
	case InvalidState:
		return "invalid_state"
	case NotFound:
		return "not_found"
	case Permission:
		return "permission"
	case Serialization:
		return "serialization"
	case Security:
		return "security"
	default:
		return "internal"
	}
}

// Error wraps a cause with a Kind so callers upstream (chiefly the
// control server) can translate it without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// MARK: Error
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// MARK: Unwrap
func (e *Error) Unwrap() error {
	return e.Cause
}

// MARK: New
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// MARK: Wrap
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// MARK: KindOf
// Returns the Kind of err if it (or something it wraps) is a *Error,
// and Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return Internal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
