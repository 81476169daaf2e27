// Package control implements the line-delimited JSON protocol the agent
// exposes over a local Unix domain socket: one request per line, one
// response per line, actions connect/disconnect/status/reload/rotate_keys.
package control

import (
	"encoding/json"

	"github.com/aurabx/wgagentd/internal/werrors"
)

// Action is one of the control protocol's five request actions.
type Action string

const (
	ActionConnect    Action = "connect"
	ActionDisconnect Action = "disconnect"
	ActionStatus     Action = "status"
	ActionReload     Action = "reload"
	ActionRotateKeys Action = "rotate_keys"
)

// ErrorKind is the wire-level vocabulary the control protocol reports,
// distinct from (and narrower than) werrors.Kind.
type ErrorKind string

const (
	ErrParse          ErrorKind = "ParseError"
	ErrSerialization  ErrorKind = "SerializationError"
	ErrInvalidState   ErrorKind = "InvalidState"
	ErrNetworkNotFnd  ErrorKind = "NetworkNotFound"
	ErrConfig         ErrorKind = "ConfigError"
	ErrPlatform       ErrorKind = "PlatformError"
	ErrInternal       ErrorKind = "InternalError"
	ErrAuthentication ErrorKind = "AuthenticationFailed"
	ErrPermission     ErrorKind = "PermissionDenied"
)

// kindToWire maps the internal error taxonomy onto the wire-level kind
// vocabulary the control protocol promises clients.
func kindToWire(k werrors.Kind) ErrorKind {
	switch k {
	case werrors.Config:
		return ErrConfig
	case werrors.Platform, werrors.TunDevice, werrors.WireGuard:
		return ErrPlatform
	case werrors.InvalidState:
		return ErrInvalidState
	case werrors.NotFound:
		return ErrNetworkNotFnd
	case werrors.Permission, werrors.Security:
		return ErrPermission
	case werrors.Serialization:
		return ErrSerialization
	default:
		return ErrInternal
	}
}

// Request is one line of client input.
type Request struct {
	ID      string          `json:"id"`
	Action  Action          `json:"action"`
	Network string          `json:"network"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// ResponseError is the optional error object a Response carries.
type ResponseError struct {
	Type    ErrorKind `json:"type"`
	Message string    `json:"message"`
}

// Response is one line of server output.
type Response struct {
	ID      string         `json:"id"`
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

// MARK: Success
func Success(id string, data any) Response {
	return Response{ID: id, Success: true, Data: data}
}

// MARK: Fail
func Fail(id string, err error) Response {
	kind := kindToWire(werrors.KindOf(err))
	return Response{ID: id, Success: false, Error: &ResponseError{Type: kind, Message: err.Error()}}
}

// MARK: FailKind
// Builds an error response directly from a wire-level kind, for
// failures (malformed JSON, unknown action) that never reach the
// internal error taxonomy.
func FailKind(id string, kind ErrorKind, message string) Response {
	return Response{ID: id, Success: false, Error: &ResponseError{Type: kind, Message: message}}
}

// StatusPeers is the nested peers object in a status response.
type StatusPeers struct {
	Total   int      `json:"total"`
	Active  int      `json:"active"`
	Healthy int      `json:"healthy"`
	Names   []string `json:"names"`
}

// StatusTraffic is the nested traffic object in a status response.
type StatusTraffic struct {
	TxBytes uint64 `json:"tx_bytes"`
	RxBytes uint64 `json:"rx_bytes"`
}

// StatusData is the full data payload for a status response.
type StatusData struct {
	Network   string        `json:"network"`
	State     string        `json:"state"`
	Interface string        `json:"interface"`
	Peers     StatusPeers   `json:"peers"`
	Traffic   StatusTraffic `json:"traffic"`
}
