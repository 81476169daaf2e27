package control

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/aurabx/wgagentd/internal"
	"github.com/aurabx/wgagentd/internal/tunnel"
	"github.com/aurabx/wgagentd/internal/werrors"
)

// noopOS satisfies tunnel.OS without touching the kernel; these tests
// only exercise networks the lookup function always fails to resolve,
// so no OS method is ever actually called.
type noopOS struct{}

func (noopOS) CreateTUN(name string, mtu int) (tunnel.TUNDevice, error) { return nil, nil }
func (noopOS) DestroyInterface(name string) error                      { return nil }
func (noopOS) SetInterfaceUp(name string) error                        { return nil }
func (noopOS) SetMTU(name string, mtu int) error                       { return nil }
func (noopOS) SetAddress(name, cidr string) error                      { return nil }
func (noopOS) AddRoutes(name string, cidrs []string) error             { return nil }
func (noopOS) RemoveRoutes(name string, cidrs []string) error          { return nil }
func (noopOS) ConfigureDNS(name string, servers []string) error        { return nil }
func (noopOS) RemoveDNS(name string) error                             { return nil }
func (noopOS) CheckCapabilities() []string                             { return nil }

func unknownNetworkLookup(network string, _ json.RawMessage) (tunnel.Descriptor, error) {
	return tunnel.Descriptor{}, werrors.New(werrors.NotFound, "network "+network+" is not configured")
}

func startTestServer(t *testing.T) (socketPath string, stop func()) {
	t.Helper()
	dir := t.TempDir()
	socketPath = filepath.Join(dir, "control.sock")

	logger := internal.NewLogger("error")
	supervisor := tunnel.NewSupervisor(noopOS{}, logger)
	srv := NewServer(socketPath, supervisor, unknownNetworkLookup, logger)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			if _, err := net.Dial("unix", socketPath); err == nil {
				close(ready)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	go srv.Serve(ctx)

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("control server never started listening")
	}

	return socketPath, cancel
}

func dialAndExchange(t *testing.T, socketPath, line string) Response {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dialing control socket: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("no response line: %v", scanner.Err())
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	return resp
}

// MARK: TestMalformedJSONProducesParseError (invariant #12)
func TestMalformedJSONProducesParseError(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	resp := dialAndExchange(t, socketPath, `{not json`)
	if resp.Success {
		t.Fatal("expected success=false for malformed JSON")
	}
	if resp.ID != "unknown" {
		t.Fatalf("expected id \"unknown\", got %q", resp.ID)
	}
	if resp.Error == nil || resp.Error.Type != ErrParse {
		t.Fatalf("expected ParseError, got %+v", resp.Error)
	}
}

// MARK: TestConnectionUsableAfterMalformedLine
// A malformed line must not kill the connection — the next well-formed
// request on the same conn must still get a normal response.
func TestConnectionUsableAfterMalformedLine(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json at all\n")); err != nil {
		t.Fatalf("writing malformed line: %v", err)
	}
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a response to the malformed line: %v", scanner.Err())
	}

	req := Request{ID: "q2", Action: ActionStatus, Network: "x"}
	encoded, _ := json.Marshal(req)
	if _, err := conn.Write(append(encoded, '\n')); err != nil {
		t.Fatalf("writing second request: %v", err)
	}
	if !scanner.Scan() {
		t.Fatalf("expected a response to the second request: %v", scanner.Err())
	}
	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling second response: %v", err)
	}
	if resp.ID != "q2" {
		t.Fatalf("expected id q2, got %q", resp.ID)
	}
}

// MARK: TestStatusOnUnknownNetwork
func TestStatusOnUnknownNetwork(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	resp := dialAndExchange(t, socketPath, `{"id":"q1","action":"status","network":"x"}`)
	if resp.Success {
		t.Fatal("expected success=false for an unknown network")
	}
	if resp.ID != "q1" {
		t.Fatalf("expected id q1, got %q", resp.ID)
	}
	if resp.Error == nil || resp.Error.Type != ErrNetworkNotFnd {
		t.Fatalf("expected NetworkNotFound, got %+v", resp.Error)
	}
}

// MARK: TestDisconnectNeverConnectedNetwork (invariant #13)
func TestDisconnectNeverConnectedNetwork(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	resp := dialAndExchange(t, socketPath, `{"id":"q3","action":"disconnect","network":"ghost"}`)
	if resp.Success {
		t.Fatal("expected success=false for disconnect on a never-connected network")
	}
	if resp.Error == nil || resp.Error.Type != ErrNetworkNotFnd {
		t.Fatalf("expected NetworkNotFound, got %+v", resp.Error)
	}
}

// MARK: TestRotateKeysNotImplemented
func TestRotateKeysNotImplemented(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	resp := dialAndExchange(t, socketPath, `{"id":"q4","action":"rotate_keys","network":"x"}`)
	if resp.Success {
		t.Fatal("expected success=false for rotate_keys")
	}
	if resp.Error == nil || resp.Error.Type != ErrInternal {
		t.Fatalf("expected InternalError, got %+v", resp.Error)
	}
}

// MARK: TestUnknownActionProducesParseError
func TestUnknownActionProducesParseError(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	resp := dialAndExchange(t, socketPath, `{"id":"q5","action":"frobnicate","network":"x"}`)
	if resp.Success {
		t.Fatal("expected success=false for an unknown action")
	}
	if resp.Error == nil || resp.Error.Type != ErrParse {
		t.Fatalf("expected ParseError, got %+v", resp.Error)
	}
}
