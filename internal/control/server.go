package control

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"

	"github.com/aurabx/wgagentd/internal"
	"github.com/aurabx/wgagentd/internal/tunnel"
	"github.com/aurabx/wgagentd/internal/werrors"
	"golang.org/x/sys/unix"
)

const maxRequestLine = 1 << 20

// DescriptorLookup resolves a network name (and, for connect/reload, an
// inline config payload) into the Descriptor the supervisor needs.
// cmd/wgagentd supplies the concrete implementation backed by the
// loaded config file.
type DescriptorLookup func(network string, rawConfig json.RawMessage) (tunnel.Descriptor, error)

// Server is the control protocol's Unix domain socket listener: one
// JSON object per line in, one per line out, dispatched to a Supervisor.
type Server struct {
	socketPath string
	supervisor *tunnel.Supervisor
	lookup     DescriptorLookup
	logger     *internal.Logger

	listener net.Listener
}

// MARK: NewServer
func NewServer(socketPath string, supervisor *tunnel.Supervisor, lookup DescriptorLookup, logger *internal.Logger) *Server {
	return &Server{socketPath: socketPath, supervisor: supervisor, lookup: lookup, logger: logger}
}

// MARK: Serve
// Binds the socket (removing any stale one first) and accepts
// connections until ctx is cancelled, handling each on its own
// goroutine — the same per-connection model the teacher's HTTP server
// uses, adapted to a persistent line-JSON session instead of one
// request per connection.
func (s *Server) Serve(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	lis, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return werrors.Wrap(werrors.Platform, "binding control socket "+s.socketPath, err)
	}
	s.listener = lis
	defer unix.Unlink(s.socketPath) //nolint:errcheck

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	s.logger.Info("control server listening", "socket", s.socketPath)

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("accepting control connection failed", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxRequestLine)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.dispatch(line)

		encoded, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("serializing control response failed", "error", err)
			return
		}
		if _, err := writer.Write(encoded); err != nil {
			return
		}
		if _, err := writer.WriteString("\n"); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return FailKind("unknown", ErrParse, "invalid JSON: "+err.Error())
	}
	if req.ID == "" {
		req.ID = "unknown"
	}

	switch req.Action {
	case ActionConnect:
		return s.handleConnect(req)
	case ActionDisconnect:
		return s.handleDisconnect(req)
	case ActionStatus:
		return s.handleStatus(req)
	case ActionReload:
		return s.handleReload(req)
	case ActionRotateKeys:
		return FailKind(req.ID, ErrInternal, "not implemented")
	default:
		return FailKind(req.ID, ErrParse, "unknown action: "+string(req.Action))
	}
}

func (s *Server) handleConnect(req Request) Response {
	desc, err := s.lookup(req.Network, req.Config)
	if err != nil {
		return Fail(req.ID, err)
	}
	snap, err := s.supervisor.Connect(desc)
	if err != nil {
		return Fail(req.ID, err)
	}
	return Success(req.ID, snapshotToStatusData(req.Network, snap))
}

func (s *Server) handleDisconnect(req Request) Response {
	if err := s.supervisor.Disconnect(req.Network); err != nil {
		return Fail(req.ID, err)
	}
	return Success(req.ID, nil)
}

func (s *Server) handleStatus(req Request) Response {
	snap, err := s.supervisor.Status(req.Network)
	if err != nil {
		return Fail(req.ID, err)
	}
	return Success(req.ID, snapshotToStatusData(req.Network, snap))
}

func (s *Server) handleReload(req Request) Response {
	desc, err := s.lookup(req.Network, req.Config)
	if err != nil {
		return Fail(req.ID, err)
	}
	snap, err := s.supervisor.Reload(desc)
	if err != nil {
		return Fail(req.ID, err)
	}
	return Success(req.ID, snapshotToStatusData(req.Network, snap))
}

func snapshotToStatusData(network string, snap tunnel.Snapshot) StatusData {
	return StatusData{
		Network:   network,
		State:     snap.State.String(),
		Interface: snap.Interface,
		Peers: StatusPeers{
			Total:   snap.Total,
			Active:  snap.Active,
			Healthy: snap.Healthy,
			Names:   snap.Names,
		},
		Traffic: StatusTraffic{TxBytes: snap.TxBytes, RxBytes: snap.RxBytes},
	}
}
