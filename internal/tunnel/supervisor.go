package tunnel

import (
	"sync"

	"github.com/aurabx/wgagentd/internal"
	"github.com/aurabx/wgagentd/internal/werrors"
)

// networkLock is a per-network mutex, created lazily, that serializes
// lifecycle operations against one network without blocking operations
// on any other.
type networkLock struct {
	mu sync.Mutex
}

// Supervisor maps network name to Tunnel and dispatches control
// operations, guaranteeing at most one in-flight lifecycle op per
// network while letting different networks proceed concurrently.
type Supervisor struct {
	os     OS
	logger *internal.Logger

	mapMu sync.RWMutex
	tuns  map[string]*Tunnel
	locks map[string]*networkLock
}

// MARK: NewSupervisor
func NewSupervisor(osAbstraction OS, logger *internal.Logger) *Supervisor {
	return &Supervisor{
		os:     osAbstraction,
		logger: logger,
		tuns:   make(map[string]*Tunnel),
		locks:  make(map[string]*networkLock),
	}
}

func (s *Supervisor) lockFor(network string) *networkLock {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	l, ok := s.locks[network]
	if !ok {
		l = &networkLock{}
		s.locks[network] = l
	}
	return l
}

func (s *Supervisor) get(network string) (*Tunnel, bool) {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	t, ok := s.tuns[network]
	return t, ok
}

// MARK: Connect
func (s *Supervisor) Connect(desc Descriptor) (Snapshot, error) {
	lock := s.lockFor(desc.Name)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	if existing, ok := s.get(desc.Name); ok && existing.State() == Active {
		return Snapshot{}, werrors.New(werrors.InvalidState, "network "+desc.Name+" is already connected")
	}

	t := NewTunnel(desc, s.os, s.logger)
	if err := t.Start(); err != nil {
		return Snapshot{}, err
	}

	s.mapMu.Lock()
	s.tuns[desc.Name] = t
	s.mapMu.Unlock()

	return t.Stats(), nil
}

// MARK: Disconnect
func (s *Supervisor) Disconnect(network string) error {
	lock := s.lockFor(network)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	t, ok := s.get(network)
	if !ok {
		return werrors.New(werrors.NotFound, "network "+network+" is not known")
	}
	if err := t.Stop(); err != nil {
		return err
	}

	s.mapMu.Lock()
	delete(s.tuns, network)
	s.mapMu.Unlock()
	return nil
}

// MARK: Status
func (s *Supervisor) Status(network string) (Snapshot, error) {
	t, ok := s.get(network)
	if !ok {
		return Snapshot{}, werrors.New(werrors.NotFound, "network "+network+" is not known")
	}
	return t.Stats(), nil
}

// MARK: Reload
func (s *Supervisor) Reload(desc Descriptor) (Snapshot, error) {
	lock := s.lockFor(desc.Name)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	t, ok := s.get(desc.Name)
	if !ok {
		return Snapshot{}, werrors.New(werrors.NotFound, "network "+desc.Name+" is not known")
	}
	if err := t.Reload(desc); err != nil {
		return Snapshot{}, err
	}
	return t.Stats(), nil
}

// MARK: Networks
// Returns every network name currently registered, regardless of state.
func (s *Supervisor) Networks() []string {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	names := make([]string, 0, len(s.tuns))
	for name := range s.tuns {
		names = append(names, name)
	}
	return names
}

// MARK: StopAll
// Best-effort shutdown of every registered tunnel, used on process exit.
func (s *Supervisor) StopAll() {
	for _, name := range s.Networks() {
		if err := s.Disconnect(name); err != nil {
			s.logger.Warn("stopping tunnel during shutdown failed", "network", name, "error", err)
		}
	}
}
