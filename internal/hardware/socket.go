package hardware

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"
	"time"

	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/logger"
	"github.com/turtacn/Rover/pkg/protocol"
)

// SocketSource listens on a Unix domain socket for status frames pushed by
// the embedded bridge. Each connection carries a stream of JSON-encoded
// StatusReport values; the latest one wins. The status is dropped when the
// last bridge disconnects and expires after maxAge.
type SocketSource struct {
	socketPath string
	maxAge     time.Duration

	mu       sync.RWMutex
	listener net.Listener
	latest   *protocol.StatusReport
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewSocketSource(path string, maxAge time.Duration) *SocketSource {
	return &SocketSource{socketPath: path, maxAge: maxAge, conns: make(map[net.Conn]struct{})}
}

// prepareSocket creates the Unix domain socket for the bridge to connect to.
func (s *SocketSource) prepareSocket() (net.Listener, error) {
	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}
	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, err
	}
	// Only the bridge user may push status
	os.Chmod(s.socketPath, 0700)
	return l, nil
}

// Start binds the socket and accepts bridge connections until Close.
func (s *SocketSource) Start() error {
	l, err := s.prepareSocket()
	if err != nil {
		return errors.New(errors.ErrCodeConstruction, "SocketSource.Start", "binding status socket", err)
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	logger.Log.Info("Status socket: Listening for bridge", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop(l)
	return nil
}

func (s *SocketSource) acceptLoop(l net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if !closed {
				logger.Log.Error("Status socket: Accept failed", "err", err)
			}
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *SocketSource) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		if len(s.conns) == 0 && s.latest != nil {
			s.latest = nil
			logger.Log.Warn("Status socket: Last bridge disconnected, status dropped")
		}
		s.mu.Unlock()
	}()

	decoder := json.NewDecoder(conn)
	for {
		var report protocol.StatusReport
		if err := decoder.Decode(&report); err != nil {
			logger.Log.Debug("Status socket: Bridge stream ended", "err", err)
			return
		}
		if report.Timestamp.IsZero() {
			report.Timestamp = time.Now()
		}
		s.mu.Lock()
		s.latest = &report
		s.mu.Unlock()
	}
}

func (s *SocketSource) snapshot(op string) (protocol.StatusReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return freshStatus(op, s.latest, s.maxAge)
}

func (s *SocketSource) OperatingMode(ctx context.Context) (consts.OperatingMode, error) {
	r, err := s.snapshot("SocketSource.OperatingMode")
	if err != nil {
		return "", err
	}
	return consts.ParseReportedMode(r.Mode), nil
}

func (s *SocketSource) CommandedMission(ctx context.Context) (consts.MissionKind, error) {
	r, err := s.snapshot("SocketSource.CommandedMission")
	if err != nil {
		return "", err
	}
	return consts.ParseMissionKind(r.Mission), nil
}

// Probe succeeds once the socket is bound. The bridge may connect later.
func (s *SocketSource) Probe(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return errors.New(errors.ErrCodeStatusUnavailable, "SocketSource.Probe", "socket not started", nil)
	}
	return nil
}

// Close stops accepting connections and removes the socket file.
func (s *SocketSource) Close() error {
	s.mu.Lock()
	l := s.listener
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	if l == nil {
		return nil
	}
	err := l.Close()
	s.wg.Wait()
	os.Remove(s.socketPath)
	return err
}

// Personal.AI order the ending
