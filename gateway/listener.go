package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oauthmw/redirect-gateway/internal/log"
)

// ListenerManager implements spec.md §4.I's listener lifecycle state
// machine: Unbound, or Bound(port). A rebind to the same port is a
// no-op; a rebind to a different port releases the old listener (letting
// its in-flight requests finish) before the new one starts accepting.
// port <= 0 means "listener off".
type ListenerManager struct {
	logger  log.Logger
	handler http.Handler

	mu     sync.Mutex
	port   int
	server *http.Server
}

// NewListenerManager builds a ListenerManager in the Unbound state.
func NewListenerManager(logger log.Logger, handler http.Handler) *ListenerManager {
	return &ListenerManager{logger: logger, handler: handler}
}

// Rebind transitions to the given port, per the state machine above. A
// bind failure leaves the manager Unbound; the caller is expected to
// retry on the next config change (spec.md §4.I).
func (m *ListenerManager) Rebind(port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bound := m.server != nil
	if bound && port == m.port {
		return nil
	}
	if !bound && port <= 0 {
		return nil
	}

	if bound {
		m.shutdownLocked()
	}

	if port <= 0 {
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		m.logger.Errorf("failed to bind listener on port %d: %v", port, err)
		return err
	}

	srv := &http.Server{Handler: m.handler}
	m.server = srv
	m.port = port

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Errorf("listener on port %d stopped: %v", port, err)
		}
	}()

	return nil
}

// shutdownLocked gracefully stops the current listener, waiting for
// in-flight requests to complete, then marks the manager Unbound. Callers
// must hold m.mu.
func (m *ListenerManager) shutdownLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Errorf("error shutting down listener on port %d: %v", m.port, err)
	}
	m.server = nil
	m.port = 0
}

// Port reports the currently bound port, or 0 if Unbound.
func (m *ListenerManager) Port() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port
}

// Shutdown unconditionally releases the listener, if any. Used on
// process exit.
func (m *ListenerManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown(ctx)
	m.server = nil
	m.port = 0
	return err
}
