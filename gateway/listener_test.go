package gateway

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oauthmw/redirect-gateway/internal/log"
)

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	logger, err := log.NewLogger("error", "text")
	require.NoError(t, err)
	return logger
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestListenerManagerRebindToSamePortIsNoop(t *testing.T) {
	logger := testLogger(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	m := NewListenerManager(logger, handler)

	port := freePort(t)
	require.NoError(t, m.Rebind(port))
	defer m.Shutdown(context.Background()) //nolint:errcheck

	require.Equal(t, port, m.Port())
	require.NoError(t, m.Rebind(port))
	require.Equal(t, port, m.Port())
}

func TestListenerManagerRebindToNewPortReleasesOld(t *testing.T) {
	logger := testLogger(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	m := NewListenerManager(logger, handler)

	portA := freePort(t)
	require.NoError(t, m.Rebind(portA))
	waitForListener(t, portA)

	portB := freePort(t)
	require.NoError(t, m.Rebind(portB))
	waitForListener(t, portB)
	require.Equal(t, portB, m.Port())

	// portA must be released: a fresh listener can bind to it again.
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", portA))
	require.NoError(t, err)
	ln.Close()

	require.NoError(t, m.Shutdown(context.Background()))
}

func TestListenerManagerRebindToZeroUnbinds(t *testing.T) {
	logger := testLogger(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	m := NewListenerManager(logger, handler)

	port := freePort(t)
	require.NoError(t, m.Rebind(port))
	waitForListener(t, port)

	require.NoError(t, m.Rebind(0))
	require.Equal(t, 0, m.Port())
}

func waitForListener(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
		if err == nil {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("listener on port %d never came up", port)
}
