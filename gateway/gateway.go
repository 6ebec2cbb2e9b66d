package gateway

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oauthmw/redirect-gateway/internal/log"
	"github.com/oauthmw/redirect-gateway/internal/telemetry"
)

// Gateway is the single HTTP handler the listener serves (spec.md §4.E).
// It classifies every request and routes it to one of four handlers:
// simulator token, token-exchange, simulator authorize, or error-redirect.
type Gateway struct {
	logger    log.Logger
	metrics   *telemetry.Metrics
	client    *http.Client
	simulator http.Handler

	snapshot snapshotHolder
	router   *mux.Router
	handler  http.Handler
}

// New builds a Gateway. simulator handles both the POST token endpoint
// and the GET authorize endpoint described in spec.md §4.H; pass a
// handler that always returns 404 to disable it in a deployment that
// never runs the integration simulator.
func New(logger log.Logger, metrics *telemetry.Metrics, simulator http.Handler) *Gateway {
	g := &Gateway{
		logger:    logger,
		metrics:   metrics,
		client:    newProviderClient(),
		simulator: simulator,
	}
	g.router = g.buildRouter()
	g.handler = withRecovery(withRequestID(g.router))
	return g
}

// buildRouter wires spec.md §4.E's five classification rules as gorilla/mux
// routes, in the spec's own precedence order — mux.Router tries routes in
// registration order and stops at the first match, so rule 2 (token
// exchange) is registered ahead of rule 3 (simulator authorize) to satisfy
// "not matching 2" without any extra bookkeeping.
func (g *Gateway) buildRouter() *mux.Router {
	r := mux.NewRouter()

	r.Methods(http.MethodPost).Handler(g.simulator)

	r.Methods(http.MethodGet).
		Queries("code", "{code}", "state", "{state}").
		HandlerFunc(g.handleTokenExchange)

	r.Methods(http.MethodGet).
		Queries("client_id", "{client_id}", "redirect_uri", "{redirect_uri}", "state", "{state}").
		Handler(g.simulator)

	r.Methods(http.MethodGet).
		Queries("error", "{error}", "state", "{state}").
		HandlerFunc(g.handleErrorRedirect)

	r.NotFoundHandler = http.HandlerFunc(g.handleBadRequest)

	return r
}

// ServeHTTP implements http.Handler. Every request passes through
// request-id assignment and panic recovery before dispatch.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// Publish atomically installs a new (registry, port) snapshot. In-flight
// requests keep reading whatever snapshot they observed at dispatch
// time (spec.md §5).
func (g *Gateway) Publish(s Snapshot) {
	g.snapshot.store(s)
}

// Current returns the snapshot in effect right now.
func (g *Gateway) Current() Snapshot {
	return g.snapshot.load()
}

func (g *Gateway) handleBadRequest(w http.ResponseWriter, _ *http.Request) {
	g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
	http.Error(w, "Bad request, missing code/state", http.StatusBadRequest)
}
