package gateway

import (
	"net/http"
	"net/url"

	"github.com/oauthmw/redirect-gateway/envelope"
	"github.com/oauthmw/redirect-gateway/internal/telemetry"
)

// handleErrorRedirect implements spec.md §4.G: an authorization-server
// callback that reports an error still needs to reach the SPA, provided
// the envelope that tells us where the SPA is can itself be decoded.
func (g *Gateway) handleErrorRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	errParam := q.Get("error")
	stateParam := q.Get("state")

	env, err := envelope.DecodeEnvelope(stateParam)
	if err != nil {
		g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
		http.Error(w, "Bad request, missing code/state", http.StatusBadRequest)
		return
	}

	redirectBackURL, err := url.Parse(env.RedirectBackURI)
	if err != nil {
		g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
		http.Error(w, "Bad request, missing code/state", http.StatusBadRequest)
		return
	}

	msg := errParam
	if msg == "" {
		msg = "Missing code/state"
	}

	fragment, err := envelope.EncodeError(envelope.ResponseTokenError{Err: msg, State: env.State})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	g.metrics.ObserveRequest(telemetry.OutcomeProviderError)
	redirectBackURL.Fragment = ""
	w.Header().Set("Location", redirectBackURL.String()+"#"+fragment)
	w.WriteHeader(http.StatusFound)
}
