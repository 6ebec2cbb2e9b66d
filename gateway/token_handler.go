package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oauthmw/redirect-gateway/config"
	"github.com/oauthmw/redirect-gateway/envelope"
	"github.com/oauthmw/redirect-gateway/internal/telemetry"
	"github.com/oauthmw/redirect-gateway/registry"
)

// providerErrorBody is the subset of an OAuth 2.0 error response this
// handler needs when the token endpoint answers with a non-2xx status.
type providerErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorURI         string `json:"error_uri"`
}

// handleTokenExchange implements spec.md §4.F end to end.
func (g *Gateway) handleTokenExchange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	stateParam := q.Get("state")

	raw, err := base64.StdEncoding.DecodeString(stateParam)
	if err != nil {
		g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
		http.Error(w, fmt.Sprintf("State not base64 encoded: %s", stateParam), http.StatusBadRequest)
		return
	}

	env, err := envelope.DecodeEnvelopeJSON(raw)
	if err != nil {
		g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
		http.Error(w, fmt.Sprintf("Malformed state: %s", string(raw)), http.StatusBadRequest)
		return
	}

	redirectBackURL, err := url.Parse(env.RedirectBackURI)
	if err != nil {
		g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
		http.Error(w, fmt.Sprintf("Can't parse redirectBackUri: %s", env.RedirectBackURI), http.StatusBadRequest)
		return
	}

	snap := g.Current()
	tenant, ok := snap.Registry.Lookup(env.ClientID, env.TokenURI)
	if !ok {
		msg := fmt.Sprintf("Unknown (clientId, tokenUri): (%s, %s)", env.ClientID, env.TokenURI)
		g.logger.With("requestId", requestIDFrom(r.Context())).Errorf("%s", msg)
		g.metrics.ObserveRequest(telemetry.OutcomeUnknownTenant)
		http.Error(w, msg, http.StatusNotFound)
		return
	}

	if err := registry.AuthorizeBackHost(tenant, redirectBackURL); err != nil {
		g.logger.With(tenant.LogFields()...).With("requestId", requestIDFrom(r.Context())).Errorf("%v", err)
		g.metrics.ObserveRequest(telemetry.OutcomeHostPolicy)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if _, err := url.Parse(env.RedirectURI); err != nil {
		g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
		http.Error(w, "Can't parse redirectUri or tokenUri", http.StatusNotFound)
		return
	}
	if _, err := url.Parse(env.TokenURI); err != nil {
		g.metrics.ObserveRequest(telemetry.OutcomeBadRequest)
		http.Error(w, "Can't parse redirectUri or tokenUri", http.StatusNotFound)
		return
	}

	result := g.exchangeToken(tenant, env, code)

	var fragment string
	var encodeErr error
	switch {
	case result.token != nil:
		fragment, encodeErr = envelope.EncodeResponse(*result.token)
		g.metrics.ObserveRequest(telemetry.OutcomeSuccess)
	default:
		fragment, encodeErr = envelope.EncodeError(*result.err)
		g.metrics.ObserveRequest(telemetry.OutcomeProviderError)
	}
	if encodeErr != nil {
		// The envelope round-trips by construction (property 1); this
		// can only happen if json.Marshal itself fails, which does not
		// happen for the plain structs this package builds.
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	redirectBackURL.Fragment = ""
	location := redirectBackURL.String() + "#" + fragment
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

type exchangeResult struct {
	token *envelope.ResponseToken
	err   *envelope.ResponseTokenError
}

// exchangeToken performs spec.md §4.F step 7: the outbound POST to the
// tenant's tokenUri and the disposition of its response. The outbound
// request is deliberately detached from the inbound request's context
// (spec.md §5): dropping the browser connection cancels the response
// write, not this call, which is left to finish or time out on its own
// and whose result is then discarded by the caller if the response was
// already written.
func (g *Gateway) exchangeToken(tenant config.Tenant, env envelope.RedirectEnvelope, code string) exchangeResult {
	ctx, cancel := context.WithTimeout(context.Background(), providerRequestTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", env.RedirectURI)
	if tenant.ClientSecret == "" {
		form.Set("client_id", tenant.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return errResult(fmt.Sprintf("BadUrl: %v", err), env.State)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if tenant.ClientSecret != "" {
		req.SetBasicAuth(tenant.ClientID, tenant.ClientSecret)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	g.metrics.ObserveProviderRequestDuration(time.Since(start).Seconds())
	if err != nil {
		return errResult(classifyTransportError(err), env.State)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResult(fmt.Sprintf("Decoder error: %v", err), env.State)
	}

	if resp.StatusCode/100 == 2 {
		token, err := envelope.DecodeResponseTokenJSON(body)
		if err != nil {
			return errResult(fmt.Sprintf("Decoder error: %v", err), env.State)
		}
		if len(token.Scope) == 0 {
			token.Scope = env.Scope
		}
		token.State = env.State
		return exchangeResult{token: &token}
	}

	var providerErr providerErrorBody
	if err := json.Unmarshal(body, &providerErr); err != nil || providerErr.Error == "" {
		return errResult(fmt.Sprintf("BadStatus, code: %d", resp.StatusCode), env.State)
	}

	msg := providerErr.ErrorDescription
	if msg == "" {
		msg = providerErr.ErrorURI
	}
	if msg == "" {
		msg = providerErr.Error
	}
	return errResult(msg, env.State)
}

func errResult(msg string, state *string) exchangeResult {
	return exchangeResult{err: &envelope.ResponseTokenError{Err: msg, State: state}}
}

// classifyTransportError turns a transport-level failure into one of
// the error strings spec.md §4.F enumerates. Malformed-URL failures are
// caught earlier, at request construction (the BadUrl case in
// exchangeToken), so
// this only needs to tell a timeout apart from any other network error.
func classifyTransportError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "Timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}
	return "NetworkError"
}
