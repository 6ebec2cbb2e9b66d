// Package simulator implements the fake authorization-server endpoints
// used by this gateway's own integration tests (spec.md §4.H). It is
// reachable on the same listener as the real gateway endpoints so a
// test can point a tenant's tokenUri at the gateway itself.
package simulator

import (
	"encoding/json"
	"net/http"
)

// code is the fixed authorization code the simulator always issues.
const code = "xyzzy"

// Simulator serves both the authorize (GET) and token (POST) endpoints.
// Method dispatch happens here rather than in the caller's router so a
// single handler value can be registered for both routes in spec.md
// §4.E's dispatch table.
type Simulator struct{}

// New builds a Simulator.
func New() *Simulator {
	return &Simulator{}
}

// ServeHTTP dispatches by method: GET is the authorize endpoint, POST is
// the token endpoint.
func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleAuthorize(w, r)
	case http.MethodPost:
		s.handleToken(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAuthorize always approves: it redirects straight back to
// redirect_uri with a fixed code and the caller's state echoed back.
func (s *Simulator) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	state := q.Get("state")

	location := redirectURI + "?code=" + code + "&state=" + state
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

type tokenErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type tokenSuccessBody struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// handleToken accepts credentials either in the form body or as HTTP
// Basic, requires grant_type=authorization_code and a non-empty code,
// and fails client_id == "fail" the way spec.md §4.H documents.
func (s *Simulator) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeTokenError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	clientID := r.FormValue("client_id")
	if basicID, _, ok := r.BasicAuth(); ok && basicID != "" {
		clientID = basicID
	}

	if r.FormValue("grant_type") != "authorization_code" {
		writeTokenError(w, http.StatusBadRequest, "invalid_request", "grant_type must be authorization_code")
		return
	}
	if r.FormValue("code") == "" {
		writeTokenError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")

	if clientID == "fail" {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(tokenErrorBody{
			Error:            "invalid_client",
			ErrorDescription: "Client authentication failed.",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tokenSuccessBody{
		AccessToken:  "yourTokenSir",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "aRefreshToken",
	})
}

func writeTokenError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(tokenErrorBody{Error: code, ErrorDescription: description})
}
