// Package envelope implements the JSON+Base64 codec for the caller
// round-trip state carried through the OAuth "state" parameter, and the
// symmetric codec for the payload delivered back in the redirect
// fragment. The codec is pure and side-effect free: it is the textbook
// "parse, don't validate" boundary between the network and the rest of
// this module.
package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// RedirectEnvelope is the caller round-trip payload embedded in the
// OAuth "state" parameter.
type RedirectEnvelope struct {
	ClientID        string   `json:"clientId"`
	TokenURI        string   `json:"tokenUri"`
	RedirectURI     string   `json:"redirectUri"`
	Scope           []string `json:"scope"`
	RedirectBackURI string   `json:"redirectBackUri"`
	State           *string  `json:"state"`
}

// wireEnvelope mirrors RedirectEnvelope's JSON shape but rejects unknown
// fields and lets us tell "scope omitted" apart from "scope: []".
type wireEnvelope struct {
	ClientID        *string  `json:"clientId"`
	TokenURI        *string  `json:"tokenUri"`
	RedirectURI     *string  `json:"redirectUri"`
	Scope           []string `json:"scope"`
	RedirectBackURI *string  `json:"redirectBackUri"`
	State           *string  `json:"state"`
}

// EncodeEnvelope serializes e to compact JSON and base64-encodes it with
// standard padded base64 (RFC 4648 §4), matching the OAuth "state"
// parameter's usual percent-encoded-base64 convention.
func EncodeEnvelope(e RedirectEnvelope) (string, error) {
	scope := e.Scope
	if scope == nil {
		scope = []string{}
	}
	raw, err := json.Marshal(wireEnvelope{
		ClientID:        &e.ClientID,
		TokenURI:        &e.TokenURI,
		RedirectURI:     &e.RedirectURI,
		Scope:           scope,
		RedirectBackURI: &e.RedirectBackURI,
		State:           e.State,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeEnvelope reverses EncodeEnvelope. It rejects unknown JSON fields
// and requires every field but State to be present.
func DecodeEnvelope(encoded string) (RedirectEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return RedirectEnvelope{}, fmt.Errorf("state is not base64 encoded: %w", err)
	}
	return DecodeEnvelopeJSON(raw)
}

// DecodeEnvelopeJSON decodes an envelope from already base64-decoded
// JSON bytes. Split out from DecodeEnvelope so callers that need to
// report the base64 and JSON decode failures with distinct messages
// (gateway's token-exchange handler, spec.md §4.F steps 1-2) can drive
// the two steps themselves.
func DecodeEnvelopeJSON(raw []byte) (RedirectEnvelope, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()

	var w wireEnvelope
	if err := dec.Decode(&w); err != nil {
		return RedirectEnvelope{}, fmt.Errorf("malformed state: %w", err)
	}

	missing := func(name string, present bool) string {
		if present {
			return ""
		}
		return name
	}
	var absent []string
	for _, m := range []string{
		missing("clientId", w.ClientID != nil),
		missing("tokenUri", w.TokenURI != nil),
		missing("redirectUri", w.RedirectURI != nil),
		missing("scope", w.Scope != nil),
		missing("redirectBackUri", w.RedirectBackURI != nil),
	} {
		if m != "" {
			absent = append(absent, m)
		}
	}
	if len(absent) > 0 {
		return RedirectEnvelope{}, fmt.Errorf("malformed state: missing required field(s): %s", strings.Join(absent, ", "))
	}

	scope := w.Scope
	if scope == nil {
		scope = []string{}
	}

	return RedirectEnvelope{
		ClientID:        *w.ClientID,
		TokenURI:        *w.TokenURI,
		RedirectURI:     *w.RedirectURI,
		Scope:           scope,
		RedirectBackURI: *w.RedirectBackURI,
		State:           w.State,
	}, nil
}
