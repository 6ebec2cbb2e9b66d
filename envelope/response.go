package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseToken is the success payload delivered back to the SPA in the
// redirect fragment.
type ResponseToken struct {
	Token        string
	RefreshToken *string
	ExpiresIn    *int
	Scope        []string
	State        *string
}

// wireResponseToken is the OAuth 2.0 token-response JSON shape.
type wireResponseToken struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    *int            `json:"expires_in,omitempty"`
	Scope        json.RawMessage `json:"scope,omitempty"`
	State        *string         `json:"state,omitempty"`
}

// ResponseTokenError is the failure payload delivered back to the SPA.
type ResponseTokenError struct {
	Err   string  `json:"err"`
	State *string `json:"state"`
}

// EncodeResponse serializes a success payload. token_type is always
// written as the lowercase literal "bearer".
func EncodeResponse(r ResponseToken) (string, error) {
	scope := r.Scope
	if scope == nil {
		scope = []string{}
	}
	scopeJSON, err := json.Marshal(scope)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(wireResponseToken{
		AccessToken:  r.Token,
		TokenType:    "bearer",
		RefreshToken: derefOr(r.RefreshToken, ""),
		ExpiresIn:    r.ExpiresIn,
		Scope:        scopeJSON,
		State:        r.State,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeError serializes a failure payload.
func EncodeError(e ResponseTokenError) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeResponseToken decodes a base64-encoded token response. It
// accepts token_type in any case and canonicalises it; it accepts scope
// as either a JSON array of strings or a comma-separated string (GitHub
// non-conformance) and canonicalises to an array.
func DecodeResponseToken(encoded string) (ResponseToken, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ResponseToken{}, fmt.Errorf("response is not base64 encoded: %w", err)
	}
	return DecodeResponseTokenJSON(raw)
}

// DecodeResponseTokenJSON decodes a token response from plain (not
// base64-encoded) JSON bytes — the shape a provider's token endpoint
// itself returns. Split out from DecodeResponseToken so gateway's
// token-exchange handler can apply this same §4.A decode logic to the
// provider's response body directly (spec.md §4.F step 7).
func DecodeResponseTokenJSON(raw []byte) (ResponseToken, error) {
	var w wireResponseToken
	if err := json.Unmarshal(raw, &w); err != nil {
		return ResponseToken{}, fmt.Errorf("malformed response: %w", err)
	}

	if !strings.EqualFold(w.TokenType, "bearer") {
		return ResponseToken{}, fmt.Errorf("unsupported token_type: %q", w.TokenType)
	}

	scope, err := decodeScope(w.Scope)
	if err != nil {
		return ResponseToken{}, fmt.Errorf("malformed scope: %w", err)
	}

	var refreshToken *string
	if w.RefreshToken != "" {
		rt := w.RefreshToken
		refreshToken = &rt
	}

	return ResponseToken{
		Token:        w.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    w.ExpiresIn,
		Scope:        scope,
		State:        w.State,
	}, nil
}

// DecodeResponseTokenError decodes a base64-encoded error payload.
func DecodeResponseTokenError(encoded string) (ResponseTokenError, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ResponseTokenError{}, fmt.Errorf("response is not base64 encoded: %w", err)
	}
	var e ResponseTokenError
	if err := json.Unmarshal(raw, &e); err != nil {
		return ResponseTokenError{}, fmt.Errorf("malformed response: %w", err)
	}
	return e, nil
}

// decodeScope accepts either a JSON array of strings or a bare JSON
// string containing a comma-separated list (the GitHub non-conformance
// spec.md §4.A documents).
func decodeScope(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}

	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		if asArray == nil {
			asArray = []string{}
		}
		return asArray, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return []string{}, nil
		}
		return strings.Split(asString, ","), nil
	}

	return nil, fmt.Errorf("scope is neither an array nor a string: %s", string(raw))
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
