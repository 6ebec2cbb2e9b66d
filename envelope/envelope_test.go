package envelope

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		e    RedirectEnvelope
	}{
		{
			name: "with state and scope",
			e: RedirectEnvelope{
				ClientID:        "cid",
				TokenURI:        "https://p/t",
				RedirectURI:     "https://s/cb",
				Scope:           []string{"r"},
				RedirectBackURI: "https://x.test/app",
				State:           strPtr("u"),
			},
		},
		{
			name: "nil state, empty scope",
			e: RedirectEnvelope{
				ClientID:        "cid2",
				TokenURI:        "https://p/t2",
				RedirectURI:     "https://s/cb2",
				Scope:           []string{},
				RedirectBackURI: "https://x.test/app2",
				State:           nil,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := EncodeEnvelope(tc.e)
			require.NoError(t, err)

			decoded, err := DecodeEnvelope(encoded)
			require.NoError(t, err)
			require.Equal(t, tc.e, decoded)
		})
	}
}

func TestDecodeEnvelopeRejectsUnknownFields(t *testing.T) {
	encoded, err := EncodeEnvelope(RedirectEnvelope{
		ClientID: "c", TokenURI: "t", RedirectURI: "r", RedirectBackURI: "b",
	})
	require.NoError(t, err)
	_ = encoded

	// An envelope with an extra field should be rejected on decode.
	raw := `{"clientId":"c","tokenUri":"t","redirectUri":"r","redirectBackUri":"b","scope":[],"state":null,"extra":1}`
	_, err = DecodeEnvelope(encodeRaw(raw))
	require.Error(t, err)
}

func TestDecodeEnvelopeRejectsMissingFields(t *testing.T) {
	raw := `{"clientId":"c","tokenUri":"t"}`
	_, err := DecodeEnvelope(encodeRaw(raw))
	require.ErrorContains(t, err, "missing required field")
}

func TestDecodeEnvelopeRejectsNonBase64(t *testing.T) {
	_, err := DecodeEnvelope("not-base64!!!")
	require.ErrorContains(t, err, "not base64 encoded")
}

func encodeRaw(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
