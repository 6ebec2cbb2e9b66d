package gateway

import (
	"net"
	"net/http"
	"time"
)

// providerRequestTimeout bounds the outbound token-exchange POST, per
// spec.md §9 open question (b): the original source enforced no
// timeout; this gateway adds the suggested 30s bound.
const providerRequestTimeout = 30 * time.Second

// newProviderClient builds the pooled HTTP client used for the one
// outbound call this gateway makes per request: the token-exchange
// POST to a tenant's tokenUri. Grounded on
// connector/oauth/oauth.go's newHTTPClient, trimmed of the custom-CA
// knobs that component is out of scope for here (spec.md §1: TLS trust
// is delegated to the environment, not configured per tenant).
func newProviderClient() *http.Client {
	return &http.Client{
		Timeout: providerRequestTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
