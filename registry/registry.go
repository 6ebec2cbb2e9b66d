// Package registry builds and queries the in-memory tenant lookup table
// the gateway's token-exchange and error handlers consult on every
// request (spec.md §3 TenantRegistry, §4.C).
package registry

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oauthmw/redirect-gateway/config"
)

// key identifies one tenant by the pair the spec mandates uniqueness on.
type key struct {
	clientID string
	tokenURI string
}

// Registry is an immutable, read-mostly (clientId, tokenUri) -> Tenant
// lookup table. A Registry is never mutated after Build returns it; the
// loader replaces the whole value on each successful reload so in-flight
// requests keep reading a consistent snapshot (spec.md §5).
type Registry struct {
	tenants map[key]config.Tenant
}

// Build folds an ordered tenant list into a Registry. When two tenants
// share a (clientId, tokenUri) pair, the one later in the document wins.
func Build(remote []config.Tenant) *Registry {
	tenants := make(map[key]config.Tenant, len(remote))
	for _, t := range remote {
		tenants[key{clientID: t.ClientID, tokenURI: t.TokenURI}] = t
	}
	return &Registry{tenants: tenants}
}

// Lookup returns the tenant for (clientID, tokenURI), or false if none
// is registered.
func (r *Registry) Lookup(clientID, tokenURI string) (config.Tenant, bool) {
	t, ok := r.tenants[key{clientID: clientID, tokenURI: tokenURI}]
	return t, ok
}

// Len reports how many distinct tenants this registry holds.
func (r *Registry) Len() int {
	return len(r.tenants)
}

// AuthorizeBackHost checks redirectBackURI's host against tenant's
// allow-list and, for an ssl-flagged host, enforces that redirectBackURI
// used https. Matching is by exact host[:port], case-insensitive.
func AuthorizeBackHost(tenant config.Tenant, redirectBackURI *url.URL) error {
	host := redirectBackURI.Host
	for _, allowed := range tenant.RedirectBackHosts {
		if !strings.EqualFold(allowed.Host, host) {
			continue
		}
		if allowed.SSL && redirectBackURI.Scheme != "https" {
			return fmt.Errorf("https protocol required for redirect host: %s", host)
		}
		return nil
	}
	return fmt.Errorf("Unknown redirectBack host: %s", host)
}
