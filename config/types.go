// Package config parses and validates the multi-section configuration
// document this gateway hot-reloads: a JSON array of comment, local, and
// remote-tenant objects (spec.md §3, §4.B).
package config

// BackHost is one entry of a tenant's redirectBackHosts allow-list.
type BackHost struct {
	// Host is "host[:port]", matched case-insensitively.
	Host string
	// SSL requires the incoming redirectBackUri to use HTTPS when true.
	SSL bool
}

// Tenant is one remote OAuth provider this gateway brokers token
// exchanges for.
type Tenant struct {
	TokenURI          string
	ClientID          string
	ClientSecret      string
	RedirectBackHosts []BackHost

	// Name is a free-text label for log lines. It never appears in the
	// registry key and has no bearing on lookup.
	Name string
}

// LogFields returns this tenant's loggable key/value pairs. ClientSecret
// is never included; this is the only sanctioned way to turn a Tenant
// into log fields precisely so a future call site cannot leak it by
// forgetting to elide it.
func (t Tenant) LogFields() []interface{} {
	fields := []interface{}{"clientId", t.ClientID, "tokenUri", t.TokenURI}
	if t.Name != "" {
		fields = append(fields, "name", t.Name)
	}
	return fields
}

// Local is the process-wide settings section.
type Local struct {
	// HTTPPort is the public gateway listener's port. Defaults to 3000.
	HTTPPort int
	// ConfigSamplePeriod is the poll interval, in seconds. Zero disables
	// polling. Defaults to 2.
	ConfigSamplePeriod int
}

// DefaultLocal returns the Local section's documented defaults.
func DefaultLocal() Local {
	return Local{HTTPPort: 3000, ConfigSamplePeriod: 2}
}

// Document is the decoded configuration: one local section (defaulted if
// absent) and the ordered list of remote tenants. Comment elements are a
// parser artifact and never survive into a Document.
type Document struct {
	Local  Local
	Remote []Tenant
}
