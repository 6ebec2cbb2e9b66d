package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// element is the union of every shape a configuration array entry can
// take. UnmarshalJSON on Document classifies each element by which
// fields are present, the same way dex's cmd/dex/config.go sniffs a
// Storage/Connector's "type" discriminator before decoding the rest.
type element struct {
	Comment *string `json:"comment"`

	Port               *int `json:"port"`
	ConfigSamplePeriod *int `json:"configSamplePeriod"`

	TokenURI          *string   `json:"tokenUri"`
	ClientID          *string   `json:"clientId"`
	ClientSecret      *string   `json:"clientSecret"`
	RedirectBackHosts *[]string `json:"redirectBackHosts"`
	Name              *string   `json:"name"`
}

func (e element) isComment() bool {
	return e.Comment != nil
}

func (e element) tenantFieldCount() int {
	n := 0
	if e.TokenURI != nil {
		n++
	}
	if e.ClientID != nil {
		n++
	}
	if e.ClientSecret != nil {
		n++
	}
	if e.RedirectBackHosts != nil {
		n++
	}
	return n
}

func (e element) isLocal() bool {
	return e.Port != nil || e.ConfigSamplePeriod != nil
}

// Parse decodes a configuration document. The input may be JSON (YAML is
// a superset of JSON, so ghodss/yaml.Unmarshal accepts both without this
// package needing to care which one a given build/config.json actually
// is).
func Parse(data []byte) (Document, error) {
	var raw []json.RawMessage
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, errors.Wrap(err, "parse configuration document")
	}

	doc := Document{Local: DefaultLocal()}
	haveLocal := false

	for i, r := range raw {
		var e element
		if err := json.Unmarshal(r, &e); err != nil {
			return Document{}, errors.Wrapf(err, "parse configuration element %d", i)
		}

		switch {
		case e.isComment():
			continue

		case e.tenantFieldCount() > 0:
			tenant, err := decodeTenant(e)
			if err != nil {
				return Document{}, errors.Wrapf(err, "configuration element %d", i)
			}
			doc.Remote = append(doc.Remote, tenant)

		case e.isLocal():
			if haveLocal {
				return Document{}, errors.New("Multiple local configurations")
			}
			haveLocal = true
			if e.Port != nil {
				doc.Local.HTTPPort = *e.Port
			}
			if e.ConfigSamplePeriod != nil {
				doc.Local.ConfigSamplePeriod = *e.ConfigSamplePeriod
			}

		default:
			return Document{}, fmt.Errorf("configuration element %d: unrecognized shape", i)
		}
	}

	return doc, nil
}

func decodeTenant(e element) (Tenant, error) {
	var missing []string
	if e.TokenURI == nil {
		missing = append(missing, "tokenUri")
	}
	if e.ClientID == nil {
		missing = append(missing, "clientId")
	}
	if e.ClientSecret == nil {
		missing = append(missing, "clientSecret")
	}
	if e.RedirectBackHosts == nil {
		missing = append(missing, "redirectBackHosts")
	}
	if len(missing) > 0 {
		return Tenant{}, fmt.Errorf("tenant missing required field(s): %s", strings.Join(missing, ", "))
	}

	hosts := make([]BackHost, 0, len(*e.RedirectBackHosts))
	for _, h := range *e.RedirectBackHosts {
		host, err := parseBackHost(h)
		if err != nil {
			return Tenant{}, err
		}
		hosts = append(hosts, host)
	}

	name := ""
	if e.Name != nil {
		name = *e.Name
	}

	return Tenant{
		TokenURI:          *e.TokenURI,
		ClientID:          *e.ClientID,
		ClientSecret:      *e.ClientSecret,
		RedirectBackHosts: hosts,
		Name:              name,
	}, nil
}

// parseBackHost interprets one redirectBackHosts entry per spec.md
// §4.B: an "https://" prefix requires TLS on the incoming
// redirectBackUri, an "http://" prefix or a bare host does not.
func parseBackHost(s string) (BackHost, error) {
	switch {
	case strings.HasPrefix(s, "https://"):
		u, err := url.Parse(s)
		if err != nil {
			return BackHost{}, fmt.Errorf("redirectBackHosts entry %q: %w", s, err)
		}
		if u.Host == "" {
			return BackHost{}, fmt.Errorf("redirectBackHosts entry %q: missing host", s)
		}
		return BackHost{Host: u.Host, SSL: true}, nil

	case strings.HasPrefix(s, "http://"):
		u, err := url.Parse(s)
		if err != nil {
			return BackHost{}, fmt.Errorf("redirectBackHosts entry %q: %w", s, err)
		}
		if u.Host == "" {
			return BackHost{}, fmt.Errorf("redirectBackHosts entry %q: missing host", s)
		}
		return BackHost{Host: u.Host, SSL: false}, nil

	default:
		host := s
		if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
			host = host[:idx]
		}
		if host == "" {
			return BackHost{}, fmt.Errorf("redirectBackHosts entry %q: empty host", s)
		}
		return BackHost{Host: host, SSL: false}, nil
	}
}
