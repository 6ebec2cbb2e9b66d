package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDropsComments(t *testing.T) {
	doc, err := Parse([]byte(`[{"comment":"hi"}]`))
	require.NoError(t, err)
	require.Empty(t, doc.Remote)
	require.Equal(t, DefaultLocal(), doc.Local)
}

func TestParseLocalDefaults(t *testing.T) {
	doc, err := Parse([]byte(`[]`))
	require.NoError(t, err)
	require.Equal(t, 3000, doc.Local.HTTPPort)
	require.Equal(t, 2, doc.Local.ConfigSamplePeriod)
}

func TestParseLocalOverrides(t *testing.T) {
	doc, err := Parse([]byte(`[{"port":4000,"configSamplePeriod":5}]`))
	require.NoError(t, err)
	require.Equal(t, 4000, doc.Local.HTTPPort)
	require.Equal(t, 5, doc.Local.ConfigSamplePeriod)
}

func TestParseRejectsMultipleLocals(t *testing.T) {
	_, err := Parse([]byte(`[{"port":4000},{"configSamplePeriod":5}]`))
	require.ErrorContains(t, err, "Multiple local configurations")
}

func TestParseTenant(t *testing.T) {
	doc, err := Parse([]byte(`[
		{"tokenUri":"https://p/t","clientId":"cid","clientSecret":"sec",
		 "redirectBackHosts":["https://example.com","oauth-client-dev.local"]}
	]`))
	require.NoError(t, err)
	require.Len(t, doc.Remote, 1)

	tenant := doc.Remote[0]
	require.Equal(t, "https://p/t", tenant.TokenURI)
	require.Equal(t, "cid", tenant.ClientID)
	require.Equal(t, "sec", tenant.ClientSecret)
	require.Equal(t, []BackHost{
		{Host: "example.com", SSL: true},
		{Host: "oauth-client-dev.local", SSL: false},
	}, tenant.RedirectBackHosts)
}

func TestParseRejectsIncompleteTenant(t *testing.T) {
	_, err := Parse([]byte(`[{"tokenUri":"https://p/t","clientId":"cid"}]`))
	require.ErrorContains(t, err, "missing required field")
}

func TestParseRejectsMalformedBackHost(t *testing.T) {
	_, err := Parse([]byte(`[
		{"tokenUri":"https://p/t","clientId":"cid","clientSecret":"sec",
		 "redirectBackHosts":["https://"]}
	]`))
	require.Error(t, err)
}

func TestTenantLogFieldsNeverIncludeSecret(t *testing.T) {
	tenant := Tenant{TokenURI: "https://p/t", ClientID: "cid", ClientSecret: "topsecret", Name: "Acme"}
	fields := tenant.LogFields()
	for _, f := range fields {
		if s, ok := f.(string); ok {
			require.NotContains(t, s, "topsecret")
		}
	}
}

func TestParseExampleFromSpec(t *testing.T) {
	doc, err := Parse([]byte(`[ {"port": 3000, "configSamplePeriod": 2},
  {"tokenUri":"https://github.com/login/oauth/access_token",
   "clientId":"abc", "clientSecret":"xyz",
   "redirectBackHosts":["https://example.com","oauth-client-dev.local"]} ]`))
	require.NoError(t, err)
	require.Equal(t, 3000, doc.Local.HTTPPort)
	require.Equal(t, 2, doc.Local.ConfigSamplePeriod)
	require.Len(t, doc.Remote, 1)
}
