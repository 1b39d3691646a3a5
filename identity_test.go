package xmppcert

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"
)

func withAltNames(altNames map[string][]string) *CertificateData {
	c := New(WithLogger(slog.New(slog.DiscardHandler)))
	for k, v := range altNames {
		c.AltNames[k] = v
	}
	return c
}

func jidStrings(jids []jid.JID) []string {
	out := make([]string, 0, len(jids))
	for _, j := range jids {
		out = append(out, j.String())
	}
	return out
}

func TestNew(t *testing.T) {
	c := New()
	assert.False(t, c.Validated)
	assert.Nil(t, c.SubjectName)
	assert.Nil(t, c.CommonNames)
	assert.NotNil(t, c.AltNames)
	assert.Empty(t, c.AltNames)
	assert.True(t, c.NotAfter.IsZero())
	assert.Empty(t, c.Warnings)
}

func TestGetJIDs(t *testing.T) {
	tests := []struct {
		name        string
		altNames    map[string][]string
		commonNames []string
		want        []string
	}{
		{
			name:     "xmppaddr",
			altNames: map[string][]string{AltNameXmppAddr: {"user@example.com"}},
			want:     []string{"user@example.com"},
		},
		{
			name: "xmppaddr before dns",
			altNames: map[string][]string{
				AltNameDNS:      {"example.com", "xmpp.example.com"},
				AltNameXmppAddr: {"user@example.com"},
			},
			want: []string{"user@example.com", "example.com", "xmpp.example.com"},
		},
		{
			name: "duplicates removed in first-seen order",
			altNames: map[string][]string{
				AltNameDNS:      {"example.com", "other.com", "example.com"},
				AltNameXmppAddr: {"example.com"},
			},
			want: []string{"example.com", "other.com"},
		},
		{
			name:        "alt names take precedence over common names",
			altNames:    map[string][]string{AltNameDNS: {"example.com"}},
			commonNames: []string{"other.com"},
			want:        []string{"example.com"},
		},
		{
			name:        "srv names and uris are not identities",
			altNames:    map[string][]string{AltNameSRVName: {"_xmpp-client.example.com"}, AltNameURI: {"xmpp:example.com"}},
			commonNames: []string{"example.com"},
			want:        []string{"example.com"},
		},
		{
			name:        "common names that look like jids are skipped",
			commonNames: []string{"user@example.com", "example.com/res", "example.com", "example.org"},
			want:        []string{"example.com", "example.org"},
		},
		{
			name: "malformed entries skipped",
			altNames: map[string][]string{
				AltNameXmppAddr: {"", "user@example.com", "user@"},
			},
			want: []string{"user@example.com"},
		},
		{
			name: "nothing",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := withAltNames(tt.altNames)
			c.CommonNames = tt.commonNames
			assert.Equal(t, tt.want, jidStrings(c.GetJIDs()))
		})
	}
}

func TestGetJIDsLogsMalformed(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	c.AltNames[AltNameDNS] = []string{"user@", "example.com"}

	jids := c.GetJIDs()

	assert.Equal(t, []string{"example.com"}, jidStrings(jids))
	assert.Contains(t, buf.String(), "bad JID in the certificate")
	assert.Contains(t, buf.String(), "jid=user@")
}

func TestDomainsEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"example.com", "example.com", true},
		{"Example.COM", "example.com", true},
		{"example.com.", "example.com", true},
		{"example.com", "EXAMPLE.COM.", true},
		{"example.com/console", "example.com", false},
		{"example.com", "example.org", false},
		{"example.com", "xmpp.example.com", false},
		{"user@example.com", "example.com", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainsEqual(tt.a, tt.b))
		})
	}
}

func TestDisplayName(t *testing.T) {
	c := New()
	assert.Equal(t, "<unknown>", c.DisplayName())

	c.AltNames[AltNameDNS] = []string{"dns.example.com"}
	assert.Equal(t, "dns.example.com", c.DisplayName())

	c.AltNames[AltNameXmppAddr] = []string{"user@example.com"}
	assert.Equal(t, "user@example.com", c.DisplayName())

	c.SubjectName = []RDN{
		{{Name: "CountryName", Value: "PL"}},
		{{Name: "OrganizationName", Value: "Example"}, {Name: "CommonName", Value: "example.com"}},
	}
	assert.Equal(t, "CountryName=PL, OrganizationName=Example, CommonName=example.com", c.DisplayName())
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: UnknownAttribute, Field: "subject 2.5.4.5"}
	assert.Equal(t, "unknown-attribute: subject 2.5.4.5", w.String())

	w = Warning{Kind: UndecodableValue, Field: "SAN DNS", Detail: "non-ASCII byte"}
	require.Equal(t, "undecodable-value: SAN DNS: non-ASCII byte", w.String())
}
