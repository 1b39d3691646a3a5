// Package xmppcert decides whether a TLS peer certificate speaks for an XMPP
// server domain or client account.
//
// A CertificateData is produced by one of the decoders in the decoder package
// and then consulted with GetJIDs, VerifyServer and VerifyClient. Every
// question it answers fails closed: missing, malformed or ambiguous data means
// "not verified".
package xmppcert

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SubjectAltName categories kept in CertificateData.AltNames. Other
// GeneralName forms are not recorded.
const (
	AltNameDNS      = "DNS"
	AltNameURI      = "URI"
	AltNameXmppAddr = "XmppAddr"
	AltNameSRVName  = "SRVName"
)

// Attribute is one interpreted subject attribute, e.g. {"CommonName", "example.com"}.
type Attribute struct {
	Name  string
	Value string
}

// RDN is the interpreted content of one RelativeDistinguishedName, in
// encoding order.
type RDN []Attribute

// CertificateData is the identity information carried by a certificate.
//
// A nil SubjectName or CommonNames means no subject was decoded; AltNames is
// never nil. A zero NotAfter means the expiry is unknown. Values are built
// once by a decoder and are not modified by any method.
type CertificateData struct {
	// Validated reports whether the TLS library verified the peer's chain.
	Validated   bool
	SubjectName []RDN
	CommonNames []string
	AltNames    map[string][]string
	NotAfter    time.Time `json:",omitzero"`
	Warnings    []Warning `json:",omitempty"`

	log *slog.Logger
}

// Option configures a CertificateData built by New.
type Option func(*CertificateData)

// WithLogger sets the logger used to report names in the certificate that
// are not valid JIDs.
func WithLogger(log *slog.Logger) Option {
	return func(c *CertificateData) {
		c.log = log
	}
}

// New returns an empty, unvalidated CertificateData. It is what a peer that
// presented no certificate looks like.
func New(opts ...Option) *CertificateData {
	c := &CertificateData{
		AltNames: map[string][]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CertificateData) logger() *slog.Logger {
	if c.log == nil {
		return slog.Default()
	}
	return c.log
}

// DisplayName returns a human readable name for the certificate subject:
// the subject attributes if there are any, otherwise the first XmppAddr, DNS
// or SRVName alternative name.
func (c *CertificateData) DisplayName() string {
	var parts []string
	for _, rdn := range c.SubjectName {
		for _, attr := range rdn {
			parts = append(parts, fmt.Sprintf("%s=%s", attr.Name, attr.Value))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	for _, category := range []string{AltNameXmppAddr, AltNameDNS, AltNameSRVName} {
		if names := c.AltNames[category]; len(names) > 0 {
			return names[0]
		}
	}
	return "<unknown>"
}

func (c *CertificateData) hasAltNames(categories ...string) bool {
	for _, category := range categories {
		if len(c.AltNames[category]) > 0 {
			return true
		}
	}
	return false
}

// WarningKind classifies a value that was dropped while decoding.
type WarningKind string

const (
	// UnknownAttribute is a subject attribute whose type is not in the DN
	// attribute table.
	UnknownAttribute WarningKind = "unknown-attribute"
	// UndecodableValue is a string whose encoding could not be decoded.
	UndecodableValue WarningKind = "undecodable-value"
	// UnsupportedName is a GeneralName form that is not interpreted.
	UnsupportedName WarningKind = "unsupported-name"
	// UnknownOtherName is an otherName with an unrecognized type-id.
	UnknownOtherName WarningKind = "unknown-other-name"
)

// Warning describes one value left out of a CertificateData. Warnings never
// make a decode fail.
type Warning struct {
	Kind   WarningKind
	Field  string
	Detail string `json:",omitempty"`
}

func (w Warning) String() string {
	if w.Detail == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Field)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Field, w.Detail)
}
