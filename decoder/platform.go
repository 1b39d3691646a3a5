package decoder

import (
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/cryptobyte"

	"github.com/mcpherrinm/xmppcert"
	"github.com/mcpherrinm/xmppcert/der"
)

// Platform decodes certificates with crypto/x509. It reports DNS and URI
// alternative names only; XmppAddr and SRVName are invisible to it.
type Platform struct {
	log            *slog.Logger
	attributeNames map[string]string
}

// NewPlatform returns the crypto/x509 backend.
func NewPlatform(opts ...Option) *Platform {
	o := buildOptions(opts)
	return &Platform{
		log:            o.log,
		attributeNames: der.AttributeNames(),
	}
}

func (p *Platform) Kind() Kind { return KindPlatform }

func (p *Platform) logger() *slog.Logger { return p.log }

func (p *Platform) Decode(data []byte) (*xmppcert.CertificateData, error) {
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, &DecodeError{Kind: KindPlatform, Err: err}
	}

	b := builder{data: xmppcert.New(xmppcert.WithLogger(p.log))}

	raw := cryptobyte.String(cert.RawSubject)
	subject, err := der.ParseName(&raw)
	if err != nil {
		return nil, &DecodeError{Kind: KindPlatform, Err: fmt.Errorf("reading subject: %w", err)}
	}
	if !raw.Empty() {
		return nil, &DecodeError{Kind: KindPlatform, Err: errors.New("extra data after subject")}
	}
	b.addSubject(p.attributeNames, subject)

	b.data.NotAfter = cert.NotAfter.UTC()

	for _, name := range cert.DNSNames {
		b.data.AltNames[xmppcert.AltNameDNS] = append(b.data.AltNames[xmppcert.AltNameDNS], name)
	}
	for _, uri := range cert.URIs {
		b.data.AltNames[xmppcert.AltNameURI] = append(b.data.AltNames[xmppcert.AltNameURI], uri.String())
	}
	if len(cert.EmailAddresses) > 0 {
		b.warn(xmppcert.UnsupportedName, "SAN rfc822Name", "")
	}
	if len(cert.IPAddresses) > 0 {
		b.warn(xmppcert.UnsupportedName, "SAN iPAddress", "")
	}

	for _, w := range b.data.Warnings {
		p.log.Debug("certificate value dropped", "kind", w.Kind, "field", w.Field, "detail", w.Detail)
	}
	return b.data, nil
}
