package decoder

import (
	"fmt"
	"log/slog"

	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/mcpherrinm/xmppcert"
	"github.com/mcpherrinm/xmppcert/der"
)

// DER decodes certificates with the der package.
type DER struct {
	log *slog.Logger
	// attributeNames maps dotted OIDs to DN attribute names. Built once by
	// NewDER and only read afterwards.
	attributeNames map[string]string
}

// NewDER returns the DER backend.
func NewDER(opts ...Option) *DER {
	o := buildOptions(opts)
	return &DER{
		log:            o.log,
		attributeNames: der.AttributeNames(),
	}
}

func (d *DER) Kind() Kind { return KindDER }

func (d *DER) logger() *slog.Logger { return d.log }

// Decode parses a DER certificate. Structural errors anywhere in the
// certificate, including inside the SubjectAltName extension, return a
// *DecodeError. Values that are well-formed but not usable are dropped and
// recorded in the Warnings of the result.
func (d *DER) Decode(data []byte) (*xmppcert.CertificateData, error) {
	cert, err := der.ParseCertificate(data)
	if err != nil {
		return nil, &DecodeError{Kind: KindDER, Err: err}
	}
	tbs := cert.TBSCertificate

	b := builder{data: xmppcert.New(xmppcert.WithLogger(d.log))}
	b.addSubject(d.attributeNames, tbs.Subject)
	b.data.NotAfter = tbs.Validity.NotAfter

	for _, ext := range tbs.Extensions {
		if !ext.ExtnID.Equal(der.OIDSubjectAltName) {
			continue
		}
		names, err := der.ParseSubjectAltName(ext.Value)
		if err != nil {
			return nil, &DecodeError{Kind: KindDER, Err: err}
		}
		d.decodeAltNames(&b, names)
	}

	for _, w := range b.data.Warnings {
		d.log.Debug("certificate value dropped", "kind", w.Kind, "field", w.Field, "detail", w.Detail)
	}
	return b.data, nil
}

func (d *DER) decodeAltNames(b *builder, names []der.GeneralName) {
	for _, name := range names {
		switch n := name.(type) {
		case der.DNSName:
			b.addString(xmppcert.AltNameDNS, asn1.IA5String, []byte(n))
		case der.URI:
			b.addString(xmppcert.AltNameURI, asn1.IA5String, []byte(n))
		case der.OtherName:
			switch {
			case n.TypeID.Equal(der.OIDXmppAddr):
				b.addOtherName(xmppcert.AltNameXmppAddr, asn1.UTF8String, n)
			case n.TypeID.Equal(der.OIDSRVName):
				b.addOtherName(xmppcert.AltNameSRVName, asn1.IA5String, n)
			default:
				b.warn(xmppcert.UnknownOtherName, "SAN otherName "+n.TypeID.String(), "")
			}
		case der.RFC822Name, der.X400Address, der.DirectoryName, der.EDIPartyName, der.IPAddress, der.RegisteredID:
			b.warn(xmppcert.UnsupportedName, "SAN "+n.Tag().String(), "")
		default:
			b.warn(xmppcert.UnsupportedName, fmt.Sprintf("SAN %T", n), "")
		}
	}
}

// builder accumulates one CertificateData.
type builder struct {
	data *xmppcert.CertificateData
}

func (b *builder) warn(kind xmppcert.WarningKind, field, detail string) {
	b.data.Warnings = append(b.data.Warnings, xmppcert.Warning{Kind: kind, Field: field, Detail: detail})
}

// addSubject records the subject RDNs, keeping only attributes named in
// attributeNames whose values decode to text. An RDN left without attributes
// is still recorded.
func (b *builder) addSubject(attributeNames map[string]string, subject der.Name) {
	b.data.SubjectName = []xmppcert.RDN{}
	b.data.CommonNames = []string{}
	for _, rdn := range subject {
		attrs := xmppcert.RDN{}
		for _, atv := range rdn {
			oid := atv.Type.String()
			name, ok := attributeNames[oid]
			if !ok {
				b.warn(xmppcert.UnknownAttribute, "subject "+oid, "")
				continue
			}
			value, err := der.DecodeString(atv.Tag, atv.Value)
			if err != nil {
				b.warn(xmppcert.UndecodableValue, "subject "+name, err.Error())
				continue
			}
			if name == der.CommonName {
				b.data.CommonNames = append(b.data.CommonNames, value)
			}
			attrs = append(attrs, xmppcert.Attribute{Name: name, Value: value})
		}
		b.data.SubjectName = append(b.data.SubjectName, attrs)
	}
}

func (b *builder) addString(category string, tag asn1.Tag, raw []byte) {
	value, err := der.DecodeString(tag, raw)
	if err != nil {
		b.warn(xmppcert.UndecodableValue, "SAN "+category, err.Error())
		return
	}
	b.data.AltNames[category] = append(b.data.AltNames[category], value)
}

func (b *builder) addOtherName(category string, want asn1.Tag, n der.OtherName) {
	if n.ValueTag != want {
		b.warn(xmppcert.UndecodableValue, "SAN "+category, fmt.Sprintf("unexpected value tag %d", n.ValueTag))
		return
	}
	b.addString(category, want, n.Value)
}
