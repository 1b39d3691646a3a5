// Package testcert builds X.509 certificates for tests.
//
// Certificates are assembled field by field with cryptobyte so tests control
// the exact subject and SubjectAltName encoding, including encodings that
// crypto/x509 would refuse to produce. The signature is not valid; nothing
// here checks it.
package testcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	encoding_asn1 "encoding/asn1"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidECDSAWithSHA256 = encoding_asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidSubjectAltName  = encoding_asn1.ObjectIdentifier{2, 5, 29, 17}
	oidXmppAddr        = encoding_asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 8, 5}
	oidSRVName         = encoding_asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 8, 7}

	OIDCommonName   = encoding_asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDOrganization = encoding_asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDCountry      = encoding_asn1.ObjectIdentifier{2, 5, 4, 6}
	// OIDSerialNumber is a DN attribute that is not given a symbolic name.
	OIDSerialNumber = encoding_asn1.ObjectIdentifier{2, 5, 4, 5}
)

// Spec describes a certificate.
type Spec struct {
	// Subject is marshaled with encoding/asn1. Values may be asn1.RawValue
	// to pick a string type. A nil Subject is an empty Name.
	Subject pkix.RDNSequence
	// NotAfter defaults to 2040-01-01.
	NotAfter time.Time
	// SAN lists the SubjectAltName entries. With no entries and a nil
	// RawSAN the certificate has no SubjectAltName extension.
	SAN []GeneralName
	// RawSAN, when not nil, is used verbatim as the SubjectAltName extnValue.
	RawSAN []byte
	// ExtraSAN holds the extnValue of further SubjectAltName extensions,
	// added in order after the one built from SAN or RawSAN.
	ExtraSAN [][]byte
}

// Build returns the DER encoding of a certificate matching spec.
func Build(tb testing.TB, spec Spec) []byte {
	tb.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		tb.Fatal(err)
	}
	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		tb.Fatal(err)
	}

	subject := spec.Subject
	if subject == nil {
		subject = pkix.RDNSequence{}
	}
	name, err := encoding_asn1.Marshal(subject)
	if err != nil {
		tb.Fatalf("marshaling subject: %v", err)
	}

	notAfter := spec.NotAfter
	if notAfter.IsZero() {
		notAfter = time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	sanValue := spec.RawSAN
	if sanValue == nil && len(spec.SAN) > 0 {
		sanValue = SAN(tb, spec.SAN...)
	}

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(cert *cryptobyte.Builder) {
		cert.AddASN1(asn1.SEQUENCE, func(tbs *cryptobyte.Builder) {
			tbs.AddASN1(asn1.Tag(0).Constructed().ContextSpecific(), func(version *cryptobyte.Builder) {
				version.AddASN1Int64(2)
			})
			tbs.AddASN1Int64(1)
			addAlgorithm(tbs)
			tbs.AddBytes(name)
			tbs.AddASN1(asn1.SEQUENCE, func(validity *cryptobyte.Builder) {
				validity.AddASN1UTCTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
				validity.AddASN1UTCTime(notAfter)
			})
			tbs.AddBytes(name)
			tbs.AddBytes(spki)
			sanValues := spec.ExtraSAN
			if sanValue != nil {
				sanValues = append([][]byte{sanValue}, sanValues...)
			}
			if len(sanValues) > 0 {
				tbs.AddASN1(asn1.Tag(3).Constructed().ContextSpecific(), func(explicit *cryptobyte.Builder) {
					explicit.AddASN1(asn1.SEQUENCE, func(exts *cryptobyte.Builder) {
						for _, value := range sanValues {
							exts.AddASN1(asn1.SEQUENCE, func(ext *cryptobyte.Builder) {
								ext.AddASN1ObjectIdentifier(oidSubjectAltName)
								ext.AddASN1OctetString(value)
							})
						}
					})
				})
			}
		})
		addAlgorithm(cert)
		cert.AddASN1BitString([]byte{0x30, 0x00})
	})

	der, err := b.Bytes()
	if err != nil {
		tb.Fatalf("building certificate: %v", err)
	}
	return der
}

func addAlgorithm(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(alg *cryptobyte.Builder) {
		alg.AddASN1ObjectIdentifier(oidECDSAWithSHA256)
	})
}

// WritePEM writes der as a PEM CERTIFICATE into a file in a temporary
// directory and returns its path.
func WritePEM(tb testing.TB, der []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "cert.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatal(err)
	}
	return path
}

// CN is a single-attribute RDN holding a commonName.
func CN(value string) pkix.RelativeDistinguishedNameSET {
	return pkix.RelativeDistinguishedNameSET{{Type: OIDCommonName, Value: value}}
}

// Attr is a single-attribute RDN.
func Attr(oid encoding_asn1.ObjectIdentifier, value any) pkix.RelativeDistinguishedNameSET {
	return pkix.RelativeDistinguishedNameSET{{Type: oid, Value: value}}
}

// GeneralName appends one GeneralName to a SubjectAltName sequence.
type GeneralName func(*cryptobyte.Builder)

// SAN returns the extnValue of a SubjectAltName extension holding names.
func SAN(tb testing.TB, names ...GeneralName) []byte {
	tb.Helper()
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(seq *cryptobyte.Builder) {
		for _, name := range names {
			name(seq)
		}
	})
	value, err := b.Bytes()
	if err != nil {
		tb.Fatalf("building SAN: %v", err)
	}
	return value
}

// Raw is a GeneralName with an arbitrary tag and contents.
func Raw(tag asn1.Tag, contents []byte) GeneralName {
	return func(b *cryptobyte.Builder) {
		b.AddASN1(tag, func(c *cryptobyte.Builder) {
			c.AddBytes(contents)
		})
	}
}

func Email(addr string) GeneralName {
	return Raw(asn1.Tag(1).ContextSpecific(), []byte(addr))
}

func DNS(name string) GeneralName {
	return Raw(asn1.Tag(2).ContextSpecific(), []byte(name))
}

func URI(uri string) GeneralName {
	return Raw(asn1.Tag(6).ContextSpecific(), []byte(uri))
}

func IP(ip net.IP) GeneralName {
	return Raw(asn1.Tag(7).ContextSpecific(), ip)
}

// DirectoryName wraps a DER-encoded Name.
func DirectoryName(name []byte) GeneralName {
	return Raw(asn1.Tag(4).Constructed().ContextSpecific(), name)
}

// RegisteredID is the implicitly tagged OBJECT IDENTIFIER alternative.
func RegisteredID(oid encoding_asn1.ObjectIdentifier) GeneralName {
	return func(b *cryptobyte.Builder) {
		var inner cryptobyte.Builder
		inner.AddASN1ObjectIdentifier(oid)
		element := cryptobyte.String(inner.BytesOrPanic())
		var contents cryptobyte.String
		element.ReadASN1(&contents, asn1.OBJECT_IDENTIFIER)
		Raw(asn1.Tag(8).ContextSpecific(), contents)(b)
	}
}

// OtherName is an otherName whose value is one element with the given tag.
func OtherName(oid encoding_asn1.ObjectIdentifier, tag asn1.Tag, value []byte) GeneralName {
	return func(b *cryptobyte.Builder) {
		b.AddASN1(asn1.Tag(0).Constructed().ContextSpecific(), func(on *cryptobyte.Builder) {
			on.AddASN1ObjectIdentifier(oid)
			on.AddASN1(asn1.Tag(0).Constructed().ContextSpecific(), func(explicit *cryptobyte.Builder) {
				explicit.AddASN1(tag, func(v *cryptobyte.Builder) {
					v.AddBytes(value)
				})
			})
		})
	}
}

// XmppAddr is an id-on-xmppAddr otherName.
func XmppAddr(addr string) GeneralName {
	return OtherName(oidXmppAddr, asn1.UTF8String, []byte(addr))
}

// SRVName is an id-on-dnsSRV otherName.
func SRVName(name string) GeneralName {
	return OtherName(oidSRVName, asn1.IA5String, []byte(name))
}
