// Package der decodes the parts of a DER-encoded X.509 certificate that XMPP
// peer verification needs.
//
// Unlike a general purpose X.509 parser it is strict about structure and
// silent about meaning: every element of the Certificate grammar must be
// well-formed DER, but only the subject Name, the validity period and the
// SubjectAltName extension are decoded past their framing. Interpretation of
// the decoded values (attribute names, text encodings, XMPP name forms) is left
// to the caller.
package der

import (
	encoding_asn1 "encoding/asn1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

//	Certificate  ::=  SEQUENCE  {
//	  tbsCertificate     TBSCertificate,
//	  signatureAlgorithm AlgorithmIdentifier,
//	  signatureValue     BIT STRING  }
type Certificate struct {
	TBSCertificate     TBSCertificate
	SignatureAlgorithm AlgorithmIdentifier
	SignatureValue     []byte
}

// ParseCertificate parses a single DER-encoded certificate. Trailing data
// after the certificate is an error.
func ParseCertificate(data []byte) (*Certificate, error) {
	der := cryptobyte.String(data)

	var certificate cryptobyte.String
	if !der.ReadASN1(&certificate, asn1.SEQUENCE) {
		return nil, errors.New("failed to read Certificate Sequence")
	}
	if !der.Empty() {
		return nil, errors.New("extra data after certificate")
	}

	var tbsCertificate cryptobyte.String
	if !certificate.ReadASN1(&tbsCertificate, asn1.SEQUENCE) {
		return nil, errors.New("failed to read tbsCertificate")
	}

	signatureAlgorithm, err := ParseAlgorithmIdentifier(&certificate)
	if err != nil {
		return nil, fmt.Errorf("parsing signatureAlgorithm: %w", err)
	}

	var signatureValue []byte
	if !certificate.ReadASN1BitStringAsBytes(&signatureValue) {
		return nil, errors.New("failed to read signatureValue")
	}

	if !certificate.Empty() {
		return nil, errors.New("extra data in certificate")
	}

	parsedTBSCertificate, err := ParseTBSCertificate(&tbsCertificate)
	if err != nil {
		return nil, err
	}

	return &Certificate{
		TBSCertificate:     parsedTBSCertificate,
		SignatureAlgorithm: signatureAlgorithm,
		SignatureValue:     signatureValue,
	}, nil
}

//	TBSCertificate  ::=  SEQUENCE  {
//		 version         [0]  EXPLICIT Version DEFAULT v1,
//		 serialNumber         CertificateSerialNumber,
//		 signature            AlgorithmIdentifier,
//		 issuer               Name,
//		 validity             Validity,
//		 subject              Name,
//		 subjectPublicKeyInfo SubjectPublicKeyInfo,
//		 issuerUniqueID  [1]  IMPLICIT UniqueIdentifier OPTIONAL,
//		 subjectUniqueID [2]  IMPLICIT UniqueIdentifier OPTIONAL,
//		 extensions      [3]  EXPLICIT Extensions OPTIONAL
//		 }
type TBSCertificate struct {
	Version              Version
	SerialNumber         CertificateSerialNumber
	Signature            AlgorithmIdentifier
	Issuer               Name
	Validity             Validity
	Subject              Name
	SubjectPublicKeyInfo SubjectPublicKeyInfo
	IssuerUniqueID       UniqueIdentifier `json:",omitempty"`
	SubjectUniqueID      UniqueIdentifier `json:",omitempty"`
	Extensions           []Extension
}

func ParseTBSCertificate(der *cryptobyte.String) (TBSCertificate, error) {
	var version uint
	if !der.ReadOptionalASN1Integer(&version, asn1.Tag(0).Constructed().ContextSpecific(), 0) {
		return TBSCertificate{}, errors.New("reading version")
	}

	var serialNumber []byte
	if !der.ReadASN1Integer(&serialNumber) {
		return TBSCertificate{}, errors.New("reading serial number")
	}

	signature, err := ParseAlgorithmIdentifier(der)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing signature: %w", err)
	}

	issuer, err := ParseName(der)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("reading issuer: %w", err)
	}

	validity, err := ParseValidity(der)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing validity: %w", err)
	}

	subject, err := ParseName(der)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("reading subject: %w", err)
	}

	subjectPublicKeyInfo, err := ParseSubjectPublicKeyInfo(der)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing SubjectPublicKeyInfo: %w", err)
	}

	issuerUniqueID, err := ParseUniqueIdentifier(der, 1)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing issuer UniqueIdentifier: %w", err)
	}

	subjectUniqueID, err := ParseUniqueIdentifier(der, 2)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing subject UniqueIdentifier: %w", err)
	}

	extensions, err := ParseExtensions(der)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing extensions: %w", err)
	}

	if !der.Empty() {
		return TBSCertificate{}, errors.New("extra data after tbsCertificate")
	}

	return TBSCertificate{
		Version:              Version(version),
		SerialNumber:         serialNumber,
		Signature:            signature,
		Issuer:               issuer,
		Validity:             validity,
		Subject:              subject,
		SubjectPublicKeyInfo: subjectPublicKeyInfo,
		IssuerUniqueID:       issuerUniqueID,
		SubjectUniqueID:      subjectUniqueID,
		Extensions:           extensions,
	}, nil
}

//	AlgorithmIdentifier  ::=  SEQUENCE  {
//	    algorithm               OBJECT IDENTIFIER,
//	    parameters              ANY DEFINED BY algorithm OPTIONAL  }
type AlgorithmIdentifier struct {
	Algorithm  ObjectIdentifier
	Parameters []byte `json:",omitempty"`
}

func ParseAlgorithmIdentifier(der *cryptobyte.String) (AlgorithmIdentifier, error) {
	var algorithmIdentifier cryptobyte.String
	if !der.ReadASN1(&algorithmIdentifier, asn1.SEQUENCE) {
		return AlgorithmIdentifier{}, errors.New("failed to read AlgorithmIdentifier")
	}

	oid, err := ParseObjectIdentifier(&algorithmIdentifier)
	if err != nil {
		return AlgorithmIdentifier{}, err
	}

	var parameters cryptobyte.String
	if !algorithmIdentifier.Empty() {
		if !algorithmIdentifier.ReadAnyASN1Element(&parameters, nil) {
			return AlgorithmIdentifier{}, errors.New("failed to read AlgorithmIdentifier parameters")
		}
		if !algorithmIdentifier.Empty() {
			return AlgorithmIdentifier{}, errors.New("extra data after AlgorithmIdentifier parameters")
		}
	}

	return AlgorithmIdentifier{
		Algorithm:  oid,
		Parameters: parameters,
	}, nil
}

type ObjectIdentifier encoding_asn1.ObjectIdentifier

func ParseObjectIdentifier(der *cryptobyte.String) (ObjectIdentifier, error) {
	var oid encoding_asn1.ObjectIdentifier
	if !der.ReadASN1ObjectIdentifier(&oid) {
		return ObjectIdentifier{}, errors.New("failed to read OID")
	}
	return ObjectIdentifier(oid), nil
}

func (oid ObjectIdentifier) String() string {
	return encoding_asn1.ObjectIdentifier(oid).String()
}

func (oid ObjectIdentifier) Equal(other ObjectIdentifier) bool {
	return encoding_asn1.ObjectIdentifier(oid).Equal(encoding_asn1.ObjectIdentifier(other))
}

func (oid ObjectIdentifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(oid.String())
}

// Version ::= INTEGER {v1(0), v2(1), v3(2)}
type Version uint

func (v Version) String() string {
	if v > 2 {
		return fmt.Sprintf("unknown(%d)", v)
	}
	return fmt.Sprintf("v%d(%d)", v+1, v)
}

func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// CertificateSerialNumber  ::=  INTEGER
type CertificateSerialNumber []byte

func (serial CertificateSerialNumber) String() string {
	return hex.EncodeToString(serial)
}

func (serial CertificateSerialNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(serial.String())
}

//	Validity ::= SEQUENCE {
//	  notBefore      Time,
//	  notAfter       Time }
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

func ParseValidity(der *cryptobyte.String) (Validity, error) {
	var validity cryptobyte.String
	if !der.ReadASN1(&validity, asn1.SEQUENCE) {
		return Validity{}, errors.New("failed to read Validity")
	}

	notBefore, err := ParseTime(&validity)
	if err != nil {
		return Validity{}, fmt.Errorf("parsing NotBefore: %w", err)
	}

	notAfter, err := ParseTime(&validity)
	if err != nil {
		return Validity{}, fmt.Errorf("parsing NotAfter: %w", err)
	}

	if !validity.Empty() {
		return Validity{}, errors.New("extra data after Validity")
	}

	return Validity{
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}, nil
}

// ParseTime reads a Time and returns it in UTC.
//
//	Time ::= CHOICE {
//	  utcTime        UTCTime,
//	  generalTime    GeneralizedTime }
func ParseTime(der *cryptobyte.String) (time.Time, error) {
	var t time.Time
	if der.PeekASN1Tag(asn1.UTCTime) {
		if !der.ReadASN1UTCTime(&t) {
			return time.Time{}, errors.New("failed to parse UTCTime")
		}
		return t.UTC(), nil
	}
	if der.PeekASN1Tag(asn1.GeneralizedTime) {
		if !der.ReadASN1GeneralizedTime(&t) {
			return time.Time{}, errors.New("failed to parse GeneralizedTime")
		}
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("failed to parse time")
}

//	SubjectPublicKeyInfo  ::=  SEQUENCE  {
//	    algorithm            AlgorithmIdentifier,
//	    subjectPublicKey     BIT STRING  }
type SubjectPublicKeyInfo struct {
	Algorithm        AlgorithmIdentifier
	SubjectPublicKey []byte
}

func ParseSubjectPublicKeyInfo(der *cryptobyte.String) (SubjectPublicKeyInfo, error) {
	var subjectPublicKeyInfo cryptobyte.String
	if !der.ReadASN1(&subjectPublicKeyInfo, asn1.SEQUENCE) {
		return SubjectPublicKeyInfo{}, errors.New("failed to read SubjectPublicKeyInfo")
	}

	algo, err := ParseAlgorithmIdentifier(&subjectPublicKeyInfo)
	if err != nil {
		return SubjectPublicKeyInfo{}, fmt.Errorf("parsing SubjectPublicKeyInfo Algorithm: %w", err)
	}

	var subjectPublicKey []byte
	if !subjectPublicKeyInfo.ReadASN1BitStringAsBytes(&subjectPublicKey) {
		return SubjectPublicKeyInfo{}, errors.New("failed to read SubjectPublicKeyInfo public key")
	}

	if !subjectPublicKeyInfo.Empty() {
		return SubjectPublicKeyInfo{}, errors.New("extra data after SubjectPublicKeyInfo")
	}

	return SubjectPublicKeyInfo{
		Algorithm:        algo,
		SubjectPublicKey: subjectPublicKey,
	}, nil
}

// UniqueIdentifier  ::=  BIT STRING
//
// The identifier is kept as the raw BIT STRING contents, including the leading
// unused-bits octet. A nil UniqueIdentifier means the field was absent.
type UniqueIdentifier []byte

func ParseUniqueIdentifier(der *cryptobyte.String, tag uint8) (UniqueIdentifier, error) {
	var uniqueIdentifier cryptobyte.String
	var hasUniqueIdentifier bool

	if !der.ReadOptionalASN1(&uniqueIdentifier, &hasUniqueIdentifier, asn1.Tag(tag).ContextSpecific()) {
		return nil, errors.New("failed to read UniqueIdentifier")
	}

	if !hasUniqueIdentifier {
		return nil, nil
	}
	if len(uniqueIdentifier) == 0 || uniqueIdentifier[0] > 7 {
		return nil, errors.New("invalid UniqueIdentifier bit string")
	}
	return UniqueIdentifier(uniqueIdentifier), nil
}

//	Extension  ::=  SEQUENCE  {
//	    extnID      OBJECT IDENTIFIER,
//	    critical    BOOLEAN DEFAULT FALSE,
//	    extnValue   OCTET STRING
//	                -- contains the DER encoding of an ASN.1 value
//	                -- corresponding to the extension type identified
//	                -- by extnID
//	    }
//
// Value holds the contents of extnValue, undecoded.
type Extension struct {
	ExtnID   ObjectIdentifier
	Critical bool
	Value    []byte
}

// ParseExtensions reads the optional [3] EXPLICIT Extensions field.
//
//	Extensions  ::=  SEQUENCE SIZE (1..MAX) OF Extension
func ParseExtensions(der *cryptobyte.String) ([]Extension, error) {
	var explicit cryptobyte.String
	var hasExtensions bool
	var tag = asn1.Tag(3).Constructed().ContextSpecific()
	if !der.ReadOptionalASN1(&explicit, &hasExtensions, tag) {
		return nil, errors.New("failed to read Extensions")
	}

	if !hasExtensions {
		return nil, nil
	}

	var extensions cryptobyte.String
	if !explicit.ReadASN1(&extensions, asn1.SEQUENCE) || !explicit.Empty() {
		return nil, errors.New("failed to read Extensions sequence")
	}

	var parsedExtensions []Extension
	for !extensions.Empty() {
		ext, err := ParseExtension(&extensions)
		if err != nil {
			return nil, err
		}
		parsedExtensions = append(parsedExtensions, ext)
	}

	return parsedExtensions, nil
}

func ParseExtension(der *cryptobyte.String) (Extension, error) {
	var extension cryptobyte.String
	if !der.ReadASN1(&extension, asn1.SEQUENCE) {
		return Extension{}, errors.New("failed to read Extension")
	}

	extnID, err := ParseObjectIdentifier(&extension)
	if err != nil {
		return Extension{}, fmt.Errorf("parsing Extension OID: %w", err)
	}

	critical := false
	if extension.PeekASN1Tag(asn1.BOOLEAN) {
		if !extension.ReadASN1Boolean(&critical) {
			return Extension{}, errors.New("failed to read critical bit")
		}
	}

	var extnValue cryptobyte.String
	if !extension.ReadASN1(&extnValue, asn1.OCTET_STRING) {
		return Extension{}, fmt.Errorf("failed to read value of extension %s", extnID)
	}

	if !extension.Empty() {
		return Extension{}, fmt.Errorf("extra data after extension %s", extnID)
	}

	return Extension{
		ExtnID:   extnID,
		Critical: critical,
		Value:    extnValue,
	}, nil
}
