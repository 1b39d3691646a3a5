package der

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	OIDSubjectAltName = ObjectIdentifier{2, 5, 29, 17}

	// OIDXmppAddr identifies an otherName carrying a JID as a UTF8String
	// (RFC 6120 13.7.1.4).
	OIDXmppAddr = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 8, 5}
	// OIDSRVName identifies an otherName carrying an SRV-ID as an IA5String
	// (RFC 4985).
	OIDSRVName = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 8, 7}
)

// GeneralNameTag is the context-specific tag number of a GeneralName CHOICE
// alternative.
type GeneralNameTag uint8

const (
	TagOtherName                 GeneralNameTag = 0
	TagRFC822Name                GeneralNameTag = 1
	TagDNSName                   GeneralNameTag = 2
	TagX400Address               GeneralNameTag = 3
	TagDirectoryName             GeneralNameTag = 4
	TagEDIPartyName              GeneralNameTag = 5
	TagUniformResourceIdentifier GeneralNameTag = 6
	TagIPAddress                 GeneralNameTag = 7
	TagRegisteredID              GeneralNameTag = 8
)

func (t GeneralNameTag) String() string {
	switch t {
	case TagOtherName:
		return "otherName"
	case TagRFC822Name:
		return "rfc822Name"
	case TagDNSName:
		return "dNSName"
	case TagX400Address:
		return "x400Address"
	case TagDirectoryName:
		return "directoryName"
	case TagEDIPartyName:
		return "ediPartyName"
	case TagUniformResourceIdentifier:
		return "uniformResourceIdentifier"
	case TagIPAddress:
		return "iPAddress"
	case TagRegisteredID:
		return "registeredID"
	}
	return fmt.Sprintf("GeneralName(%d)", uint8(t))
}

//	GeneralName ::= CHOICE {
//	     otherName                       [0]     OtherName,
//	     rfc822Name                      [1]     IA5String,
//	     dNSName                         [2]     IA5String,
//	     x400Address                     [3]     ORAddress,
//	     directoryName                   [4]     Name,
//	     ediPartyName                    [5]     EDIPartyName,
//	     uniformResourceIdentifier       [6]     IA5String,
//	     iPAddress                       [7]     OCTET STRING,
//	     registeredID                    [8]     OBJECT IDENTIFIER }
//
// GeneralName is implemented only by the nine types of this package below, one
// per alternative. IA5String alternatives hold the undecoded octets; use
// DecodeString with asn1.IA5String to get text.
type GeneralName interface {
	Tag() GeneralNameTag
	generalName()
}

//	OtherName ::= SEQUENCE {
//	     type-id    OBJECT IDENTIFIER,
//	     value      [0] EXPLICIT ANY DEFINED BY type-id }
type OtherName struct {
	TypeID   ObjectIdentifier
	ValueTag asn1.Tag
	Value    []byte
}

type RFC822Name string

type DNSName string

// X400Address holds the undecoded ORAddress contents.
type X400Address []byte

type DirectoryName struct {
	Name Name
}

// EDIPartyName holds the undecoded EDIPartyName contents.
type EDIPartyName []byte

type URI string

type IPAddress net.IP

type RegisteredID ObjectIdentifier

func (OtherName) Tag() GeneralNameTag     { return TagOtherName }
func (RFC822Name) Tag() GeneralNameTag    { return TagRFC822Name }
func (DNSName) Tag() GeneralNameTag       { return TagDNSName }
func (X400Address) Tag() GeneralNameTag   { return TagX400Address }
func (DirectoryName) Tag() GeneralNameTag { return TagDirectoryName }
func (EDIPartyName) Tag() GeneralNameTag  { return TagEDIPartyName }
func (URI) Tag() GeneralNameTag           { return TagUniformResourceIdentifier }
func (IPAddress) Tag() GeneralNameTag     { return TagIPAddress }
func (RegisteredID) Tag() GeneralNameTag  { return TagRegisteredID }

func (OtherName) generalName()     {}
func (RFC822Name) generalName()    {}
func (DNSName) generalName()       {}
func (X400Address) generalName()   {}
func (DirectoryName) generalName() {}
func (EDIPartyName) generalName()  {}
func (URI) generalName()           {}
func (IPAddress) generalName()     {}
func (RegisteredID) generalName()  {}

// ParseSubjectAltName parses the extnValue of a SubjectAltName extension, as
// described in RFC5280 4.2.1.6.
//
//	SubjectAltName ::= GeneralNames
//	GeneralNames ::= SEQUENCE SIZE (1..MAX) OF GeneralName
func ParseSubjectAltName(value []byte) ([]GeneralName, error) {
	der := cryptobyte.String(value)

	var sans cryptobyte.String
	if !der.ReadASN1(&sans, asn1.SEQUENCE) {
		return nil, errors.New("failed to parse SAN extension")
	}
	if !der.Empty() {
		return nil, errors.New("extra data after SAN extension")
	}
	if sans.Empty() {
		return nil, errors.New("empty SAN extension")
	}

	var ret []GeneralName
	for !sans.Empty() {
		name, err := ParseGeneralName(&sans)
		if err != nil {
			return nil, fmt.Errorf("parsing SAN: %w", err)
		}
		ret = append(ret, name)
	}

	return ret, nil
}

// ParseGeneralName reads one GeneralName. Every alternative is checked for
// well-formed framing; an unknown tag is an error since the CHOICE is closed.
func ParseGeneralName(der *cryptobyte.String) (GeneralName, error) {
	var data cryptobyte.String
	var tag asn1.Tag
	if !der.ReadAnyASN1(&data, &tag) {
		return nil, errors.New("failed to read general name")
	}

	const classMask = 0xc0
	const constructed = 0x20
	if tag&classMask != 0x80 {
		return nil, fmt.Errorf("general name has non context-specific tag 0x%02x", uint8(tag))
	}
	number := GeneralNameTag(tag &^ (classMask | constructed))
	isConstructed := tag&constructed != 0

	switch number {
	case TagOtherName:
		if !isConstructed {
			return nil, errors.New("otherName must be constructed")
		}
		other, err := parseOtherName(data)
		if err != nil {
			return nil, err
		}
		return other, nil
	case TagRFC822Name, TagDNSName, TagUniformResourceIdentifier:
		if isConstructed {
			return nil, fmt.Errorf("%s must be primitive", number)
		}
		switch number {
		case TagRFC822Name:
			return RFC822Name(data), nil
		case TagDNSName:
			return DNSName(data), nil
		}
		return URI(data), nil
	case TagX400Address:
		return X400Address(data), nil
	case TagDirectoryName:
		if !isConstructed {
			return nil, errors.New("directoryName must be constructed")
		}
		name, err := ParseName(&data)
		if err != nil {
			return nil, fmt.Errorf("parsing directoryName: %w", err)
		}
		if !data.Empty() {
			return nil, errors.New("extra data after directoryName")
		}
		return DirectoryName{Name: name}, nil
	case TagEDIPartyName:
		return EDIPartyName(data), nil
	case TagIPAddress:
		if isConstructed {
			return nil, errors.New("iPAddress must be primitive")
		}
		return IPAddress(data), nil
	case TagRegisteredID:
		if isConstructed {
			return nil, errors.New("registeredID must be primitive")
		}
		oid, err := parseImplicitOID(data)
		if err != nil {
			return nil, fmt.Errorf("parsing registeredID: %w", err)
		}
		return RegisteredID(oid), nil
	}
	return nil, fmt.Errorf("unknown general name tag %d", uint8(number))
}

func parseOtherName(data cryptobyte.String) (OtherName, error) {
	typeID, err := ParseObjectIdentifier(&data)
	if err != nil {
		return OtherName{}, fmt.Errorf("parsing otherName type-id: %w", err)
	}

	var explicit cryptobyte.String
	if !data.ReadASN1(&explicit, asn1.Tag(0).Constructed().ContextSpecific()) {
		return OtherName{}, fmt.Errorf("failed to read value of otherName %s", typeID)
	}
	if !data.Empty() {
		return OtherName{}, fmt.Errorf("extra data after otherName %s", typeID)
	}

	ret := OtherName{TypeID: typeID}
	var value cryptobyte.String
	if !explicit.ReadAnyASN1(&value, &ret.ValueTag) || !explicit.Empty() {
		return OtherName{}, fmt.Errorf("malformed value of otherName %s", typeID)
	}
	ret.Value = value
	return ret, nil
}

// parseImplicitOID decodes OBJECT IDENTIFIER contents whose tag has been
// replaced by an implicit one.
func parseImplicitOID(contents []byte) (ObjectIdentifier, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
		b.AddBytes(contents)
	})
	element, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	s := cryptobyte.String(element)
	return ParseObjectIdentifier(&s)
}
