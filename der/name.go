package der

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Name ::= CHOICE { rdnSequence RDNSequence }
// RDNSequence ::= SEQUENCE OF RelativeDistinguishedName
//
// The order of the RDNs is the order in the encoding.
type Name []RelativeDistinguishedName

// RelativeDistinguishedName ::= SET SIZE (1..MAX) OF AttributeTypeAndValue
type RelativeDistinguishedName []AttributeTypeAndValue

// AttributeTypeAndValue ::= SEQUENCE {
// type     AttributeType,
// value    AttributeValue }
// This represents an ATV as its oid and its raw value
type AttributeTypeAndValue struct {
	Type  ObjectIdentifier
	Tag   asn1.Tag
	Value []byte
}

// ParseName reads an RDNSequence, keeping every attribute whatever its type.
func ParseName(der *cryptobyte.String) (Name, error) {
	var rdnSequence cryptobyte.String
	if !der.ReadASN1(&rdnSequence, asn1.SEQUENCE) {
		return nil, errors.New("failed to read RDNSequence")
	}

	name := Name{}
	for !rdnSequence.Empty() {
		var atvSet cryptobyte.String
		if !rdnSequence.ReadASN1(&atvSet, asn1.SET) {
			return nil, errors.New("failed to read ATVSet")
		}
		if atvSet.Empty() {
			return nil, errors.New("empty RelativeDistinguishedName")
		}
		var rdn RelativeDistinguishedName
		for !atvSet.Empty() {
			atv, err := ParseATV(&atvSet)
			if err != nil {
				return nil, err
			}
			rdn = append(rdn, atv)
		}
		name = append(name, rdn)
	}

	return name, nil
}

func ParseATV(der *cryptobyte.String) (AttributeTypeAndValue, error) {
	var atv cryptobyte.String
	if !der.ReadASN1(&atv, asn1.SEQUENCE) {
		return AttributeTypeAndValue{}, errors.New("failed to read ATV")
	}

	oid, err := ParseObjectIdentifier(&atv)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}

	ret := AttributeTypeAndValue{
		Type: oid,
	}
	var value cryptobyte.String
	if !atv.ReadAnyASN1(&value, &ret.Tag) {
		return AttributeTypeAndValue{}, fmt.Errorf("failed to read value of attribute %s", oid)
	}
	ret.Value = value
	if !atv.Empty() {
		return AttributeTypeAndValue{}, fmt.Errorf("extra data after attribute %s", oid)
	}
	return ret, nil
}

// dnAttributes is the fixed set of subject attributes given a symbolic name.
// Attributes of any other type are not interpreted.
var dnAttributes = []struct {
	oid  ObjectIdentifier
	name string
}{
	{ObjectIdentifier{2, 5, 4, 41}, "Name"},
	{ObjectIdentifier{2, 5, 4, 4}, "Surname"},
	{ObjectIdentifier{2, 5, 4, 42}, "GivenName"},
	{ObjectIdentifier{2, 5, 4, 43}, "Initials"},
	{ObjectIdentifier{2, 5, 4, 3}, CommonName},
	{ObjectIdentifier{2, 5, 4, 7}, "LocalityName"},
	{ObjectIdentifier{2, 5, 4, 8}, "StateOrProvinceName"},
	{ObjectIdentifier{2, 5, 4, 10}, "OrganizationName"},
	{ObjectIdentifier{2, 5, 4, 11}, "OrganizationalUnitName"},
	{ObjectIdentifier{2, 5, 4, 12}, "Title"},
	{ObjectIdentifier{2, 5, 4, 6}, "CountryName"},
}

// CommonName is the symbolic name of the commonName (2.5.4.3) attribute.
const CommonName = "CommonName"

// AttributeNames returns a new map from dotted OID to the symbolic name of the
// DN attributes this package knows about.
func AttributeNames() map[string]string {
	names := make(map[string]string, len(dnAttributes))
	for _, attr := range dnAttributes {
		names[attr.oid.String()] = attr.name
	}
	return names
}
