package der

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// String tags the cryptobyte asn1 package has no names for.
const (
	NumericString   = asn1.Tag(18)
	VisibleString   = asn1.Tag(26)
	UniversalString = asn1.Tag(28)
	BMPString       = asn1.Tag(30)
)

// ErrUnsupportedString is returned by DecodeString for tags that are not
// one of the ASN.1 character string types.
var ErrUnsupportedString = errors.New("unsupported string type")

// DecodeString converts the contents of an ASN.1 character string to UTF-8.
//
// The 7-bit types (PrintableString, IA5String, VisibleString, NumericString)
// must be ASCII. TeletexString is taken as UTF-8 when it is valid UTF-8 and as
// ISO 8859-1 otherwise, which is what CAs actually put there. BMPString and
// UniversalString are big-endian UTF-16 and UTF-32. Values that do not decode
// cleanly, or that contain NUL, are an error rather than a best guess.
func DecodeString(tag asn1.Tag, value []byte) (string, error) {
	var s string
	switch tag {
	case asn1.UTF8String:
		if !utf8.Valid(value) {
			return "", errors.New("malformed UTF8String")
		}
		s = string(value)
	case asn1.PrintableString, asn1.IA5String, VisibleString, NumericString:
		for _, c := range value {
			if c >= utf8.RuneSelf {
				return "", fmt.Errorf("non-ASCII byte 0x%02x in %s", c, tagName(tag))
			}
		}
		s = string(value)
	case asn1.T61String:
		if utf8.Valid(value) {
			s = string(value)
			break
		}
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(value)
		if err != nil {
			return "", fmt.Errorf("malformed TeletexString: %w", err)
		}
		s = string(decoded)
	case BMPString:
		if len(value)%2 != 0 {
			return "", errors.New("malformed BMPString: odd length")
		}
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(value)
		if err != nil {
			return "", fmt.Errorf("malformed BMPString: %w", err)
		}
		s = string(decoded)
		if replaced(s, value, []byte{0xff, 0xfd}) {
			return "", errors.New("malformed BMPString: invalid UTF-16")
		}
	case UniversalString:
		if len(value)%4 != 0 {
			return "", errors.New("malformed UniversalString: length not a multiple of 4")
		}
		decoded, err := utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewDecoder().Bytes(value)
		if err != nil {
			return "", fmt.Errorf("malformed UniversalString: %w", err)
		}
		s = string(decoded)
		if replaced(s, value, []byte{0, 0, 0xff, 0xfd}) {
			return "", errors.New("malformed UniversalString: invalid code point")
		}
	default:
		return "", fmt.Errorf("%w: tag %d", ErrUnsupportedString, tag)
	}

	if strings.IndexByte(s, 0) >= 0 {
		return "", fmt.Errorf("NUL in %s", tagName(tag))
	}
	return s, nil
}

// replaced reports whether decoded holds more U+FFFD than value encodes as
// code units equal to unit. The x/text decoders substitute U+FFFD for invalid
// input instead of failing.
func replaced(decoded string, value, unit []byte) bool {
	var encoded int
	for i := 0; i+len(unit) <= len(value); i += len(unit) {
		if bytes.Equal(value[i:i+len(unit)], unit) {
			encoded++
		}
	}
	return strings.Count(decoded, string(utf8.RuneError)) != encoded
}

func tagName(tag asn1.Tag) string {
	switch tag {
	case asn1.UTF8String:
		return "UTF8String"
	case asn1.PrintableString:
		return "PrintableString"
	case asn1.IA5String:
		return "IA5String"
	case asn1.T61String:
		return "TeletexString"
	case VisibleString:
		return "VisibleString"
	case NumericString:
		return "NumericString"
	case BMPString:
		return "BMPString"
	case UniversalString:
		return "UniversalString"
	}
	return fmt.Sprintf("tag %d", tag)
}
