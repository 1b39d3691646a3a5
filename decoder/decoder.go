// Package decoder turns peer certificates into xmppcert.CertificateData.
//
// Two backends are available. The DER backend decodes the certificate itself
// and is the only one that understands the XMPP otherName forms (XmppAddr and
// SRVName). The platform backend relies on crypto/x509 and sees only the names
// the standard library exposes. A program picks one at startup with New and
// uses it for its lifetime.
package decoder

import (
	"crypto/tls"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mcpherrinm/xmppcert"
)

// Kind names a decoder backend.
type Kind string

const (
	// KindDER is the der package backend, see NewDER.
	KindDER Kind = "der"
	// KindPlatform is the crypto/x509 backend, see NewPlatform.
	KindPlatform Kind = "platform"
)

// Decoder decodes one DER-encoded certificate. The result is never validated;
// FromConnectionState sets Validated from the TLS session.
//
// Implementations are safe for concurrent use.
type Decoder interface {
	Decode(der []byte) (*xmppcert.CertificateData, error)
	Kind() Kind
}

// DecodeError is returned when certificate bytes cannot be decoded at all. A
// certificate that fails to decode must be treated as untrusted.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding certificate (%s): %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type options struct {
	log *slog.Logger
}

// Option configures a backend built by New, NewDER or NewPlatform.
type Option func(*options)

// WithLogger sets the logger for decode diagnostics. The logger is also
// attached to every CertificateData produced.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// New returns the decoder backend named by kind.
func New(kind Kind, opts ...Option) (Decoder, error) {
	switch kind {
	case KindDER:
		return NewDER(opts...), nil
	case KindPlatform:
		return NewPlatform(opts...), nil
	}
	return nil, fmt.Errorf("unknown decoder %q", kind)
}

// FromConnectionState decodes the leaf certificate the peer presented in a
// TLS session. A nil state or a peer without a certificate gives an empty
// CertificateData. Validated is set when the TLS library verified the chain.
func FromConnectionState(d Decoder, state *tls.ConnectionState) (*xmppcert.CertificateData, error) {
	if state == nil || len(state.PeerCertificates) == 0 {
		return xmppcert.New(xmppcert.WithLogger(loggerOf(d))), nil
	}
	data, err := d.Decode(state.PeerCertificates[0].Raw)
	if err != nil {
		return nil, err
	}
	data.Validated = len(state.VerifiedChains) > 0
	return data, nil
}

// FromFile decodes the first certificate in a PEM file.
func FromFile(d Decoder, path string) (*xmppcert.CertificateData, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	der, err := FirstCertificate(contents)
	if err != nil {
		return nil, &DecodeError{Kind: d.Kind(), Err: fmt.Errorf("%s: %w", path, err)}
	}
	return d.Decode(der)
}

// FirstCertificate returns the DER bytes of the first CERTIFICATE block in
// PEM data, skipping blocks of other types.
func FirstCertificate(contents []byte) ([]byte, error) {
	for {
		var block *pem.Block
		block, contents = pem.Decode(contents)
		if block == nil {
			return nil, errors.New("no CERTIFICATE PEM block")
		}
		if block.Type == "CERTIFICATE" {
			return block.Bytes, nil
		}
	}
}

func loggerOf(d Decoder) *slog.Logger {
	if l, ok := d.(interface{ logger() *slog.Logger }); ok {
		return l.logger()
	}
	return slog.Default()
}
