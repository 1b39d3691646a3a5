package cli

import "errors"

var (
	// ErrUsage indicates invalid arguments or flags.
	ErrUsage = errors.New("usage error")

	// ErrConfig indicates the configuration could not be loaded.
	ErrConfig = errors.New("configuration error")

	// ErrNotVerified indicates the certificate does not carry the identity asked about.
	ErrNotVerified = errors.New("not verified")
)
