package borica

import "errors"

var (
	// ErrConfig reports missing or unusable terminal, merchant or key configuration.
	ErrConfig = errors.New("gateway configuration error")
	// ErrSigning reports a private key that cannot be loaded or a failed signature.
	ErrSigning = errors.New("gateway signing error")
)
