package extraction

import "errors"

var (
	ErrSchemaEmpty         = errors.New("schema empty")
	ErrDomainNotFound      = errors.New("domain not found")
	ErrSubDomainNotFound   = errors.New("sub-domain not found")
	ErrFieldNotFound       = errors.New("field not found")
	ErrChunkingFailed      = errors.New("chunking failed")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrCancelled           = errors.New("cancelled")
	ErrTimeout             = errors.New("timeout")
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrInvalidInput        = errors.New("invalid input")
)
