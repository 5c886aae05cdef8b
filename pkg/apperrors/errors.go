package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsafeSQL         = errors.New("generated SQL rejected by safety validator")
	ErrNoToolSelected    = errors.New("no usable tool selection in model response")
	ErrIndexCorrupt      = errors.New("vector index artifacts are inconsistent")
	ErrDimensionMismatch = errors.New("vector dimension does not match index")
	ErrTooManyFailures   = errors.New("source exceeded maximum error count")
	ErrEmbedUnsupported  = errors.New("provider does not support embeddings")
)
