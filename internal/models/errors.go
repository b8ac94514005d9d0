package models

import (
	"errors"
	"fmt"
)

var (
	ErrDocument        = errors.New("document error")
	ErrEmbedding       = errors.New("embedding error")
	ErrIndexNotFound   = errors.New("index not found")
	ErrIndexCorrupt    = errors.New("index corrupt")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrGeneration      = errors.New("generation error")
	ErrNoChunks        = errors.New("no chunks to index")
	ErrNoContent       = errors.New("no content")
)

// DocumentError reports a document that could not be opened or parsed.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() []error {
	return []error{ErrDocument, e.Err}
}
