package service

import (
	"errors"
	"fmt"
)

var (
	ErrNoFiles            = errors.New("no files provided")
	ErrToolIDRequired     = errors.New("tool id required")
	ErrTooFewFiles        = errors.New("at least 2 files are required")
	ErrEmptyFile          = errors.New("file is empty")
	ErrInvalidAnnotations = errors.New("invalid annotations")
	ErrIDRequired         = errors.New("id is required")
	ErrNotFound           = errors.New("file not found")
	ErrSignatureNotFound  = errors.New("signature not found")
	ErrSignerRequired     = errors.New("signer name is required")
	ErrHashRequired       = errors.New("hash is required")
)

// FileError reports which input file a processing step failed on.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
