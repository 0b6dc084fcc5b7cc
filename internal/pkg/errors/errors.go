package errors

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid")
	ErrConnection  = errors.New("store unreachable")
	ErrStorage     = errors.New("storage failure")
	ErrDimension   = errors.New("embedding dimension mismatch")
	ErrForeignKey  = errors.New("referenced document does not exist")
	ErrExtraction  = errors.New("text extraction failed")
	ErrExternalAPI = errors.New("external api failure")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsClientError reports whether err was caused by the caller's input rather
// than by a backend failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrExtraction) || errors.Is(err, ErrForeignKey)
}
