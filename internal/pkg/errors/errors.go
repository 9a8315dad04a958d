package errors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalid         = errors.New("invalid")
	ErrEmptyContent    = errors.New("no readable text in document")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrBusy            = errors.New("a document is already being processed")
	ErrQuotaExceeded   = errors.New("mirror quota exceeded")
	ErrTooMany         = errors.New("too many requests")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
