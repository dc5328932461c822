package errs

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("no copies available")
	ErrOwnBook           = errors.New("cannot rent own book")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrNotRenter         = errors.New("unauthorized return attempt")
	ErrAlreadyReturned   = errors.New("book already returned")
	ErrDuplicateRental   = errors.New("duplicate rental request")
	ErrUnavailable       = errors.New("storage temporarily unavailable")
)

// IsForbidden reports whether err belongs to the ownership/double-return class.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrOwnBook) ||
		errors.Is(err, ErrNotRenter) ||
		errors.Is(err, ErrAlreadyReturned)
}
