package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound           = errors.New("member not found")
	ErrDuplicateName      = errors.New("member name already exists")
	ErrInvalidArgument    = errors.New("invalid store argument")
	ErrUnexpectedResponse = errors.New("unexpected store response")
)

// expected reports errors that describe data rather than store health.
func expected(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateName) || errors.Is(err, ErrInvalidArgument)
}

func checkRange(offset, limit int) error {
	if offset < 0 || limit < 1 {
		return ErrInvalidArgument
	}
	return nil
}
