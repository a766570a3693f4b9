package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorInvalidInput marks a request rejected by input validation. The API
// layer maps it to 400; anything untyped is an infrastructure failure.
var ErrorInvalidInput = errors.New("invalid input")

func NewInvalidInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrorInvalidInput, reason)
}
