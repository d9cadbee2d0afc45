package server

import (
	"errors"
	"fmt"
)

// Error kinds reported by the image endpoints. Every error returned by
// ImageService matches exactly one of them with errors.Is, or is a store failure.
var (
	ErrValidation    = errors.New("validation error")
	ErrFormat        = errors.New("format error")
	ErrNumberFormat  = errors.New("number format error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found")
)

type imageError struct {
	kind error
	msg  string
}

func (e imageError) Error() string {
	return e.msg
}

func (e imageError) Unwrap() error {
	return e.kind
}

func validationError(msg string) error {
	return badRequestCode(imageError{kind: ErrValidation, msg: msg}, ErrCodeImageValidation)
}

func formatError(msg string) error {
	return badRequestCode(imageError{kind: ErrFormat, msg: msg}, ErrCodeImageFormat)
}

func numberFormatError(field string) error {
	return badRequestCode(imageError{kind: ErrNumberFormat, msg: fmt.Sprintf("invalid %s", field)}, ErrCodeInvalidID)
}

func authorizationError(msg string) error {
	return forbidden(imageError{kind: ErrAuthorization, msg: msg})
}

func notFoundError(msg string, code int) error {
	return notFoundCode(imageError{kind: ErrNotFound, msg: msg}, code)
}
