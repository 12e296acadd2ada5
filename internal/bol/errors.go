package bol

import "errors"

var (
	ErrMissingBolNumber = errors.New("bol number is required")
	ErrInvalidRaw       = errors.New("raw fields must be a json object")
)

var (
	ErrUnknownField = errors.New("unknown field path")
	ErrEmptyValue   = errors.New("field value is empty")
)
