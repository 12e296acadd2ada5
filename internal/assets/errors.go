package assets

import "errors"

var (
	ErrNotFound     = errors.New("asset not found")
	ErrInvalidInput = errors.New("invalid asset input")
)
