package clients

import "errors"

var (
	ErrNotFound     = errors.New("client not found")
	ErrInvalidInput = errors.New("invalid client input")
	ErrDuplicateRIF = errors.New("client with this rif already exists")
)
