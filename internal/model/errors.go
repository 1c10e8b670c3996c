package model

import "errors"

// Error taxonomy shared by the server and client. Transports map these with
// errors.Is: ErrValidation to 400 / InvalidArgument, ErrNotFound to 404 /
// NotFound.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)
