package v1

import "errors"

var (
	ErrStartCtx    = errors.New("start request missing in context")
	ErrContentType = errors.New("Content-Type must be application/json")
)
