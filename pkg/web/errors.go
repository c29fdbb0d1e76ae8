package web

import "errors"

var (
	ErrInvalidConfig        = errors.New("web: invalid config")
	ErrServerNotStarted     = errors.New("web: server not started")
	ErrServerAlreadyStarted = errors.New("web: server already started")
)
