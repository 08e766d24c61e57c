package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthenticated = errors.New("not authenticated, set an access token")
	ErrInvalidArgument = errors.New("invalid argument")
)
