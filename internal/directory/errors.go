package directory

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidRecord   = errors.New("invalid record")
)
