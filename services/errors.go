package services

import "errors"

// Error taxonomy for the user aggregate and event participation services.
// Store-level failures (network, permission) are wrapped and propagated as-is;
// there are no retries anywhere in this layer.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrWrongGameMode = errors.New("event is not in counter mode")
)
