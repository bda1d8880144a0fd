package contract

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrValidation       = errors.New("validation failed")
	ErrRoomResolution   = errors.New("room resolution failed")
	ErrNotParticipant   = errors.New("not a room participant")
)
