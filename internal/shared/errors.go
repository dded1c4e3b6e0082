package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Identity errors
	ErrUnauthorized = fmt.Errorf("missing or invalid user identity")
	ErrForbidden    = fmt.Errorf("playlist belongs to another user")

	// Lookup errors
	ErrNotFound         = fmt.Errorf("not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist %w", ErrNotFound)
	ErrTrackNotFound    = fmt.Errorf("track %w", ErrNotFound)
	ErrAccountNotFound  = fmt.Errorf("connected account %w", ErrNotFound)

	// Persistence errors
	ErrStorage        = fmt.Errorf("storage failure")
	ErrSerialization  = fmt.Errorf("track serialization failed")
	ErrDuplicateTrack = fmt.Errorf("track already exists in playlist")
	ErrLockTimeout    = fmt.Errorf("timed out acquiring playlist lock")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrMissingArgument = fmt.Errorf("%w: missing required argument", ErrValidation)
	ErrInvalidArgument = fmt.Errorf("%w: invalid argument", ErrValidation)
	ErrInvalidInput    = fmt.Errorf("%w: invalid input", ErrValidation)
)
