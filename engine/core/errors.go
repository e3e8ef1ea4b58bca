package core

import (
	"errors"
)

var (
	// Configuration errors. The registry panics with these wrapped.
	ErrInvalidRoot  = errors.New("asset root directory is not set or does not exist")
	ErrNoLoader     = errors.New("no loader registered for asset type")
	ErrTypeMismatch = errors.New("asset payload does not match the requested type")
	ErrTagConflict  = errors.New("asset type tag already bound to another type")
	ErrInvalidTag   = errors.New("asset type tag must be non-empty and free of '@'")

	ErrLoadFailed     = errors.New("asset load failed")
	ErrMalformedIndex = errors.New("malformed asset index")
	ErrWatcherClosed  = errors.New("reference watcher already closed")
)
