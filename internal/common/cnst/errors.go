package cnst

import "errors"

var (
	// ErrVersionConflict is returned by a session store when a compare-and-swap
	// observes a version other than the expected one
	ErrVersionConflict = errors.New("session version conflict")
	// ErrDuplicateSession is returned when a session already exists for a token or snippet
	ErrDuplicateSession = errors.New("session already exists")
	// ErrInvalidDatabaseType is returned for an unknown database.type
	ErrInvalidDatabaseType = errors.New("invalid database type")
)
