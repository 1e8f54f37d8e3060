package oplog

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned for malformed constructor or call
	// arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized is returned when the access controller refuses an
	// entry.
	ErrUnauthorized = errors.New("not allowed to write to the log")
	// ErrInvalidSignature is returned when an entry's signature does not
	// verify.
	ErrInvalidSignature = errors.New("could not validate signature")
	// ErrMismatchedLog is returned when an entry belongs to another log.
	ErrMismatchedLog = errors.New("entry belongs to a different log")
	// ErrClosed is returned by operations on a closed log.
	ErrClosed = errors.New("log closed")
)
