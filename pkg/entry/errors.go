package entry

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned for malformed Create parameters.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidEntry is returned when an entry's content is unusable.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrDecode is returned by Decode for malformed bytes.
	ErrDecode = errors.New("decode entry failed")
)
