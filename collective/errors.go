package collective

import "errors"

var (
	// ErrInvalidArgument is reported for an out-of-range root or
	// mismatched buffer sizes. It is detected before any
	// communication begins, so a failing call never leaves the group
	// in a half-completed collective.
	ErrInvalidArgument = errors.New("collective: invalid argument")

	// ErrUnsupportedOperation is reported for a reduction operator
	// outside {sum, max, min, prod}.
	ErrUnsupportedOperation = errors.New("collective: unsupported operation")
)
