package indicator

import "github.com/pkg/errors"

// Error taxonomy per spec.md §7. These are sentinel values: callers compare
// with errors.Is after unwrapping any github.com/pkg/errors context.
var (
	// ErrInsufficientHistory is returned when fewer bars are supplied than a
	// calculator requires. Recoverable: the caller skips the symbol/step.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrAlignmentError is returned when bar/PLdot/envelope series carry
	// mismatched timestamps. Fatal for the affected component's call.
	ErrAlignmentError = errors.New("misaligned series")

	// ErrInvalidConfiguration is returned for invalid calculator parameters
	// (e.g. non-positive period). Fatal at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
