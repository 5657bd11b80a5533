package station

import "errors"

// Rejections leave the store unchanged.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotActionable     = errors.New("station is not actionable")
	ErrNotEditable       = errors.New("line is not editable")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNothingToCopy     = errors.New("nothing to copy")
	ErrSearchMismatch    = errors.New("line did not open the search")
)

// IsRejection reports whether err is a precondition failure rather than bad
// input or a missing entity.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotActionable) ||
		errors.Is(err, ErrNotEditable) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNothingToCopy) ||
		errors.Is(err, ErrSearchMismatch)
}
