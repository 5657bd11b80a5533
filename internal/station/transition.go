package station

import (
	"fmt"

	"github.com/matthewbaird/stationcu/internal/types"
)

// statusTransitions lists the allowed station status changes.
var statusTransitions = map[types.StationStatus][]types.StationStatus{
	types.StatusOpen:       {types.StatusCheckedOut, types.StatusComplete},
	types.StatusCheckedOut: {types.StatusComplete, types.StatusOpen},
	types.StatusComplete:   {},
}

// ValidateTransition checks whether moving from current to target is allowed.
// It returns nil if the transition is valid, or an error wrapping
// ErrInvalidTransition otherwise.
func ValidateTransition(current, target types.StationStatus) error {
	allowed, ok := statusTransitions[current]
	if !ok {
		return fmt.Errorf("%w: unknown current status %s", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %q to %q", ErrInvalidTransition, current.Label(), target.Label())
}
