package station

import "github.com/matthewbaird/stationcu/internal/types"

// Filter returns the stations to display, in order. Complete stations are
// dropped when hideComplete is set; stations checked out by someone other
// than actorID are dropped when hideCheckedOutByOthers is set.
func Filter(stations []types.Station, hideComplete, hideCheckedOutByOthers bool, actorID string) []types.Station {
	out := make([]types.Station, 0, len(stations))
	for _, st := range stations {
		if hideComplete && st.Status == types.StatusComplete {
			continue
		}
		if hideCheckedOutByOthers && st.CheckedOutByOther(actorID) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// moveToFront moves stations[i] to index 0, keeping the relative order of
// the others.
func moveToFront(stations []types.Station, i int) {
	if i <= 0 {
		return
	}
	st := stations[i]
	copy(stations[1:i+1], stations[:i])
	stations[0] = st
}
