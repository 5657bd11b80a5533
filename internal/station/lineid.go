package station

import (
	"fmt"
	"strconv"

	"github.com/matthewbaird/stationcu/internal/types"
)

// NextLineID allocates a line id one past the largest numeric suffix among
// the station's lines, zero-padded to width. Deleted lines still count, so
// ids are never reused.
func NextLineID(lines []types.MaterialLine, prefix string, width int) string {
	taken := make(map[string]bool, len(lines))
	maxN := 0
	for _, l := range lines {
		taken[l.ID] = true
		if n, ok := numericSuffix(l.ID); ok && n > maxN {
			maxN = n
		}
	}
	for n := maxN + 1; ; n++ {
		id := fmt.Sprintf("%s%0*d", prefix, width, n)
		if !taken[id] {
			return id
		}
	}
}

func numericSuffix(id string) (int, bool) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}
