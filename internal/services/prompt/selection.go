package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectAll is the literal token selecting every listed database.
const SelectAll = "all"

// ParseSelection turns a selection string into zero-based indices into a list
// of n items. Accepted forms: "all", or comma-separated 1-based indices whose
// order is preserved. Any out-of-range or non-numeric token is an error; there
// is no partial-validity handling.
func ParseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty selection")
	}

	if strings.EqualFold(input, SelectAll) {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	for _, token := range strings.Split(input, ",") {
		token = strings.TrimSpace(token)
		idx, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q: not a number", token)
		}
		if idx < 1 || idx > n {
			return nil, fmt.Errorf("invalid selection %d: out of range 1..%d", idx, n)
		}
		indices = append(indices, idx-1)
	}
	return indices, nil
}
