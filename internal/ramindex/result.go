package ramindex

import (
	"fmt"
	"strings"
)

// Result is one ranked search hit.
type Result struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// String renders the result's external form, "<name> (<category>)".
func (r Result) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.Category)
}

// CategoryOf recovers the category from a result label: the substring after
// the first space, with the surrounding parentheses stripped. This mirrors
// the label encoding and is the boundary contract k-NN voting relies on.
func CategoryOf(label string) string {
	i := strings.IndexByte(label, ' ')
	if i < 0 || i+1 >= len(label) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(label[i+1:], "("), ")")
}
