package operators

import (
	"strconv"
	"strings"

	"github.com/tesserakv/tessera/internal/model"
)

// Comparator names resolvable through the store registry
const (
	ComparatorLexicalAsc  = "lexical-asc"
	ComparatorLexicalDesc = "lexical-desc"
	ComparatorNumericAsc  = "numeric-asc"
)

type comparator struct {
	name string
	cmp  func(a, b string) int
}

func (c comparator) Name() string { return c.name }

func (c comparator) Compare(a, b string) int { return c.cmp(a, b) }

// DefaultComparators returns the closed set of key orderings
func DefaultComparators() map[string]model.KeyComparator {
	return map[string]model.KeyComparator{
		ComparatorLexicalAsc:  comparator{ComparatorLexicalAsc, strings.Compare},
		ComparatorLexicalDesc: comparator{ComparatorLexicalDesc, func(a, b string) int { return strings.Compare(b, a) }},
		ComparatorNumericAsc:  comparator{ComparatorNumericAsc, compareNumeric},
	}
}

// compareNumeric orders keys numerically when both parse as numbers,
// falling back to lexical order otherwise. Numeric ties break lexically
// so distinct keys never compare equal.
func compareNumeric(a, b string) int {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
	}
	return strings.Compare(a, b)
}
