package operators_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesserakv/tessera/internal/operators"
)

func comparatorByName(t *testing.T, name string) func(a, b string) int {
	t.Helper()
	cmp, ok := operators.DefaultComparators()[name]
	require.True(t, ok, "comparator %s not registered", name)
	assert.Equal(t, name, cmp.Name())
	return cmp.Compare
}

func TestDefaultComparatorsRegistry(t *testing.T) {
	cmps := operators.DefaultComparators()
	assert.Len(t, cmps, 3)
	for _, name := range []string{
		operators.ComparatorLexicalAsc,
		operators.ComparatorLexicalDesc,
		operators.ComparatorNumericAsc,
	} {
		assert.Contains(t, cmps, name)
	}
}

func TestLexicalAscComparator(t *testing.T) {
	compare := comparatorByName(t, operators.ComparatorLexicalAsc)

	assert.Negative(t, compare("a", "b"))
	assert.Positive(t, compare("b", "a"))
	assert.Zero(t, compare("a", "a"))

	keys := []string{"v", "a", "c"}
	sort.Slice(keys, func(i, j int) bool { return compare(keys[i], keys[j]) < 0 })
	assert.Equal(t, []string{"a", "c", "v"}, keys)
}

func TestLexicalDescComparator(t *testing.T) {
	compare := comparatorByName(t, operators.ComparatorLexicalDesc)

	assert.Positive(t, compare("a", "b"))
	assert.Negative(t, compare("b", "a"))
	assert.Zero(t, compare("a", "a"))

	keys := []string{"v", "a", "c"}
	sort.Slice(keys, func(i, j int) bool { return compare(keys[i], keys[j]) < 0 })
	assert.Equal(t, []string{"v", "c", "a"}, keys)
}

func TestNumericAscComparator(t *testing.T) {
	compare := comparatorByName(t, operators.ComparatorNumericAsc)

	assert.Negative(t, compare("2", "10"))
	assert.Positive(t, compare("10", "2"))
	assert.Zero(t, compare("7", "7"))
	assert.Negative(t, compare("-1", "1"))
	assert.Negative(t, compare("2.5", "2.75"))

	keys := []string{"10", "2", "33", "4"}
	sort.Slice(keys, func(i, j int) bool { return compare(keys[i], keys[j]) < 0 })
	assert.Equal(t, []string{"2", "4", "10", "33"}, keys)
}

func TestNumericAscComparatorFallsBackToLexical(t *testing.T) {
	compare := comparatorByName(t, operators.ComparatorNumericAsc)

	// Keys that do not both parse as numbers order lexically.
	assert.Negative(t, compare("abc", "abd"))
	assert.Negative(t, compare("10", "abc"))
	assert.Positive(t, compare("abc", "10"))
}
