package model

import (
	"strings"
	"time"

	"github.com/tesserakv/tessera/internal/errors"
)

// Predicate selects a condition implementation by type and carries the
// expression it evaluates, e.g. "key-prefix:user:" or "field-eq:status=active"
type Predicate struct {
	Type       string
	Expression string
}

// ParsePredicate parses a "type:expression" string
func ParsePredicate(s string) (Predicate, error) {
	typ, expr, found := strings.Cut(s, ":")
	if !found || typ == "" {
		return Predicate{}, errors.InvalidArgument("predicate must have the form 'type:expression'", nil).
			WithDetail("predicate", s)
	}
	return Predicate{Type: typ, Expression: expr}, nil
}

// String renders the predicate back to its "type:expression" form
func (p Predicate) String() string {
	return p.Type + ":" + p.Expression
}

// Update names the function to apply to a value, the wall-clock budget the
// caller grants it, and its parameters
type Update struct {
	Function   string
	Timeout    time.Duration
	Parameters map[string]interface{}
}

// KeyRange describes a range query over a bucket's keys. End == "" means
// unbounded, Limit <= 0 means unlimited, Comparator == "" selects the
// store's default ordering. The end bound is inclusive.
type KeyRange struct {
	Start      string
	End        string
	Limit      int
	Comparator string
	TimeToLive time.Duration
}

// KeyComparator defines a total order over keys, identified by name.
// The name doubles as the snapshot cache id for range queries.
type KeyComparator interface {
	Name() string
	// Compare returns a negative number if a sorts before b, zero if they
	// are equivalent, and a positive number otherwise.
	Compare(a, b string) int
}

// Condition evaluates a predicate expression against a decoded value
type Condition interface {
	Satisfied(key string, fields map[string]interface{}, expression string) (bool, error)
}

// Function computes the updated field map for a value. Implementations
// must be pure: no side effects outside the returned map, so a cancelled
// evaluation leaves nothing to undo.
type Function interface {
	Apply(key string, fields map[string]interface{}, parameters map[string]interface{}) (map[string]interface{}, error)
}
