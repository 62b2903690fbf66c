package operators

import (
	"fmt"
	"strings"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
)

// Condition names resolvable through the store registry
const (
	ConditionKeyPrefix   = "key-prefix"
	ConditionFieldEquals = "field-eq"
	ConditionFieldExists = "field-exists"
)

// DefaultConditions returns the closed set of predicate conditions
func DefaultConditions() map[string]model.Condition {
	return map[string]model.Condition{
		ConditionKeyPrefix:   KeyPrefixCondition{},
		ConditionFieldEquals: FieldEqualsCondition{},
		ConditionFieldExists: FieldExistsCondition{},
	}
}

// KeyPrefixCondition matches when the key starts with the expression
type KeyPrefixCondition struct{}

func (KeyPrefixCondition) Satisfied(key string, _ map[string]interface{}, expression string) (bool, error) {
	if expression == "" {
		return false, errors.InvalidArgument("key-prefix condition requires a non-empty prefix", nil)
	}
	return strings.HasPrefix(key, expression), nil
}

// FieldEqualsCondition matches when the field at a dot-separated path
// renders equal to the expected value, expression form "path=value"
type FieldEqualsCondition struct{}

func (FieldEqualsCondition) Satisfied(_ string, fields map[string]interface{}, expression string) (bool, error) {
	path, want, found := strings.Cut(expression, "=")
	if !found || path == "" {
		return false, errors.InvalidArgument("field-eq condition requires the form 'path=value'", nil).
			WithDetail("expression", expression)
	}
	v, ok := lookupPath(fields, path)
	if !ok {
		return false, nil
	}
	return fmt.Sprint(v) == want, nil
}

// FieldExistsCondition matches when a field exists at the dot-separated path
type FieldExistsCondition struct{}

func (FieldExistsCondition) Satisfied(_ string, fields map[string]interface{}, expression string) (bool, error) {
	if expression == "" {
		return false, errors.InvalidArgument("field-exists condition requires a non-empty path", nil)
	}
	_, ok := lookupPath(fields, expression)
	return ok, nil
}

// lookupPath walks a dot-separated path through nested field maps
func lookupPath(fields map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
