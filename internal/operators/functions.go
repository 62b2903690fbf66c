package operators

import (
	"fmt"
	"math"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
)

// Update function names resolvable through the store registry
const (
	FunctionReplace = "replace"
	FunctionMerge   = "merge"
	FunctionCounter = "counter"
)

// DefaultFunctions returns the closed set of update functions
func DefaultFunctions() map[string]model.Function {
	return map[string]model.Function{
		FunctionReplace: ReplaceFunction{},
		FunctionMerge:   MergeFunction{},
		FunctionCounter: CounterFunction{},
	}
}

// ReplaceFunction discards the current fields and stores the parameters
type ReplaceFunction struct{}

func (ReplaceFunction) Apply(_ string, _ map[string]interface{}, parameters map[string]interface{}) (map[string]interface{}, error) {
	return copyFields(parameters), nil
}

// MergeFunction overlays the parameters onto the current fields
type MergeFunction struct{}

func (MergeFunction) Apply(_ string, fields map[string]interface{}, parameters map[string]interface{}) (map[string]interface{}, error) {
	out := copyFields(fields)
	for k, v := range parameters {
		out[k] = v
	}
	return out, nil
}

// CounterFunction adds numeric deltas from the parameters to the
// corresponding fields, treating missing fields as zero
type CounterFunction struct{}

func (CounterFunction) Apply(_ string, fields map[string]interface{}, parameters map[string]interface{}) (map[string]interface{}, error) {
	out := copyFields(fields)
	for k, raw := range parameters {
		delta, err := toInt64(raw)
		if err != nil {
			return nil, errors.InvalidArgument(fmt.Sprintf("counter delta for field '%s' must be an integer", k), err)
		}
		var current int64
		if v, ok := out[k]; ok {
			current, err = toInt64(v)
			if err != nil {
				return nil, errors.InvalidArgument(fmt.Sprintf("field '%s' is not a counter", k), err)
			}
		}
		out[k] = current + delta
	}
	return out, nil
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// toInt64 accepts the integer widths msgpack decoding produces, plus
// whole-valued floats
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float32:
		return toInt64(float64(n))
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not a whole number", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
