package ir

import (
	"fmt"
	"strconv"
	"time"
)

// FromDriver converts a value produced by database/sql scanning into an IRValue.
// Byte slices become strings and timestamps are rendered as RFC 3339.
func FromDriver(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case []byte:
		return IRString(string(val)), nil
	case time.Time:
		return IRString(val.Format(time.RFC3339Nano)), nil
	default:
		return FromGo(v)
	}
}

// FromGo converts a plain Go value (as found in caller-supplied parameter maps
// or decoded YAML) into an IRValue.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int8:
		return IRInt(val), nil
	case int16:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint8:
		return IRInt(val), nil
	case uint16:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("uint64 %d overflows int64", val)
		}
		return IRInt(val), nil
	case float32:
		return IRFloat(val), nil
	case float64:
		return IRFloat(val), nil
	case []byte:
		return IRString(string(val)), nil
	case time.Time:
		return IRString(val.Format(time.RFC3339Nano)), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToParam converts a scalar IRValue to a Go native type usable as a SQL
// parameter. Arrays and objects are not valid parameters.
func ToParam(v IRValue) (any, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return nil, nil
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRFloat:
		return float64(val), nil
	case IRBool:
		return bool(val), nil
	case IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}

// ToNative converts an IRValue tree into plain Go values (map[string]any,
// []any, string, int64, float64, bool, nil) for encoders that know nothing
// about IR types.
func ToNative(v IRValue) any {
	switch val := v.(type) {
	case nil, IRNull:
		return nil
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToNative(elem)
		}
		return out
	default:
		return nil
	}
}

// KeyPart renders a scalar value as the stable text used inside composite
// row keys. Distinct types never collide: strings and numbers that print the
// same are still told apart.
func KeyPart(v IRValue) string {
	switch val := v.(type) {
	case nil, IRNull:
		return "n:"
	case IRString:
		return "s:" + string(val)
	case IRInt:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case IRFloat:
		return "f:" + strconv.FormatFloat(float64(val), 'g', -1, 64)
	case IRBool:
		return "b:" + strconv.FormatBool(bool(val))
	default:
		return fmt.Sprintf("x:%v", val)
	}
}

// AsInt returns the integer held by v. Integral floats and numeric strings
// are accepted so that values read through text protocols still compare.
func AsInt(v IRValue) (int64, bool) {
	switch val := v.(type) {
	case IRInt:
		return int64(val), true
	case IRFloat:
		if float64(val) == float64(int64(val)) {
			return int64(val), true
		}
	case IRString:
		if n, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// AsFloat returns the numeric value held by v.
func AsFloat(v IRValue) (float64, bool) {
	switch val := v.(type) {
	case IRInt:
		return float64(val), true
	case IRFloat:
		return float64(val), true
	case IRString:
		if f, err := strconv.ParseFloat(string(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
