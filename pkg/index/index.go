// Package index coerces loosely typed values into preset indexes.
package index

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Finite reports whether v carries a finite number and returns it. Numeric
// strings count; booleans, nil and empty strings do not.
func Finite(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int8:
		n = float64(t)
	case int16:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case uint:
		n = float64(t)
	case uint8:
		n = float64(t)
	case uint16:
		n = float64(t)
	case uint32:
		n = float64(t)
	case uint64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Normalize converts v into a non-negative integer index. Anything that is not
// a finite number maps to 0; everything else is floored and clamped at 0.
func Normalize(v any) int {
	n, ok := Finite(v)
	if !ok {
		return 0
	}
	n = math.Floor(n)
	if n <= 0 {
		return 0
	}
	if n >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
