package provider

import (
	"encoding/json"
	"strconv"
)

// ExtractValue normalizes a stat cell from a decoded API response.
//
// Result-set cells arrive as float64 after JSON decoding, but some endpoints
// send percentages as strings and json.Number shows up when the decoder is
// configured with UseNumber. Returns ok=false for null or non-numeric cells.
func ExtractValue(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
