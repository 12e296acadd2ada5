package bol

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// TextExtra builds a text overflow entry.
func TextExtra(key, s string) Extra {
	return Extra{Key: key, Kind: ExtraText, Text: &s}
}

// NumberExtra builds a numeric overflow entry.
func NumberExtra(key string, f float64) Extra {
	return Extra{Key: key, Kind: ExtraNumber, Number: &f}
}

// BoolExtra builds a boolean overflow entry.
func BoolExtra(key string, b bool) Extra {
	return Extra{Key: key, Kind: ExtraBool, Bool: &b}
}

// UnstructuredExtra keeps raw JSON of any other shape.
func UnstructuredExtra(key string, raw json.RawMessage) Extra {
	return Extra{Key: key, Kind: ExtraUnstructured, Raw: raw}
}

func classify(key string, value json.RawMessage) Extra {
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return TextExtra(key, string(value))
	}
	b := compact.Bytes()
	if len(b) == 0 {
		return UnstructuredExtra(key, json.RawMessage("null"))
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return TextExtra(key, s)
		}
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err == nil {
			return BoolExtra(key, v)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(b), 64)
		if err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return NumberExtra(key, f)
		}
	}
	return UnstructuredExtra(key, json.RawMessage(b))
}

// Value renders the entry payload back to JSON.
func (e Extra) Value() json.RawMessage {
	switch e.Kind {
	case ExtraText:
		if e.Text != nil {
			return mustJSON(*e.Text)
		}
	case ExtraNumber:
		if e.Number != nil {
			return mustJSON(*e.Number)
		}
	case ExtraBool:
		if e.Bool != nil {
			return mustJSON(*e.Bool)
		}
	case ExtraUnstructured:
		if len(e.Raw) > 0 {
			return e.Raw
		}
	}
	return json.RawMessage("null")
}

func mustJSON(v any) json.RawMessage {
	b, err := encode(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// encode marshals without HTML escaping.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
