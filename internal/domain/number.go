package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type numberState uint8

const (
	numberAbsent numberState = iota
	numberValid
	numberInvalid
)

// Number is an optional numeric metadata field. Upstream data is loose: the
// value may be missing, a JSON number, a numeric string, NaN, or junk.
// Only finite values are usable; everything else is treated as absent by
// consumers but the raw text is kept for display.
type Number struct {
	value float64
	raw   string
	state numberState
}

// NumberOf returns a present Number. NaN and infinities are kept but
// reported as unusable by Float.
func NumberOf(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{value: v, state: numberInvalid}
	}
	return Number{value: v, state: numberValid}
}

// ParseNumber interprets s the way metadata strings are interpreted.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{raw: s, state: numberInvalid}
	}
	n := NumberOf(v)
	n.raw = s
	return n
}

// Present reports whether the source data held any value at all.
func (n Number) Present() bool { return n.state != numberAbsent }

// Float returns the value and whether it is a usable finite number.
func (n Number) Float() (float64, bool) {
	if n.state != numberValid {
		return 0, false
	}
	return n.value, true
}

// String renders the value for display. Absent values render empty.
func (n Number) String() string {
	switch n.state {
	case numberValid:
		return strconv.FormatFloat(n.value, 'f', -1, 64)
	case numberInvalid:
		if n.raw != "" {
			return n.raw
		}
		return strconv.FormatFloat(n.value, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler. Non-finite values encode as null;
// unparsable text is kept as a string.
func (n Number) MarshalJSON() ([]byte, error) {
	switch n.state {
	case numberValid:
		return json.Marshal(n.value)
	case numberInvalid:
		if _, err := strconv.ParseFloat(n.raw, 64); n.raw != "" && err != nil {
			return json.Marshal(n.raw)
		}
		return []byte("null"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// booleans and other shapes are kept but unusable
		*n = Number{raw: string(data), state: numberInvalid}
		return nil
	}
	*n = NumberOf(v)
	return nil
}

// Price is either a numeric price or a run of "$" characters.
type Price struct {
	num    Number
	symbol string
}

// PriceValue returns a numeric price.
func PriceValue(v float64) Price { return Price{num: NumberOf(v)} }

// ParsePrice interprets a price string from metadata.
func ParsePrice(s string) Price {
	s = strings.TrimSpace(s)
	if s != "" && strings.Trim(s, "$") == "" {
		return Price{symbol: s}
	}
	return Price{num: ParseNumber(s)}
}

// Present reports whether any price value was recorded.
func (p Price) Present() bool { return p.symbol != "" || p.num.Present() }

// Symbol returns the "$"-run, if the price was expressed that way.
func (p Price) Symbol() (string, bool) { return p.symbol, p.symbol != "" }

// Level returns the comparable price level: the length of a "$"-run, or the
// numeric value. ok is false when the price is missing or unusable.
func (p Price) Level() (float64, bool) {
	if p.symbol != "" {
		return float64(len(p.symbol)), true
	}
	return p.num.Float()
}

// String renders the price for display.
func (p Price) String() string {
	if p.symbol != "" {
		return p.symbol
	}
	return p.num.String()
}

// MarshalJSON implements json.Marshaler.
func (p Price) MarshalJSON() ([]byte, error) {
	if p.symbol != "" {
		return json.Marshal(p.symbol)
	}
	return p.num.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ParsePrice(s)
		return nil
	}
	var n Number
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*p = Price{num: n}
	return nil
}

// Code is an identifier-like field (zip code, item id) that upstream data
// stores either as a string or as a number.
type Code string

// UnmarshalJSON implements json.Unmarshaler.
func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*c = Code(normalizeNumericCode(num.String()))
		return nil
	}
	*c = Code(string(data))
	return nil
}

// normalizeNumericCode turns "94110.0" (pandas float ids) into "94110".
func normalizeNumericCode(s string) string {
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return s
}
