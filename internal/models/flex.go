package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The CRM is loose with scalar encodings: the same field arrives as a number,
// a numeric string, an empty string or null depending on the endpoint. The Flex
// types accept all of those and degrade malformed values to zero instead of
// failing the whole snapshot.

// FlexFloat is a float64 that tolerates string and null encodings.
type FlexFloat float64

// FlexInt is an int64 that tolerates string, float and null encodings.
type FlexInt int64

// FlexBool is a bool that tolerates 0/1, "0"/"1", "true"/"false" and "si"/"no".
type FlexBool bool

// FlexString is a string that tolerates number and null encodings. Objects and
// arrays decode to the empty string.
type FlexString string

// String returns the plain string value.
func (s FlexString) String() string { return string(s) }

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat(parseLooseFloat(data))
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	*i = FlexInt(math.Round(parseLooseFloat(data)))
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	raw := strings.ToLower(strings.TrimSpace(unquote(data)))
	switch raw {
	case "true", "1", "si", "sí", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case len(raw) == 0 || string(raw) == "null":
		*s = ""
	case raw[0] == '"':
		*s = FlexString(unquote(raw))
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		*s = FlexString(formatNumber(string(raw)))
	default:
		*s = ""
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'f', -1, 64)), nil
}

// MarshalJSON implements json.Marshaler.
func (i FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(i), 10)), nil
}

// MarshalJSON implements json.Marshaler.
func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// MarshalJSON implements json.Marshaler.
func (s FlexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// formatNumber renders a JSON number literal without exponent notation.
func formatNumber(raw string) string {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return raw
}

func parseLooseFloat(data []byte) float64 {
	raw := strings.TrimSpace(unquote(data))
	if raw == "" || raw == "null" {
		return 0
	}
	// "1234,5" uses a decimal comma; "1.234,5" also carries a thousands dot.
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s
		}
		return string(data[1 : len(data)-1])
	}
	return string(data)
}
