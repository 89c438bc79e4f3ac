package ir

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ValueKind is the closed set of literal value kinds. Its zero value is
// KindNull, so a Value field that a producer set to JSON null decodes to
// the correct zero value without a dedicated code path.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// Value is a Literal's constant value. It is its own tiny tagged union
// rather than an interface{} so that an integer-valued literal and its
// float counterpart never collapse into the same wire representation —
// Go's float64 marshals 5.0 as "5", which would make encode/decode lossy
// for the very distinction spec §6.1 calls out.
type Value struct {
	Kind ValueKind
	B    bool
	I    int64
	F    float64
	S    string
}

func NullValue() Value            { return Value{Kind: KindNull} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, B: b} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, I: i} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, F: f} }
func StringValue(s string) Value  { return Value{Kind: KindString, S: s} }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.B {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.I, 10)), nil
	case KindFloat:
		return []byte(formatCanonicalFloat(v.F)), nil
	case KindString:
		return json.Marshal(norm.NFC.String(v.S))
	}
	return []byte("null"), nil
}

// formatCanonicalFloat always includes a decimal point or exponent, so a
// float literal never round-trips through the wire looking like an
// integer.
func formatCanonicalFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*v = Value{Kind: KindNull}
	case s == "true":
		*v = Value{Kind: KindBool, B: true}
	case s == "false":
		*v = Value{Kind: KindBool, B: false}
	case len(s) > 0 && s[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = Value{Kind: KindString, S: norm.NFC.String(str)}
	default:
		if strings.ContainsAny(s, ".eE") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*v = Value{Kind: KindFloat, F: f}
		} else {
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return err
			}
			*v = Value{Kind: KindInt, I: i}
		}
	}
	return nil
}
