package ir

import (
	"bytes"
	"encoding/json"

	"golang.org/x/text/unicode/norm"
)

// Encode produces the canonical JSON form of p: object keys sorted
// lexicographically, no insignificant whitespace, and every string
// NFC-normalized. Two programs that differ only in non-semantic JSON
// ordering encode identically (spec §8 scenario 6).
//
// The canonicalization is a two-pass marshal: p's own MarshalJSON methods
// (notably Value's, which is careful to keep integers and floats
// textually distinct) produce ordinary JSON first; that's then decoded
// into a generic tree with json.Number preserved and re-marshaled, which
// encoding/json always does with sorted map keys.
func Encode(p *Program) (string, error) {
	buf, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(normalizeStrings(generic))
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

// normalizeStrings walks a generic decoded JSON tree, NFC-normalizing
// every string (object keys included). Numbers, decoded as json.Number,
// pass through untouched and re-marshal to their original literal text.
func normalizeStrings(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		return norm.NFC.String(x)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[norm.NFC.String(k)] = normalizeStrings(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = normalizeStrings(val)
		}
		return out
	default:
		return x
	}
}
