// Package unpack decodes JSON into a tree of concrete Go types chosen at
// runtime by a discriminator field, for interfaces that stand in for a
// closed tagged union. Register every concrete type with New/Init/AddAs,
// then call Unpack with the name of the discriminator field and a JSON
// document; any interface-typed field or slice element reachable from the
// top-level type is resolved the same way, recursively.
//
// A registered type may pin its own discriminator field name with an
// `unpack:""` struct tag (see tag.go); types that don't fall back to the
// field name passed to Unpack. This lets a single Reflector serve more
// than one discriminator field name across a document, as long as no two
// tag values collide.
package unpack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

type rule struct {
	typ reflect.Type
	key string // "" means: use the fallback key passed to Unpack
}

// Reflector holds the set of concrete types a tagged interface can decode
// into, keyed by the discriminator value each type is registered under.
type Reflector struct {
	rules map[string]rule
}

// New returns an empty Reflector. Chain Init and/or AddAs to register
// concrete types before calling Unpack.
func New() *Reflector {
	return &Reflector{rules: make(map[string]rule)}
}

// Init registers each of types under its own type name as the
// discriminator value.
func (r *Reflector) Init(types ...interface{}) *Reflector {
	for _, t := range types {
		r.add(t, "")
	}
	return r
}

// AddAs registers t under an explicit discriminator value rather than its
// type name, for a type that appears under more than one tag.
func (r *Reflector) AddAs(t interface{}, tag string) *Reflector {
	r.add(t, tag)
	return r
}

func (r *Reflector) add(t interface{}, tagOverride string) {
	typ := reflect.TypeOf(t)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	unpackKey, unpackVal, err := structToUnpackRule(typ)
	if err != nil {
		panic(err)
	}
	tag := tagOverride
	if tag == "" {
		tag = unpackVal
	}
	if tag == "" {
		tag = typ.Name()
	}
	r.rules[tag] = rule{typ: typ, key: unpackKey}
}

// candidateKeys returns every discriminator field name this Reflector
// might need to probe: fallback plus every explicit per-type key.
func (r *Reflector) candidateKeys(fallback string) []string {
	seen := make(map[string]bool)
	var keys []string
	if fallback != "" {
		seen[fallback] = true
		keys = append(keys, fallback)
	}
	for _, rl := range r.rules {
		if rl.key != "" && !seen[rl.key] {
			seen[rl.key] = true
			keys = append(keys, rl.key)
		}
	}
	return keys
}

// Unpack decodes data, a JSON object, into the concrete type registered
// under the value of its key field (or, for a type registered with its
// own discriminator field, that field), filling in every nested
// interface field or element the same way.
func (r *Reflector) Unpack(key, data string) (interface{}, error) {
	return r.unpackTagged(key, json.RawMessage(data))
}

// Fill decodes data into target, a pointer to a struct, slice, interface
// variable, or other addressable value, resolving any interface field
// reachable from it through the registered rules. key is the fallback
// discriminator field name used for any registered type that doesn't pin
// its own (see the unpack struct tag).
func (r *Reflector) Fill(key string, data []byte, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("unpack: Fill target must be a non-nil pointer")
	}
	return r.unpackValue(key, json.RawMessage(data), v.Elem())
}

func (r *Reflector) unpackTagged(fallback string, data json.RawMessage) (interface{}, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	var tagRaw json.RawMessage
	var foundKey string
	for _, k := range r.candidateKeys(fallback) {
		raw, ok := m[k]
		if !ok {
			continue
		}
		if foundKey == "" {
			tagRaw, foundKey = raw, k
		}
		// Prefer the key whose value names a type registered under that
		// very key, so a sibling field like a BinaryOp's "op" is not
		// mistaken for the discriminator.
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if rl, ok := r.rules[s]; ok && (rl.key == k || (rl.key == "" && k == fallback)) {
				tagRaw, foundKey = raw, k
				break
			}
		}
	}
	if foundKey == "" {
		return nil, fmt.Errorf("unpack: no discriminator field found (tried %q)", r.candidateKeys(fallback))
	}
	var tag string
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return nil, fmt.Errorf("unpack: discriminator field %q is not a string", foundKey)
	}
	rl, ok := r.rules[tag]
	if !ok {
		return nil, fmt.Errorf("unpack: unknown tag %q for field %q", tag, foundKey)
	}
	ptr := reflect.New(rl.typ)
	if err := r.fillStruct(fallback, data, ptr.Elem()); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", tag, err)
	}
	return ptr.Interface(), nil
}

// fillStruct decodes the JSON object data into the fields of target, an
// addressable struct value, recursing into nested interfaces, structs,
// pointers, and slices as needed.
func (r *Reflector) fillStruct(fallback string, data json.RawMessage, target reflect.Value) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	t := target.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name, ok := jsonFieldName(field)
		if !ok {
			name = field.Name
		}
		raw, present := m[name]
		if !present {
			continue
		}
		if err := r.unpackValue(fallback, raw, target.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

// unpackValue decodes data into target, an addressable, settable value of
// any kind, dispatching through the registered rules wherever an interface
// is encountered.
func (r *Reflector) unpackValue(fallback string, data json.RawMessage, target reflect.Value) error {
	if isJSONNull(data) {
		return nil
	}
	switch target.Kind() {
	case reflect.Interface:
		v, err := r.unpackTagged(fallback, data)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(v))
		return nil
	case reflect.Ptr:
		target.Set(reflect.New(target.Type().Elem()))
		return r.unpackValue(fallback, data, target.Elem())
	case reflect.Struct:
		if u, ok := target.Addr().Interface().(json.Unmarshaler); ok {
			return u.UnmarshalJSON(data)
		}
		return r.fillStruct(fallback, data, target)
	case reflect.Slice:
		var rawElems []json.RawMessage
		if err := json.Unmarshal(data, &rawElems); err != nil {
			return err
		}
		elemType := target.Type().Elem()
		slice := reflect.MakeSlice(target.Type(), len(rawElems), len(rawElems))
		for i, raw := range rawElems {
			elemVal := reflect.New(elemType).Elem()
			if err := r.unpackValue(fallback, raw, elemVal); err != nil {
				return err
			}
			slice.Index(i).Set(elemVal)
		}
		target.Set(slice)
		return nil
	default:
		ptr := reflect.New(target.Type())
		if err := json.Unmarshal(data, ptr.Interface()); err != nil {
			return err
		}
		target.Set(ptr.Elem())
		return nil
	}
}

func isJSONNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || string(trimmed) == "null"
}
