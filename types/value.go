package types

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Kind enumerates the shapes a JSON-derived value can take.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "unknown"
}

// Value is a tagged union over every scalar or container that can arrive in
// a JSON request. Values destined for SQL statements keep their native type
// and are bound as parameters, never rendered into SQL text. Maps preserve
// the key order of the original document so that generated SQL is
// deterministic and mirrors the request.
type Value struct {
	kind    Kind
	i       int64
	f       float64
	b       bool
	s       string
	list    []Value
	entries []MapEntry
}

// MapEntry is a single ordered key/value pair of a map Value.
type MapEntry struct {
	Key   string
	Value Value
}

func Null() Value                   { return Value{kind: KindNull} }
func Int(v int64) Value             { return Value{kind: KindInt, i: v} }
func Float(v float64) Value         { return Value{kind: KindFloat, f: v} }
func Bool(v bool) Value             { return Value{kind: KindBool, b: v} }
func Text(v string) Value           { return Value{kind: KindText, s: v} }
func List(items ...Value) Value     { return Value{kind: KindList, list: items} }
func Map(entries ...MapEntry) Value { return Value{kind: KindMap, entries: entries} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Int64() int64       { return v.i }
func (v Value) Float64() float64   { return v.f }
func (v Value) BoolVal() bool      { return v.b }
func (v Value) TextVal() string    { return v.s }
func (v Value) Items() []Value     { return v.list }
func (v Value) Entries() []MapEntry { return v.entries }

// Get looks a key up in a map Value, preserving nothing about order.
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Param returns the value in a form suitable for binding as a SQL statement
// parameter. Containers are rendered as JSON text, matching how MySQL accepts
// JSON column values.
func (v Value) Param() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindText:
		return v.s
	case KindList, KindMap:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(data)
	}
	return nil
}

// Interface converts the value back into the plain Go shapes produced by
// encoding/json. Map ordering is lost; use Entries when order matters.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindText:
		return v.s
	case KindList:
		items := make([]interface{}, len(v.list))
		for i, item := range v.list {
			items[i] = item.Interface()
		}
		return items
	case KindMap:
		m := make(map[string]interface{}, len(v.entries))
		for _, e := range v.entries {
			m[e.Key] = e.Value.Interface()
		}
		return m
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindText:
		return v.s
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

// MarshalJSON renders the value as the JSON document it came from, keeping
// map entries in their original order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt, KindFloat, KindBool, KindText:
		return json.Marshal(v.Interface())
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			sb.Write(data)
		}
		sb.WriteByte(']')
		return []byte(sb.String()), nil
	case KindMap:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				sb.WriteByte(',')
			}
			key, err := json.Marshal(e.Key)
			if err != nil {
				return nil, err
			}
			sb.Write(key)
			sb.WriteByte(':')
			data, err := e.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			sb.Write(data)
		}
		sb.WriteByte('}')
		return []byte(sb.String()), nil
	}
	return nil, fmt.Errorf("cannot marshal value of kind %d", v.kind)
}

// DecodeValue reads a single JSON document into a Value, preserving object
// key order and keeping integers lossless.
func DecodeValue(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	v, err := decodeToken(dec, tok)
	if err != nil {
		return Value{}, err
	}

	// A request body is a single document; trailing content is malformed.
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("unexpected content after JSON document")
	}
	return v, nil
}

// DecodeValueString is DecodeValue over an in-memory document.
func DecodeValueString(s string) (Value, error) {
	return DecodeValue(strings.NewReader(s))
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case json.Number:
		return numberValue(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	var entries []MapEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		val, err := decodeToken(dec, valTok)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, MapEntry{Key: key, Value: val})
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return Map(entries...), nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	var items []Value
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		item, err := decodeToken(dec, tok)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return List(items...), nil
}

func numberValue(n json.Number) Value {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Text(n.String())
	}
	return Float(f)
}

// FromInterface converts plain decoded Go values (including json.Number) into
// the union. Map ordering cannot be recovered through this path; prefer
// DecodeValue for request bodies.
func FromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return Text(t)
	case json.Number:
		return numberValue(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromInterface(item)
		}
		return List(items...)
	case map[string]interface{}:
		entries := make([]MapEntry, 0, len(t))
		for k, v := range t {
			entries = append(entries, MapEntry{Key: k, Value: FromInterface(v)})
		}
		return Map(entries...)
	case Value:
		return t
	default:
		return Text(fmt.Sprintf("%v", t))
	}
}
