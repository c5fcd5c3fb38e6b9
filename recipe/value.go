package recipe

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is a decoded JSON value. Exactly one of the variant fields is
// meaningful, selected by Kind. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  map[string]Value
}

var errTrailingData = errors.New("recipe: trailing data after JSON value")

// ParseValue decodes a JSON document into a Value. Numbers keep their
// literal text so "250" and 250 render the same way.
func ParseValue(data string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errTrailingData
	}
	return fromAny(raw), nil
}

func fromAny(raw any) Value {
	switch v := raw.(type) {
	case bool:
		return Value{kind: KindBool, b: v}
	case json.Number:
		return Value{kind: KindNumber, num: v}
	case float64:
		return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(v, 'f', -1, 64))}
	case string:
		return Value{kind: KindString, str: v}
	case []any:
		arr := make([]Value, len(v))
		for i, item := range v {
			arr[i] = fromAny(item)
		}
		return Value{kind: KindArray, arr: arr}
	case map[string]any:
		obj := make(map[string]Value, len(v))
		for k, item := range v {
			obj[k] = fromAny(item)
		}
		return Value{kind: KindObject, obj: obj}
	default:
		return Value{}
	}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }
func (v Value) IsArray() bool { return v.kind == KindArray }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) Items() []Value { return v.arr }

// Field returns the named member of an object. ok is false when v is not an
// object or the member is missing.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Has reports whether v is an object with the named member.
func (v Value) Has(name string) bool {
	_, ok := v.Field(name)
	return ok
}

// Text renders scalar variants as a string. Arrays, objects and null
// render as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// IsType reports whether v is an object whose @type is typeName, either
// directly or as one entry of an @type array.
func (v Value) IsType(typeName string) bool {
	t, ok := v.Field("@type")
	if !ok {
		return false
	}
	switch t.kind {
	case KindString:
		return t.str == typeName
	case KindArray:
		for _, item := range t.arr {
			if item.kind == KindString && item.str == typeName {
				return true
			}
		}
	}
	return false
}
