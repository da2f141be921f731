package record

import (
	"fmt"
	"strconv"

	"github.com/valyala/fastjson"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a JSON-like metadata value. The zero Value is null.
//
// Numbers keep the literal text they were parsed from and objects keep
// their key order, so a Value re-encodes to the same document it came from.
type Value struct {
	kind    Kind
	boolean bool
	text    string
	items   []Value
	members []Member
}

// Member is a single key/value entry of an object Value.
type Member struct {
	Key   string
	Value Value
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: Bool, boolean: b} }

// NumberValue returns a number Value holding the given JSON literal.
func NumberValue(literal string) Value { return Value{kind: Number, text: literal} }

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: String, text: s} }

// ArrayValue returns an array Value.
func ArrayValue(items ...Value) Value { return Value{kind: Array, items: items} }

// ObjectValue returns an object Value. A repeated key keeps its first
// position and takes the last value.
func ObjectValue(members ...Member) Value {
	v := Value{kind: Object}
	for _, m := range members {
		v.members = setMember(v.members, m.Key, m.Value)
	}
	return v
}

func setMember(members []Member, key string, val Value) []Member {
	for i := range members {
		if members[i].Key == key {
			members[i].Value = val
			return members
		}
	}
	return append(members, Member{Key: key, Value: val})
}

var parserPool fastjson.ParserPool

// ParseValue parses a JSON document into a Value.
func ParseValue(s string) (Value, error) {
	if err := fastjson.Validate(s); err != nil {
		return Value{}, fmt.Errorf("invalid json: %w", err)
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(s)
	if err != nil {
		return Value{}, fmt.Errorf("invalid json: %w", err)
	}
	return fromFastJSON(v), nil
}

// fromFastJSON copies v out of the parser's buffers.
func fromFastJSON(v *fastjson.Value) Value {
	switch v.Type() {
	case fastjson.TypeTrue:
		return BoolValue(true)
	case fastjson.TypeFalse:
		return BoolValue(false)
	case fastjson.TypeNumber:
		return NumberValue(string(v.MarshalTo(nil)))
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return StringValue(string(b))
	case fastjson.TypeArray:
		arr, _ := v.Array()
		items := make([]Value, 0, len(arr))
		for _, item := range arr {
			items = append(items, fromFastJSON(item))
		}
		return ArrayValue(items...)
	case fastjson.TypeObject:
		obj, _ := v.Object()
		out := Value{kind: Object}
		obj.Visit(func(key []byte, val *fastjson.Value) {
			out.members = setMember(out.members, string(key), fromFastJSON(val))
		})
		return out
	default:
		return NullValue()
	}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// Bool returns the boolean held by v and whether v is a boolean.
func (v Value) Bool() (bool, bool) { return v.boolean, v.kind == Bool }

// Number returns the literal held by v and whether v is a number.
func (v Value) Number() (string, bool) {
	if v.kind != Number {
		return "", false
	}
	return v.text, true
}

// Float64 returns the numeric value of a number Value.
func (v Value) Float64() (float64, error) {
	if v.kind != Number {
		return 0, fmt.Errorf("value is %s, not number", v.kind)
	}
	return strconv.ParseFloat(v.text, 64)
}

// Str returns the string held by v and whether v is a string.
func (v Value) Str() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.text, true
}

// Array returns the items of an array Value.
func (v Value) Array() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return v.items, true
}

// Members returns the entries of an object Value in key order.
func (v Value) Members() ([]Member, bool) {
	if v.kind != Object {
		return nil, false
	}
	return v.members, true
}

// Get looks up key in an object Value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Text returns the string form used when comparing metadata against
// query input: strings verbatim, numbers as written, containers as
// compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.boolean)
	case Number, String:
		return v.text
	default:
		return string(v.appendJSON(nil))
	}
}

// Interface converts v to plain Go values: nil, bool, int, float64,
// string, []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.boolean
	case Number:
		if n, err := strconv.Atoi(v.text); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(v.text, 64)
		return f
	case String:
		return v.text
	case Array:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v preserving key order and number literals.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil), nil
}

// UnmarshalJSON decodes a JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) appendJSON(dst []byte) []byte {
	var a fastjson.Arena
	return v.toFastJSON(&a).MarshalTo(dst)
}

func (v Value) toFastJSON(a *fastjson.Arena) *fastjson.Value {
	switch v.kind {
	case Bool:
		if v.boolean {
			return a.NewTrue()
		}
		return a.NewFalse()
	case Number:
		return a.NewNumberString(v.text)
	case String:
		return a.NewString(v.text)
	case Array:
		arr := a.NewArray()
		for i, item := range v.items {
			arr.SetArrayItem(i, item.toFastJSON(a))
		}
		return arr
	case Object:
		obj := a.NewObject()
		for _, m := range v.members {
			obj.Set(m.Key, m.Value.toFastJSON(a))
		}
		return obj
	default:
		return a.NewNull()
	}
}
