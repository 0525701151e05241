package value

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one node of a unit's nested value tree.
// The concrete types are String, Int, *Map and *List.
type Value interface {
	Kind() Kind
	// Clone returns a copy that shares no mutable structure with the receiver.
	Clone() Value
}

// String is a scalar string value
type String string

func (String) Kind() Kind { return KindString }
func (s String) Clone() Value { return s }
func (s String) String() string { return string(s) }

// Int is a scalar integer value
type Int int64

func (Int) Kind() Kind { return KindInt }
func (i Int) Clone() Value { return i }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// IsScalar reports whether v is a String or an Int
func IsScalar(v Value) bool {
	if v == nil {
		return false
	}
	k := v.Kind()
	return k == KindString || k == KindInt
}

// Equal reports whether a and b hold the same tree
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case String:
		return av == b.(String)
	case Int:
		return av == b.(Int)
	case *Map:
		bv := b.(*Map)
		if av.Len() != bv.Len() {
			return false
		}
		for i, k := range av.keys {
			if bv.keys[i] != k || !Equal(av.values[k], bv.values[k]) {
				return false
			}
		}
		return true
	case *List:
		bv := b.(*List)
		if av.Len() != bv.Len() {
			return false
		}
		for i := range av.items {
			if !Equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// From converts a string, int, int64, []string, []any or an existing Value
// into a Value. Go maps are rejected since they carry no key order; build a
// *Map with NewMap or MapOf instead.
func From(v any) (Value, error) {
	switch t := v.(type) {
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case int:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case []string:
		l := NewList()
		for _, s := range t {
			l.Append(String(s))
		}
		return l, nil
	case []any:
		l := NewList()
		for i, item := range t {
			iv, err := From(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			l.Append(iv)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustFrom is From for literals known to be valid
func MustFrom(v any) Value {
	out, err := From(v)
	if err != nil {
		panic(err)
	}
	return out
}
