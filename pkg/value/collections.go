package value

import (
	"fmt"
	"slices"
)

// Map is a string-keyed mapping that remembers insertion order
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap creates an empty map
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// MapOf builds a map from alternating key/value arguments.
// Values go through From, so plain strings, ints and slices are accepted.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("value.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("value.MapOf: key %v is not a string", kv[i]))
		}
		m.Set(k, MustFrom(kv[i+1]))
	}
	return m
}

func (*Map) Kind() Kind { return KindMap }

// Clone deep-copies the map and everything below it
func (m *Map) Clone() Value {
	out := &Map{
		keys:   slices.Clone(m.keys),
		values: make(map[string]Value, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v.Clone()
	}
	return out
}

// Len returns the number of keys
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order
func (m *Map) Keys() []string { return slices.Clone(m.keys) }

// Has reports whether key is present
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Get returns the value stored under key
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores v under key. New keys go to the end; existing keys keep their position.
func (m *Map) Set(key string, v Value) {
	if v == nil {
		panic("value.Map.Set: nil value for key " + key)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key and returns the value it held
func (m *Map) Delete(key string) (Value, bool) {
	v, ok := m.values[key]
	if !ok {
		return nil, false
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
	return v, true
}

// Range calls fn for every entry in insertion order until fn returns false.
// The key set is snapshotted first so fn may modify the map.
func (m *Map) Range(fn func(key string, v Value) bool) {
	for _, k := range m.Keys() {
		v, ok := m.values[k]
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

// GetString returns the string stored under key
func (m *Map) GetString(key string) (string, bool) {
	v, ok := m.values[key].(String)
	return string(v), ok
}

// GetMap returns the mapping stored under key
func (m *Map) GetMap(key string) (*Map, bool) {
	v, ok := m.values[key].(*Map)
	return v, ok
}

// GetList returns the list stored under key
func (m *Map) GetList(key string) (*List, bool) {
	v, ok := m.values[key].(*List)
	return v, ok
}

// List is an ordered sequence of values
type List struct {
	items []Value
}

// NewList creates a list holding items
func NewList(items ...Value) *List {
	return &List{items: slices.Clone(items)}
}

// ListOf builds a list from plain Go values via From
func ListOf(items ...any) *List {
	l := NewList()
	for _, item := range items {
		l.Append(MustFrom(item))
	}
	return l
}

// StringList builds a list of String values
func StringList(items ...string) *List {
	l := &List{items: make([]Value, 0, len(items))}
	for _, s := range items {
		l.items = append(l.items, String(s))
	}
	return l
}

func (*List) Kind() Kind { return KindList }

// Clone deep-copies the list and everything below it
func (l *List) Clone() Value {
	out := &List{items: make([]Value, len(l.items))}
	for i, v := range l.items {
		out.items[i] = v.Clone()
	}
	return out
}

// Len returns the number of items
func (l *List) Len() int { return len(l.items) }

// At returns the item at index i
func (l *List) At(i int) Value { return l.items[i] }

// SetAt replaces the item at index i
func (l *List) SetAt(i int, v Value) { l.items[i] = v }

// Append adds items to the end of the list
func (l *List) Append(items ...Value) {
	l.items = append(l.items, items...)
}

// Values returns a snapshot of the items
func (l *List) Values() []Value { return slices.Clone(l.items) }

// Contains reports whether an item equal to v is present
func (l *List) Contains(v Value) bool {
	return slices.ContainsFunc(l.items, func(item Value) bool { return Equal(item, v) })
}

// RemoveFunc drops every item for which drop returns true and reports how many were removed
func (l *List) RemoveFunc(drop func(Value) bool) int {
	before := len(l.items)
	l.items = slices.DeleteFunc(l.items, drop)
	return before - len(l.items)
}

// Strings returns the string items in order. Items of other kinds are skipped.
func (l *List) Strings() []string {
	out := make([]string, 0, len(l.items))
	for _, item := range l.items {
		if s, ok := item.(String); ok {
			out = append(out, string(s))
		}
	}
	return out
}
