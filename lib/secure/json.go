// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"bytes"
	"fmt"
	"iter"
	"sort"
	"strconv"
)

// Kind is the JSON type of a [Value].
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
	case KindNull:
		return "null"
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
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one node of a JSON document. String contents, number
// literals, and object keys are held in arena memory; the tree links
// are ordinary heap pointers. Object members are kept sorted by key.
//
// A Value owns its children. Close releases the whole subtree.
type Value struct {
	kind    Kind
	boolean bool
	// text holds string contents or a number's literal.
	text    *String
	items   []*Value
	members []member
}

type member struct {
	key   *String
	value *Value
}

// NewNull returns a JSON null.
func NewNull() *Value { return &Value{kind: KindNull} }

// NewBool returns a JSON boolean.
func NewBool(b bool) *Value { return &Value{kind: KindBool, boolean: b} }

// NewArray returns an empty JSON array.
func NewArray() *Value { return &Value{kind: KindArray} }

// NewObject returns an empty JSON object.
func NewObject() *Value { return &Value{kind: KindObject} }

// NewText returns a JSON string holding a copy of data.
func NewText(allocator Allocator[byte], data []byte) (*Value, error) {
	text, err := NewStringFrom(allocator, data)
	if err != nil {
		return nil, err
	}
	return &Value{kind: KindString, text: text}, nil
}

// NewNumber returns a JSON number from its literal, which must follow
// the JSON number grammar.
func NewNumber(allocator Allocator[byte], literal []byte) (*Value, error) {
	if end := scanNumber(literal, 0); end != len(literal) || len(literal) == 0 {
		return nil, fmt.Errorf("secure: invalid JSON number literal")
	}
	text, err := NewStringFrom(allocator, literal)
	if err != nil {
		return nil, err
	}
	return &Value{kind: KindNumber, text: text}, nil
}

// NewInt returns a JSON number holding n.
func NewInt(allocator Allocator[byte], n int64) (*Value, error) {
	var digits [20]byte
	return NewNumber(allocator, strconv.AppendInt(digits[:0], n, 10))
}

// Kind returns the JSON type of v.
func (v *Value) Kind() Kind { return v.kind }

// Bool returns the value of a boolean, and false for other kinds.
func (v *Value) Bool() bool { return v.kind == KindBool && v.boolean }

// Text returns the contents of a string or the literal of a number,
// and nil for other kinds. The String belongs to v.
func (v *Value) Text() *String {
	if v.kind == KindString || v.kind == KindNumber {
		return v.text
	}
	return nil
}

// Int parses a number as a signed integer.
func (v *Value) Int() (int64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("secure: %s is not a number", v.kind)
	}
	return strconv.ParseInt(v.text.String(), 10, 64)
}

// Float parses a number as a float64.
func (v *Value) Float() (float64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("secure: %s is not a number", v.kind)
	}
	return strconv.ParseFloat(v.text.String(), 64)
}

// Len returns the number of array elements or object members.
func (v *Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	default:
		return 0
	}
}

// Index returns array element index. It panics if v is not an array or
// index is out of range.
func (v *Value) Index(index int) *Value {
	if v.kind != KindArray {
		panic("secure: Index on JSON " + v.kind.String())
	}
	return v.items[index]
}

// Push appends item to an array, which takes ownership of it.
func (v *Value) Push(item *Value) error {
	if v.kind != KindArray {
		return fmt.Errorf("secure: Push on JSON %s", v.kind)
	}
	v.items = append(v.items, item)
	return nil
}

func (v *Value) find(key []byte) (int, bool) {
	position := sort.Search(len(v.members), func(i int) bool {
		return bytes.Compare(v.members[i].key.Bytes(), key) >= 0
	})
	return position, position < len(v.members) && bytes.Equal(v.members[position].key.Bytes(), key)
}

// Get returns the object member named key, or nil.
func (v *Value) Get(key []byte) *Value {
	if v.kind != KindObject {
		return nil
	}
	position, found := v.find(key)
	if !found {
		return nil
	}
	return v.members[position].value
}

// Set stores value under key in an object, which takes ownership of
// value. A previous member with the same key is closed.
func (v *Value) Set(allocator Allocator[byte], key []byte, value *Value) error {
	if v.kind != KindObject {
		return fmt.Errorf("secure: Set on JSON %s", v.kind)
	}
	position, found := v.find(key)
	if found {
		v.members[position].value.Close()
		v.members[position].value = value
		return nil
	}
	stored, err := NewStringFrom(allocator, key)
	if err != nil {
		return err
	}
	v.members = append(v.members, member{})
	copy(v.members[position+1:], v.members[position:])
	v.members[position] = member{key: stored, value: value}
	return nil
}

// Delete removes and closes the member named key. It reports whether
// the member existed.
func (v *Value) Delete(key []byte) bool {
	if v.kind != KindObject {
		return false
	}
	position, found := v.find(key)
	if !found {
		return false
	}
	v.members[position].key.Close()
	v.members[position].value.Close()
	v.members = append(v.members[:position], v.members[position+1:]...)
	return true
}

// Members iterates over object members in ascending key order.
func (v *Value) Members() iter.Seq2[*String, *Value] {
	return func(yield func(*String, *Value) bool) {
		if v.kind != KindObject {
			return
		}
		for _, m := range v.members {
			if !yield(m.key, m.value) {
				return
			}
		}
	}
}

// AppendTo writes the compact JSON encoding of v to out. Object
// members are written in key order, so equal trees encode identically.
func (v *Value) AppendTo(out *String) error {
	switch v.kind {
	case KindNull:
		return out.AppendString("null")
	case KindBool:
		if v.boolean {
			return out.AppendString("true")
		}
		return out.AppendString("false")
	case KindNumber:
		return out.Append(v.text.Bytes())
	case KindString:
		return appendQuoted(out, v.text.Bytes())
	case KindArray:
		if err := out.AppendByte('['); err != nil {
			return err
		}
		for index, item := range v.items {
			if index > 0 {
				if err := out.AppendByte(','); err != nil {
					return err
				}
			}
			if err := item.AppendTo(out); err != nil {
				return err
			}
		}
		return out.AppendByte(']')
	case KindObject:
		if err := out.AppendByte('{'); err != nil {
			return err
		}
		for index, m := range v.members {
			if index > 0 {
				if err := out.AppendByte(','); err != nil {
					return err
				}
			}
			if err := appendQuoted(out, m.key.Bytes()); err != nil {
				return err
			}
			if err := out.AppendByte(':'); err != nil {
				return err
			}
			if err := m.value.AppendTo(out); err != nil {
				return err
			}
		}
		return out.AppendByte('}')
	default:
		return fmt.Errorf("secure: cannot encode JSON %s", v.kind)
	}
}

const hexDigits = "0123456789abcdef"

func appendQuoted(out *String, data []byte) error {
	if err := out.AppendByte('"'); err != nil {
		return err
	}
	start := 0
	for index, c := range data {
		var escape string
		switch c {
		case '"':
			escape = `\"`
		case '\\':
			escape = `\\`
		case '\n':
			escape = `\n`
		case '\r':
			escape = `\r`
		case '\t':
			escape = `\t`
		default:
			if c >= 0x20 {
				continue
			}
		}
		if err := out.Append(data[start:index]); err != nil {
			return err
		}
		if escape != "" {
			if err := out.AppendString(escape); err != nil {
				return err
			}
		} else {
			control := [6]byte{'\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF]}
			if err := out.Append(control[:]); err != nil {
				return err
			}
		}
		start = index + 1
	}
	if err := out.Append(data[start:]); err != nil {
		return err
	}
	return out.AppendByte('"')
}

// Clone returns an independent deep copy of v.
func (v *Value) Clone(allocator Allocator[byte]) (*Value, error) {
	clone := &Value{kind: v.kind, boolean: v.boolean}
	if v.text != nil {
		text, err := NewStringFrom(allocator, v.text.Bytes())
		if err != nil {
			return nil, err
		}
		clone.text = text
	}
	for _, item := range v.items {
		copied, err := item.Clone(allocator)
		if err != nil {
			clone.Close()
			return nil, err
		}
		clone.items = append(clone.items, copied)
	}
	for _, m := range v.members {
		key, err := NewStringFrom(allocator, m.key.Bytes())
		if err != nil {
			clone.Close()
			return nil, err
		}
		copied, err := m.value.Clone(allocator)
		if err != nil {
			key.Close()
			clone.Close()
			return nil, err
		}
		clone.members = append(clone.members, member{key: key, value: copied})
	}
	return clone, nil
}

// Close releases the arena storage of v and all of its descendants.
func (v *Value) Close() error {
	if v == nil {
		return nil
	}
	if v.text != nil {
		v.text.Close()
		v.text = nil
	}
	for _, item := range v.items {
		item.Close()
	}
	v.items = nil
	for _, m := range v.members {
		m.key.Close()
		m.value.Close()
	}
	v.members = nil
	return nil
}
