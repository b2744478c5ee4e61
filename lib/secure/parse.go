// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/lsmp/lib/secret"
)

// maxDepth bounds array and object nesting.
const maxDepth = 512

// SyntaxError describes malformed JSON input.
type SyntaxError struct {
	// Offset is the byte position in the input where the error was
	// detected.
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("secure: invalid JSON at offset %d: %s", e.Offset, e.Message)
}

// ParseJSON parses one JSON document into arena memory using the
// process-wide arena. Comments and trailing commas are accepted.
func ParseJSON(data []byte) (*Value, error) {
	return ParseJSONWith(Allocator[byte]{}, data)
}

// ParseJSONWith parses one JSON document into memory from allocator.
//
// String contents are decoded straight from the input into arena
// strings, without intermediate heap strings. The comment-stripped copy
// of the input is zeroed before returning; data itself is left to the
// caller to wipe.
func ParseJSONWith(allocator Allocator[byte], data []byte) (*Value, error) {
	stripped := jsonc.ToJSON(data)
	defer secret.Zero(stripped)

	p := parser{data: stripped, allocator: allocator}
	p.skipSpace()
	value, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.position != len(p.data) {
		value.Close()
		return nil, p.fail("unexpected data after top-level value")
	}
	return value, nil
}

type parser struct {
	data      []byte
	position  int
	depth     int
	allocator Allocator[byte]
}

func (p *parser) fail(format string, args ...any) error {
	return &SyntaxError{Offset: p.position, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.position < len(p.data) {
		switch p.data[p.position] {
		case ' ', '\t', '\n', '\r':
			p.position++
		default:
			return
		}
	}
}

func (p *parser) literal(word string) bool {
	if len(p.data)-p.position >= len(word) && string(p.data[p.position:p.position+len(word)]) == word {
		p.position += len(word)
		return true
	}
	return false
}

func (p *parser) value() (*Value, error) {
	if p.position >= len(p.data) {
		return nil, p.fail("unexpected end of input")
	}
	switch c := p.data[p.position]; {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"':
		text, err := p.text()
		if err != nil {
			return nil, err
		}
		return &Value{kind: KindString, text: text}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		end := scanNumber(p.data, p.position)
		if end < 0 {
			return nil, p.fail("malformed number")
		}
		text, err := NewStringFrom(p.allocator, p.data[p.position:end])
		if err != nil {
			return nil, err
		}
		p.position = end
		return &Value{kind: KindNumber, text: text}, nil
	case p.literal("true"):
		return NewBool(true), nil
	case p.literal("false"):
		return NewBool(false), nil
	case p.literal("null"):
		return NewNull(), nil
	default:
		return nil, p.fail("unexpected character %q", c)
	}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.fail("nesting deeper than %d", maxDepth)
	}
	return nil
}

func (p *parser) array() (*Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	result := NewArray()
	p.position++ // '['
	p.skipSpace()
	if p.position < len(p.data) && p.data[p.position] == ']' {
		p.position++
		return result, nil
	}
	for {
		item, err := p.value()
		if err != nil {
			result.Close()
			return nil, err
		}
		result.items = append(result.items, item)
		p.skipSpace()
		if p.position >= len(p.data) {
			result.Close()
			return nil, p.fail("unterminated array")
		}
		switch p.data[p.position] {
		case ',':
			p.position++
			p.skipSpace()
		case ']':
			p.position++
			return result, nil
		default:
			result.Close()
			return nil, p.fail("expected ',' or ']' in array")
		}
	}
}

func (p *parser) object() (*Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	result := NewObject()
	p.position++ // '{'
	p.skipSpace()
	if p.position < len(p.data) && p.data[p.position] == '}' {
		p.position++
		return result, nil
	}
	for {
		if p.position >= len(p.data) || p.data[p.position] != '"' {
			result.Close()
			return nil, p.fail("expected object key")
		}
		key, err := p.text()
		if err != nil {
			result.Close()
			return nil, err
		}
		p.skipSpace()
		if p.position >= len(p.data) || p.data[p.position] != ':' {
			key.Close()
			result.Close()
			return nil, p.fail("expected ':' after object key")
		}
		p.position++
		p.skipSpace()
		item, err := p.value()
		if err != nil {
			key.Close()
			result.Close()
			return nil, err
		}
		// Later duplicates replace earlier ones.
		position, found := result.find(key.Bytes())
		if found {
			key.Close()
			result.members[position].value.Close()
			result.members[position].value = item
		} else {
			result.members = append(result.members, member{})
			copy(result.members[position+1:], result.members[position:])
			result.members[position] = member{key: key, value: item}
		}

		p.skipSpace()
		if p.position >= len(p.data) {
			result.Close()
			return nil, p.fail("unterminated object")
		}
		switch p.data[p.position] {
		case ',':
			p.position++
			p.skipSpace()
		case '}':
			p.position++
			return result, nil
		default:
			result.Close()
			return nil, p.fail("expected ',' or '}' in object")
		}
	}
}

// text decodes a quoted string at the current position into a new
// arena string.
func (p *parser) text() (*String, error) {
	out, err := NewString(p.allocator, 0)
	if err != nil {
		return nil, err
	}
	p.position++ // opening quote
	start := p.position
	for p.position < len(p.data) {
		c := p.data[p.position]
		switch {
		case c == '"':
			if err := out.Append(p.data[start:p.position]); err != nil {
				out.Close()
				return nil, err
			}
			p.position++
			return out, nil
		case c == '\\':
			if err := out.Append(p.data[start:p.position]); err != nil {
				out.Close()
				return nil, err
			}
			if err := p.escape(out); err != nil {
				out.Close()
				return nil, err
			}
			start = p.position
		case c < 0x20:
			out.Close()
			return nil, p.fail("control character in string")
		default:
			p.position++
		}
	}
	out.Close()
	return nil, p.fail("unterminated string")
}

// escape decodes one backslash escape into out.
func (p *parser) escape(out *String) error {
	if p.position+1 >= len(p.data) {
		return p.fail("unterminated escape")
	}
	var b byte
	switch p.data[p.position+1] {
	case '"':
		b = '"'
	case '\\':
		b = '\\'
	case '/':
		b = '/'
	case 'b':
		b = '\b'
	case 'f':
		b = '\f'
	case 'n':
		b = '\n'
	case 'r':
		b = '\r'
	case 't':
		b = '\t'
	case 'u':
		return p.unicodeEscape(out)
	default:
		return p.fail("invalid escape %q", p.data[p.position+1])
	}
	p.position += 2
	return out.AppendByte(b)
}

func (p *parser) hex4(at int) (rune, bool) {
	if at+4 > len(p.data) {
		return 0, false
	}
	var r rune
	for _, c := range p.data[at : at+4] {
		var digit byte
		switch {
		case c >= '0' && c <= '9':
			digit = c - '0'
		case c >= 'a' && c <= 'f':
			digit = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			digit = c - 'A' + 10
		default:
			return 0, false
		}
		r = r<<4 | rune(digit)
	}
	return r, true
}

// unicodeEscape decodes \uXXXX, combining surrogate pairs. Unpaired
// surrogates become U+FFFD.
func (p *parser) unicodeEscape(out *String) error {
	r, ok := p.hex4(p.position + 2)
	if !ok {
		return p.fail("invalid \\u escape")
	}
	p.position += 6
	if utf16.IsSurrogate(r) {
		low, ok := rune(0), false
		if p.position+1 < len(p.data) && p.data[p.position] == '\\' && p.data[p.position+1] == 'u' {
			low, ok = p.hex4(p.position + 2)
		}
		if combined := utf16.DecodeRune(r, low); ok && combined != utf8.RuneError {
			r = combined
			p.position += 6
		} else {
			r = utf8.RuneError
		}
	}
	var encoded [utf8.UTFMax]byte
	n := utf8.EncodeRune(encoded[:], r)
	return out.Append(encoded[:n])
}

// scanNumber returns the end of the JSON number starting at start, or
// -1 if none starts there.
func scanNumber(data []byte, start int) int {
	position := start
	digits := func() int {
		begin := position
		for position < len(data) && data[position] >= '0' && data[position] <= '9' {
			position++
		}
		return position - begin
	}

	if position < len(data) && data[position] == '-' {
		position++
	}
	if position < len(data) && data[position] == '0' {
		position++
	} else if digits() == 0 {
		return -1
	}
	if position < len(data) && data[position] == '.' {
		position++
		if digits() == 0 {
			return -1
		}
	}
	if position < len(data) && (data[position] == 'e' || data[position] == 'E') {
		position++
		if position < len(data) && (data[position] == '+' || data[position] == '-') {
			position++
		}
		if digits() == 0 {
			return -1
		}
	}
	return position
}
