// Package codec packs and unpacks node payloads according to a struct-style
// layout string such as "hhB" or "2h4x". All fields are little-endian with
// standard sizes; the layout never includes the leading node-id byte.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind 描述一个字段的二进制类型
type Kind byte

const (
	Pad     Kind = 'x'
	Int8    Kind = 'b'
	Uint8   Kind = 'B'
	Bool    Kind = '?'
	Int16   Kind = 'h'
	Uint16  Kind = 'H'
	Int32   Kind = 'i'
	Uint32  Kind = 'I'
	Int64   Kind = 'q'
	Uint64  Kind = 'Q'
	Float32 Kind = 'f'
	Float64 Kind = 'd'
)

// ErrLayout is the sentinel behind every *LayoutError.
var ErrLayout = errors.New("invalid payload layout")

// LayoutError reports a layout string that cannot be parsed.
type LayoutError struct {
	Format string
	Pos    int
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("bad payload layout %q at %d: %s", e.Format, e.Pos, e.Reason)
}

func (e *LayoutError) Unwrap() error { return ErrLayout }

// Field is one value slot (or pad byte) of a layout.
type Field struct {
	Kind Kind
	Size int
}

// Signed reports whether the field is a two's-complement integer.
func (f Field) Signed() bool {
	switch f.Kind {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// Integer reports whether the field only accepts integral values.
func (f Field) Integer() bool {
	return f.Kind != Float32 && f.Kind != Float64 && f.Kind != Pad
}

// Layout 是解析后的载荷格式，字段按顺序排列
type Layout struct {
	format string
	fields []Field
	size   int
	count  int
}

var sizes = map[byte]Field{
	'x': {Pad, 1},
	'b': {Int8, 1},
	'B': {Uint8, 1},
	'?': {Bool, 1},
	'h': {Int16, 2},
	'H': {Uint16, 2},
	'i': {Int32, 4},
	'l': {Int32, 4},
	'I': {Uint32, 4},
	'L': {Uint32, 4},
	'q': {Int64, 8},
	'Q': {Uint64, 8},
	'f': {Float32, 4},
	'd': {Float64, 8},
}

// ParseLayout parses a layout string. Whitespace is ignored and each code may
// carry a decimal repeat count ("3h" == "hhh").
func ParseLayout(format string) (Layout, error) {
	l := Layout{format: format}
	repeat := ""
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if repeat != "" {
				return Layout{}, &LayoutError{format, i, "repeat count not followed by a field code"}
			}
			continue
		case c >= '0' && c <= '9':
			repeat += string(c)
			continue
		case c == '<' || c == '>' || c == '!' || c == '=' || c == '@':
			return Layout{}, &LayoutError{format, i, "byte order is fixed to little-endian"}
		}

		f, ok := sizes[c]
		if !ok {
			return Layout{}, &LayoutError{format, i, fmt.Sprintf("unsupported field code %q", c)}
		}
		n := 1
		if repeat != "" {
			var err error
			n, err = strconv.Atoi(repeat)
			if err != nil || n > 1<<16 {
				return Layout{}, &LayoutError{format, i, "repeat count out of range"}
			}
			repeat = ""
		}
		for ; n > 0; n-- {
			l.fields = append(l.fields, f)
			l.size += f.Size
			if f.Kind != Pad {
				l.count++
			}
		}
	}
	if repeat != "" {
		return Layout{}, &LayoutError{format, len(format), "trailing repeat count"}
	}
	return l, nil
}

// MustParseLayout is ParseLayout for static layouts; it panics on error.
func MustParseLayout(format string) Layout {
	l, err := ParseLayout(format)
	if err != nil {
		panic(err)
	}
	return l
}

// Format returns the layout string the layout was parsed from.
func (l Layout) Format() string { return l.format }

// Size is the number of bytes a payload with this layout occupies.
func (l Layout) Size() int { return l.size }

// Count is the number of values (pad bytes excluded).
func (l Layout) Count() int { return l.count }

// Fields returns a copy of the field list.
func (l Layout) Fields() []Field {
	return append([]Field(nil), l.fields...)
}

func (l Layout) String() string {
	return strings.TrimSpace(l.format)
}
