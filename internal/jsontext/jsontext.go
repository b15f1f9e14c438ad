// Package jsontext escapes arbitrary file or process output for embedding in
// JSON string literals.
package jsontext

import (
	"strings"
)

const hex = "0123456789abcdef"

// Escape returns s with the JSON string escapes applied. Quote, backslash,
// newline, carriage return and tab use their short forms; the remaining
// control bytes below 0x20 use \u00XX. All other bytes are copied unchanged.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xf])
				continue
			}
			b.WriteByte(c)
		}
	}

	return b.String()
}

// Quote returns s escaped and wrapped in double quotes.
func Quote(s string) string {
	return `"` + Escape(s) + `"`
}

// Object renders a flat JSON object with string values, keeping key order.
// Pairs are given as key, value, key, value; a trailing key without a value
// is ignored.
func Object(pairs ...string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Quote(pairs[i]))
		b.WriteByte(':')
		b.WriteString(Quote(pairs[i+1]))
	}
	b.WriteByte('}')
	return b.String()
}
