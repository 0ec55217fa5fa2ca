// Package hexlower lowers a YARA hex string into a regular expression,
// tracking whether the result could have stayed a plain literal.
//
// Grounded on avast/yarang's hex_string_to_pattern (original_source
// src/lib/yarangc/conversion.cpp): nibble pairs that spell an alphanumeric
// byte emit that ASCII character, everything else emits \xHH; a
// half-wildcard nibble expands to a 16-way alternation over the unknown
// nibble; a full wildcard is "."; a jump is ".{min,max}"/".*"; an
// alternation is "(branch|branch|...)".
package hexlower

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avast/yarang/ast"
)

// Lower converts a hex string's tokens into a regular expression pattern.
// literalOnly reports whether every token was a concrete byte, meaning the
// caller may prefer to treat the result as a literal pattern instead of
// handing it to the regex engine.
func Lower(tokens []ast.HexToken) (pattern string, literalOnly bool) {
	var b strings.Builder
	literalOnly = true
	lower(&b, tokens, &literalOnly)
	return b.String(), literalOnly
}

func lower(b *strings.Builder, tokens []ast.HexToken, literalOnly *bool) {
	for _, tok := range tokens {
		switch t := tok.(type) {
		case ast.HexByte:
			b.WriteString(nibblesToString(hiNibble(t.Value), loNibble(t.Value)))
		case ast.HexHalfNibble:
			*literalOnly = false
			b.WriteByte('(')
			for i := 0; i < 0x10; i++ {
				if t.KnownHi {
					b.WriteString(nibblesToString(t.Known, byte(i)))
				} else {
					b.WriteString(nibblesToString(byte(i), t.Known))
				}
				if i < 0xF {
					b.WriteByte('|')
				}
			}
			b.WriteByte(')')
		case ast.HexWildcard:
			*literalOnly = false
			b.WriteByte('.')
		case ast.HexJump:
			*literalOnly = false
			lowerJump(b, t)
		case ast.HexAlt:
			*literalOnly = false
			b.WriteByte('(')
			for i, branch := range t.Branches {
				lower(b, branch, literalOnly)
				if i < len(t.Branches)-1 {
					b.WriteByte('|')
				}
			}
			b.WriteByte(')')
		default:
			panic(fmt.Sprintf("hexlower: unhandled hex token %T", tok))
		}
	}
}

func lowerJump(b *strings.Builder, j ast.HexJump) {
	if j.Min == nil && j.Max == nil {
		b.WriteString(".*")
		return
	}
	low, high := "0", ""
	if j.Min != nil {
		low = strconv.Itoa(*j.Min)
	}
	if j.Max != nil {
		high = strconv.Itoa(*j.Max)
	}
	b.WriteString(".{")
	if low == high {
		b.WriteString(low)
	} else {
		b.WriteString(low)
		b.WriteByte(',')
		b.WriteString(high)
	}
	b.WriteByte('}')
}

func hiNibble(v byte) byte { return v >> 4 }
func loNibble(v byte) byte { return v & 0x0F }

// nibblesToString mirrors nibbles_to_string: an alphanumeric byte value
// becomes its literal character, everything else becomes \xHH.
func nibblesToString(hi, lo byte) string {
	ch := hi<<4 | lo
	if isAlnumByte(ch) {
		return string(rune(ch))
	}
	return fmt.Sprintf(`\x%02x`, ch)
}

func isAlnumByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
