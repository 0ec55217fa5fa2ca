package hexlower

import (
	"testing"

	"github.com/avast/yarang/ast"
)

func intp(n int) *int { return &n }

func TestLower(t *testing.T) {
	tests := []struct {
		name        string
		tokens      []ast.HexToken
		wantPattern string
		wantLiteral bool
	}{
		{
			"plain_bytes_alnum",
			[]ast.HexToken{ast.HexByte{Value: 'a'}, ast.HexByte{Value: 'Z'}, ast.HexByte{Value: '0'}},
			"aZ0",
			true,
		},
		{
			"plain_bytes_nonprintable",
			[]ast.HexToken{ast.HexByte{Value: 0x00}, ast.HexByte{Value: 0xFF}},
			`\x00\xff`,
			true,
		},
		{
			"full_wildcard",
			[]ast.HexToken{ast.HexByte{Value: 'A'}, ast.HexWildcard{}, ast.HexByte{Value: 'B'}},
			`A.B`,
			false,
		},
		{
			"half_nibble_high_known",
			[]ast.HexToken{ast.HexHalfNibble{Known: 0x4, KnownHi: true}},
			`(\x40|A|B|C|D|E|F|G|H|I|J|K|L|M|N|O)`,
			false,
		},
		{
			"jump_bounded",
			[]ast.HexToken{ast.HexByte{Value: 'A'}, ast.HexJump{Min: intp(2), Max: intp(4)}, ast.HexByte{Value: 'B'}},
			"A.{2,4}B",
			false,
		},
		{
			"jump_exact",
			[]ast.HexToken{ast.HexJump{Min: intp(3), Max: intp(3)}},
			".{3}",
			false,
		},
		{
			"jump_unbounded",
			[]ast.HexToken{ast.HexJump{}},
			".*",
			false,
		},
		{
			"jump_max_only",
			[]ast.HexToken{ast.HexJump{Max: intp(4)}},
			".{0,4}",
			false,
		},
		{
			"alternation",
			[]ast.HexToken{ast.HexAlt{Branches: [][]ast.HexToken{
				{ast.HexByte{Value: 'A'}, ast.HexByte{Value: 'B'}},
				{ast.HexByte{Value: 'C'}, ast.HexWildcard{}},
			}}},
			"(AB|C.)",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, literal := Lower(tt.tokens)
			if pattern != tt.wantPattern {
				t.Errorf("Lower() pattern = %q, want %q", pattern, tt.wantPattern)
			}
			if literal != tt.wantLiteral {
				t.Errorf("Lower() literalOnly = %v, want %v", literal, tt.wantLiteral)
			}
		})
	}
}

func FuzzLower(f *testing.F) {
	f.Add(byte('A'), byte('B'))
	f.Fuzz(func(t *testing.T, a, b byte) {
		Lower([]ast.HexToken{ast.HexByte{Value: a}, ast.HexHalfNibble{Known: b & 0xF, KnownHi: true}})
	})
}
