package parser

import (
	"testing"

	"github.com/avast/yarang/ast"
)

func TestParseRuleShape(t *testing.T) {
	src := `
rule ExampleRule : tag1 {
	meta:
		author = "me"
		score = 80
	strings:
		$a = "foo" nocase
		$b = { 4D 5A ?? ?? [2-4] (90 | 91) }
	condition:
		$a and not $b
}
`
	rs, err := Parse("t.yar", src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rs.Rules) != 1 {
		t.Fatalf("len(Rules) = %d, want 1", len(rs.Rules))
	}
	r := rs.Rules[0]
	if r.Name != "ExampleRule" {
		t.Errorf("Name = %q, want ExampleRule", r.Name)
	}
	if len(r.Meta) != 2 || r.Meta[0].Key != "author" || r.Meta[1].Key != "score" {
		t.Errorf("Meta = %+v", r.Meta)
	}
	if len(r.Strings) != 2 {
		t.Fatalf("len(Strings) = %d, want 2", len(r.Strings))
	}
	if !r.Strings[0].Modifiers.Nocase {
		t.Errorf("$a should be nocase")
	}
	hex, ok := r.Strings[1].Value.(ast.HexString)
	if !ok {
		t.Fatalf("$b value = %T, want ast.HexString", r.Strings[1].Value)
	}
	if len(hex.Tokens) != 5 {
		t.Fatalf("len(hex.Tokens) = %d, want 5", len(hex.Tokens))
	}
	if _, ok := hex.Tokens[4].(ast.HexAlt); !ok {
		t.Errorf("last hex token = %T, want ast.HexAlt", hex.Tokens[4])
	}
	and, ok := r.Condition.(ast.BinaryExpr)
	if !ok || and.Op != "and" {
		t.Fatalf("Condition = %+v", r.Condition)
	}
}

func TestParsePrivateRule(t *testing.T) {
	src := `private rule Helper { condition: true }`
	rs, err := Parse("t.yar", src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !rs.Rules[0].Private {
		t.Errorf("Private = false, want true")
	}
}

func TestParseConditionExpressions(t *testing.T) {
	tests := []struct {
		name string
		cond string
		want func(e ast.Expr) bool
	}{
		{
			"string_count_compare",
			`#a > 2`,
			func(e ast.Expr) bool {
				b, ok := e.(ast.BinaryExpr)
				if !ok || b.Op != ">" {
					return false
				}
				_, ok = b.Left.(ast.StringCount)
				return ok
			},
		},
		{
			"any_of_them",
			`any of them`,
			func(e ast.Expr) bool {
				of, ok := e.(ast.OfExpr)
				return ok && of.Count.Kind == ast.CountAny && of.Set.Them
			},
		},
		{
			"numeric_of_set",
			`2 of ($a, $b)`,
			func(e ast.Expr) bool {
				of, ok := e.(ast.OfExpr)
				return ok && of.Count.Kind == ast.CountExpr && len(of.Set.Patterns) == 2
			},
		},
		{
			"for_all_of_them",
			`for all of them : ( $ at 0 )`,
			func(e ast.Expr) bool {
				fo, ok := e.(ast.ForOfExpr)
				return ok && fo.Count.Kind == ast.CountAll
			},
		},
		{
			"for_in_range",
			`for any i in (0..10) : ( @a[i] > 0 )`,
			func(e ast.Expr) bool {
				fr, ok := e.(ast.ForInRangeExpr)
				return ok && fr.Var == "i"
			},
		},
		{
			"for_in_set",
			`for all i in (1,2,3) : ( i > 0 )`,
			func(e ast.Expr) bool {
				fs, ok := e.(ast.ForInSetExpr)
				return ok && len(fs.Ints) == 3
			},
		},
		{
			"string_in_range",
			`$a in (0..filesize)`,
			func(e ast.Expr) bool {
				ir, ok := e.(ast.InRangeExpr)
				if !ok {
					return false
				}
				_, ok = ir.High.(ast.Filesize)
				return ok
			},
		},
		{
			"int_func_call",
			`uint32be(0) == 0x47494638`,
			func(e ast.Expr) bool {
				b, ok := e.(ast.BinaryExpr)
				if !ok {
					return false
				}
				fc, ok := b.Left.(ast.FuncCall)
				return ok && fc.Name == "uint32be"
			},
		},
		{
			"mutex_regex",
			`cuckoo.sync.mutex(/Global\\Foo/i)`,
			func(e ast.Expr) bool {
				fc, ok := e.(ast.FuncCall)
				return ok && fc.IsRegexArg && fc.Name == "cuckoo.sync.mutex"
			},
		},
		{
			"arithmetic",
			`(1 + 2) * 3 % 4 == 9`,
			func(e ast.Expr) bool {
				b, ok := e.(ast.BinaryExpr)
				return ok && b.Op == "=="
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "rule R { strings: $a = \"x\" $b = \"y\" condition: " + tt.cond + " }"
			rs, err := Parse("t.yar", src)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.cond, err)
			}
			if !tt.want(rs.Rules[0].Condition) {
				t.Errorf("Parse(%q) condition = %#v, did not match predicate", tt.cond, rs.Rules[0].Condition)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`rule R { condition: `,
		`rule R { condition: 1 +`,
		`rule { condition: true }`,
	}
	for _, src := range tests {
		if _, err := Parse("t.yar", src); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", src)
		}
	}
}
