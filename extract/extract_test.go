package extract

import (
	"testing"

	"github.com/avast/yarang/ast"
	"github.com/avast/yarang/parser"
)

func mustParse(t *testing.T, src string) *ast.RuleSet {
	t.Helper()
	rs, err := parser.Parse("t.yar", src)
	if err != nil {
		t.Fatalf("parser.Parse() error = %v", err)
	}
	return rs
}

func TestExtractShiftInvariant(t *testing.T) {
	rs := mustParse(t, `
rule has_regex {
	strings:
		$r = /foo[0-9]+/
		$l = "bar"
	condition:
		$r and $l
}
`)
	tables, err := Extract(rs)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	R := len(tables.RegexPatterns)
	if R != 1 {
		t.Fatalf("len(RegexPatterns) = %d, want 1", R)
	}
	ri := tables.Rules[0]
	for _, id := range ri.RegexIDs["$r"] {
		if id >= R {
			t.Errorf("regex id %d not < R=%d", id, R)
		}
	}
	for _, id := range ri.LiteralIDs["$l"] {
		if id < R {
			t.Errorf("literal id %d not shifted past R=%d", id, R)
		}
	}
}

func TestExtractDedupIdempotence(t *testing.T) {
	src := `
rule a { strings: $s = "dup" condition: $s }
rule b { strings: $s = "dup" condition: $s }
`
	rs1 := mustParse(t, src)
	rs2 := mustParse(t, src)
	t1, err := Extract(rs1)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	t2, err := Extract(rs2)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(t1.LiteralPatterns) != 1 {
		t.Fatalf("len(LiteralPatterns) = %d, want 1 (deduped)", len(t1.LiteralPatterns))
	}
	if len(t1.LiteralPatterns) != len(t2.LiteralPatterns) || t1.LiteralPatterns[0].Expression != t2.LiteralPatterns[0].Expression {
		t.Errorf("extraction not idempotent: %+v vs %+v", t1.LiteralPatterns, t2.LiteralPatterns)
	}
}

func TestExtractMutex(t *testing.T) {
	rs := mustParse(t, `rule m { condition: cuckoo.sync.mutex(/Global\\Foo/i) }`)
	tables, err := Extract(rs)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(tables.MutexPatterns) != 1 {
		t.Fatalf("len(MutexPatterns) = %d, want 1", len(tables.MutexPatterns))
	}
}

func TestExtractNocaseFoldsToRegex(t *testing.T) {
	rs := mustParse(t, `rule n { strings: $s = "Foo" nocase condition: $s }`)
	tables, err := Extract(rs)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(tables.RegexPatterns) != 1 {
		t.Fatalf("len(RegexPatterns) = %d, want 1", len(tables.RegexPatterns))
	}
	if len(tables.LiteralPatterns) != 0 {
		t.Fatalf("len(LiteralPatterns) = %d, want 0", len(tables.LiteralPatterns))
	}
}

func TestExtractBase64Expansion(t *testing.T) {
	rs := mustParse(t, `rule b64 { strings: $s = "hello world" base64 condition: $s }`)
	tables, err := Extract(rs)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(tables.LiteralPatterns) != 3 {
		t.Fatalf("len(LiteralPatterns) = %d, want 3 base64 offset variants", len(tables.LiteralPatterns))
	}
	ri := tables.Rules[0]
	if len(ri.IDsOf("$s")) != 3 {
		t.Errorf("IDsOf($s) = %v, want 3 ids", ri.IDsOf("$s"))
	}
}

func TestExtractHexLiteralVsRegex(t *testing.T) {
	rs := mustParse(t, `
rule h {
	strings:
		$lit = { 41 42 43 }
		$re = { 41 ?? 43 }
	condition:
		$lit and $re
}
`)
	tables, err := Extract(rs)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(tables.LiteralPatterns) != 1 || tables.LiteralPatterns[0].Expression != "ABC" {
		t.Fatalf("LiteralPatterns = %+v, want [ABC]", tables.LiteralPatterns)
	}
	if len(tables.RegexPatterns) != 1 || tables.RegexPatterns[0].Expression != "A.C" {
		t.Fatalf("RegexPatterns = %+v, want [A.C]", tables.RegexPatterns)
	}
}
