package compiler

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

func TestCompileAssemblesRuleProgram(t *testing.T) {
	rs := mustParse(t, `
rule has_lit {
	strings:
		$s = "abc"
	condition:
		$s
}
`)
	rp, err := Compile(rs)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if rp.PatternCount() != 1 {
		t.Fatalf("PatternCount() = %d, want 1", rp.PatternCount())
	}
	if len(rp.Rules) != 1 || rp.Rules[0].Name != "has_lit" {
		t.Fatalf("Rules = %+v, want one rule named has_lit", rp.Rules)
	}
	if rp.Rules[0].Visibility != Public {
		t.Errorf("Visibility = %v, want Public", rp.Rules[0].Visibility)
	}
	if rp.LiteralDB == nil {
		t.Error("LiteralDB is nil, want a database for the one literal pattern")
	}
	if rp.RegexDB != nil {
		t.Error("RegexDB is non-nil, want nil (no regex patterns)")
	}
}

func TestCompileEmptyGroupsSkipped(t *testing.T) {
	rs := mustParse(t, `rule a { condition: true }`)
	rp, err := Compile(rs)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if rp.RegexDB != nil || rp.LiteralDB != nil || rp.MutexDB != nil {
		t.Error("expected all three databases to be nil when every pattern group is empty")
	}
}

func TestCompilePrivateVisibility(t *testing.T) {
	rs := mustParse(t, `private rule helper { condition: true }`)
	rp, err := Compile(rs)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if rp.Rules[0].Visibility != Private {
		t.Errorf("Visibility = %v, want Private", rp.Rules[0].Visibility)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	rs := mustParse(t, `
rule r {
	strings:
		$s = "needle"
		$re = /n[ae]edle/
	condition:
		$s or $re
}
`)
	rp, err := Compile(rs)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	progData, err := rp.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	var regexData, literalData []byte
	if rp.RegexDB != nil {
		regexData, err = rp.RegexDB.Serialize()
		if err != nil {
			t.Fatalf("RegexDB.Serialize() error = %v", err)
		}
	}
	if rp.LiteralDB != nil {
		literalData, err = rp.LiteralDB.Serialize()
		if err != nil {
			t.Fatalf("LiteralDB.Serialize() error = %v", err)
		}
	}

	loaded, err := Load(progData, regexData, literalData, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.PatternCount() != rp.PatternCount() {
		t.Errorf("PatternCount() after load = %d, want %d", loaded.PatternCount(), rp.PatternCount())
	}
	if len(loaded.Rules) != len(rp.Rules) || loaded.Rules[0].Name != rp.Rules[0].Name {
		t.Errorf("Rules after load = %+v, want %+v", loaded.Rules, rp.Rules)
	}
}
