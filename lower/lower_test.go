package lower

import (
	"testing"

	"github.com/avast/yarang/ast"
	"github.com/avast/yarang/extract"
	"github.com/avast/yarang/parser"
	"github.com/avast/yarang/ruleir"
)

func mustParse(t *testing.T, src string) *ast.RuleSet {
	t.Helper()
	rs, err := parser.Parse("t.yar", src)
	if err != nil {
		t.Fatalf("parser.Parse() error = %v", err)
	}
	return rs
}

func mustLower(t *testing.T, src string) *Program {
	t.Helper()
	rs := mustParse(t, src)
	tables, err := extract.Extract(rs)
	if err != nil {
		t.Fatalf("extract.Extract() error = %v", err)
	}
	prog, err := Lower(tables)
	if err != nil {
		t.Fatalf("Lower() error = %v", err)
	}
	return prog
}

func TestLowerBoolConst(t *testing.T) {
	prog := mustLower(t, `rule a { condition: true }`)
	if _, ok := prog.Procedures[0].(ruleir.BoolConst); !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.BoolConst", prog.Procedures[0])
	}
}

func TestLowerStringPresence(t *testing.T) {
	prog := mustLower(t, `rule a { strings: $s01 = "abc" condition: $s01 }`)
	mp, ok := prog.Procedures[0].(ruleir.MatchPresent)
	if !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.MatchPresent", prog.Procedures[0])
	}
	if mp.Ref.ID != 0 {
		t.Errorf("Ref.ID = %d, want 0 (no regexes so R=0)", mp.Ref.ID)
	}
}

func TestLowerNeqIsNotEq(t *testing.T) {
	// original_source's NeqExpression visitor emits "==" for "!="; yarang
	// must not carry that bug forward.
	prog := mustLower(t, `rule a { condition: 1 != 2 }`)
	cmp, ok := prog.Procedures[0].(ruleir.Cmp)
	if !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.Cmp", prog.Procedures[0])
	}
	if cmp.Op != "!=" {
		t.Errorf("Op = %q, want \"!=\"", cmp.Op)
	}
}

func TestLowerOfAny(t *testing.T) {
	prog := mustLower(t, `
rule a {
	strings:
		$a = "a"
		$b = "b"
		$c = "c"
	condition:
		any of them
}
`)
	of, ok := prog.Procedures[0].(ruleir.Of)
	if !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.Of", prog.Procedures[0])
	}
	if len(of.IDs) != 3 {
		t.Fatalf("len(IDs) = %d, want 3", len(of.IDs))
	}
	if k, ok := of.K.(ruleir.IntConst); !ok || k.Value != 1 {
		t.Errorf("K = %#v, want IntConst{1}", of.K)
	}
}

func TestLowerForAllInRangeUsesRangeSpan(t *testing.T) {
	prog := mustLower(t, `rule a { condition: for all i in (0..filesize) : ( i > 0 ) }`)
	fr, ok := prog.Procedures[0].(ruleir.ForInRange)
	if !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.ForInRange", prog.Procedures[0])
	}
	if _, ok := fr.K.(ruleir.RangeSpan); !ok {
		t.Errorf("K = %#v, want ruleir.RangeSpan{}", fr.K)
	}
}

func TestLowerOfKOverEmptySetFloorsToOne(t *testing.T) {
	// "them" over a rule with no declared strings is the one legal way to
	// reach an empty id set (a wildcard that matches nothing is a
	// compile error instead, see resolveStringSet). clamp(k, 0) must
	// floor explicit/any K to 1, never collapse it to 0 — 0 would make
	// "2 of them" vacuously true over zero strings.
	prog := mustLower(t, `rule a { condition: 2 of them }`)
	of, ok := prog.Procedures[0].(ruleir.Of)
	if !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.Of", prog.Procedures[0])
	}
	if len(of.IDs) != 0 {
		t.Fatalf("len(IDs) = %d, want 0 (no declared strings)", len(of.IDs))
	}
	if k, ok := of.K.(ruleir.IntConst); !ok || k.Value != 1 {
		t.Errorf("K = %#v, want IntConst{1} (floored, not collapsed to 0)", of.K)
	}
}

func TestLowerCrossRuleCycleDetected(t *testing.T) {
	rs := mustParse(t, `
rule a { condition: b }
rule b { condition: a }
`)
	tables, err := extract.Extract(rs)
	if err != nil {
		t.Fatalf("extract.Extract() error = %v", err)
	}
	if _, err := Lower(tables); err == nil {
		t.Fatal("Lower() error = nil, want cycle diagnostic")
	}
}

func TestLowerPrivateRuleReference(t *testing.T) {
	prog := mustLower(t, `
private rule helper { condition: true }
rule main { condition: helper }
`)
	ev, ok := prog.Procedures[1].(ruleir.EvaluateRule)
	if !ok {
		t.Fatalf("Procedures[1] = %T, want ruleir.EvaluateRule", prog.Procedures[1])
	}
	if ev.RuleIndex != 0 {
		t.Errorf("RuleIndex = %d, want 0", ev.RuleIndex)
	}
}

func TestLowerMutexPresent(t *testing.T) {
	prog := mustLower(t, `rule a { condition: cuckoo.sync.mutex(/Global\\Foo/) }`)
	if _, ok := prog.Procedures[0].(ruleir.MutexPresent); !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.MutexPresent", prog.Procedures[0])
	}
}

func TestLowerIntFuncCall(t *testing.T) {
	prog := mustLower(t, `rule a { condition: uint16be(0x10) == 0x160 }`)
	cmp, ok := prog.Procedures[0].(ruleir.Cmp)
	if !ok {
		t.Fatalf("Procedures[0] = %T, want ruleir.Cmp", prog.Procedures[0])
	}
	ri, ok := cmp.Left.(ruleir.ReadInt)
	if !ok {
		t.Fatalf("Left = %T, want ruleir.ReadInt", cmp.Left)
	}
	if ri.Width != 2 || !ri.BigEndian || ri.Signed {
		t.Errorf("ReadInt = %+v, want {Width:2 Signed:false BigEndian:true}", ri)
	}
}
