package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avast/yarang/ruleir"
)

// WriteArtifacts writes every compiler output spec.md §6 names into dir,
// deriving filenames from base (typically the rule file's name without
// its extension). A database file is omitted entirely when its group was
// empty, matching "A file is absent if its group is empty."
func (rp *RuleProgram) WriteArtifacts(dir, base string) error {
	if err := rp.writePatternsTxt(filepath.Join(dir, "patterns.txt")); err != nil {
		return err
	}
	if err := rp.writeRulesDef(filepath.Join(dir, "rules.def")); err != nil {
		return err
	}
	if err := writeDB(filepath.Join(dir, base+".program"), rp.Serialize); err != nil {
		return err
	}
	if rp.RegexDB != nil {
		if err := writeDB(filepath.Join(dir, base+".regex.db"), rp.RegexDB.Serialize); err != nil {
			return err
		}
	}
	if rp.LiteralDB != nil {
		if err := writeDB(filepath.Join(dir, base+".literal.db"), rp.LiteralDB.Serialize); err != nil {
			return err
		}
	}
	if rp.MutexDB != nil {
		if err := writeDB(filepath.Join(dir, base+".mutex.db"), rp.MutexDB.Serialize); err != nil {
			return err
		}
	}
	return nil
}

func writeDB(path string, serialize func() ([]byte, error)) error {
	data, err := serialize()
	if err != nil {
		return fmt.Errorf("compiler: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("compiler: write %s: %w", path, err)
	}
	return nil
}

// writePatternsTxt emits one line per pattern: "<id> <rule>:<identifier>
// <kind> <expression>", kind being R for a regex-classified pattern, L
// for a literal-classified one, M for a mutex pattern. Regex and literal
// ids share the single numbering sequence of spec.md §6 (regex first);
// mutex ids restart from 0 in their own file section.
func (rp *RuleProgram) writePatternsTxt(path string) error {
	var b strings.Builder
	for id, p := range rp.Patterns {
		kind := "L"
		if id < rp.RegexCount {
			kind = "R"
		}
		fmt.Fprintf(&b, "%d %s:%s %s %s\n", id, p.OriginRule, p.OriginIdentifier, kind, p.Expression)
	}
	for id, m := range rp.Mutexes {
		fmt.Fprintf(&b, "%d %s:%s M %s\n", id, m.OriginRule, m.Regex, m.Regex)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeRulesDef dumps the rule table and each rule's lowered IR tree in a
// human-readable textual form — the "textual deliverable" spec.md §6 asks
// for in place of the original's generated C++ source text.
func (rp *RuleProgram) writeRulesDef(path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "PATTERN_COUNT %d\n", rp.PatternCount())
	fmt.Fprintf(&b, "MUTEX_PATTERN_COUNT %d\n\n", rp.MutexCount)

	for _, rm := range rp.Rules {
		fmt.Fprintf(&b, "rule %s #%d %s\n", rm.Name, rm.GlobalIndex, rm.Visibility)
		printNode(&b, rp.Procedures[rm.GlobalIndex], 1)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

// printNode renders a ruleir node tree with one construct per line,
// children indented under their parent.
func printNode(b *strings.Builder, n any, depth int) {
	indent(b, depth)
	switch v := n.(type) {
	case ruleir.BoolConst:
		fmt.Fprintf(b, "bool %v\n", v.Value)
	case ruleir.And:
		b.WriteString("and\n")
		printNode(b, v.Left, depth+1)
		printNode(b, v.Right, depth+1)
	case ruleir.Or:
		b.WriteString("or\n")
		printNode(b, v.Left, depth+1)
		printNode(b, v.Right, depth+1)
	case ruleir.Not:
		b.WriteString("not\n")
		printNode(b, v.Inner, depth+1)
	case ruleir.Cmp:
		fmt.Fprintf(b, "cmp %s signed=%v\n", v.Op, v.Signed)
		printNode(b, v.Left, depth+1)
		printNode(b, v.Right, depth+1)
	case ruleir.MatchPresent:
		fmt.Fprintf(b, "match_present %s\n", idRefStr(v.Ref))
	case ruleir.MutexPresent:
		fmt.Fprintf(b, "mutex_present %d\n", v.ID)
	case ruleir.AtTest:
		fmt.Fprintf(b, "at_test %s\n", idRefStr(v.Ref))
		printNode(b, v.Pos, depth+1)
	case ruleir.InRangeTest:
		fmt.Fprintf(b, "in_range_test %s\n", idRefStr(v.Ref))
		printNode(b, v.Low, depth+1)
		printNode(b, v.High, depth+1)
	case ruleir.Of:
		fmt.Fprintf(b, "of ids=%v\n", v.IDs)
		printNode(b, v.K, depth+1)
	case ruleir.ForOf:
		fmt.Fprintf(b, "for_of ids=%v\n", v.IDs)
		printNode(b, v.K, depth+1)
		printNode(b, v.Body, depth+1)
	case ruleir.ForInSet:
		fmt.Fprintf(b, "for_in_set depth=%d\n", v.Depth)
		printNode(b, v.K, depth+1)
		for _, val := range v.Values {
			printNode(b, val, depth+1)
		}
		printNode(b, v.Body, depth+1)
	case ruleir.ForInRange:
		fmt.Fprintf(b, "for_in_range depth=%d\n", v.Depth)
		printNode(b, v.K, depth+1)
		printNode(b, v.Low, depth+1)
		printNode(b, v.High, depth+1)
		printNode(b, v.Body, depth+1)
	case ruleir.EvaluateRule:
		fmt.Fprintf(b, "evaluate_rule #%d\n", v.RuleIndex)
	case ruleir.IntConst:
		fmt.Fprintf(b, "int %d\n", v.Value)
	case ruleir.Arith:
		fmt.Fprintf(b, "arith %s\n", v.Op)
		printNode(b, v.Left, depth+1)
		printNode(b, v.Right, depth+1)
	case ruleir.Filesize:
		b.WriteString("filesize\n")
	case ruleir.RangeSpan:
		b.WriteString("range_span\n")
	case ruleir.ReadInt:
		fmt.Fprintf(b, "read_int width=%d signed=%v be=%v\n", v.Width, v.Signed, v.BigEndian)
		printNode(b, v.Offset, depth+1)
	case ruleir.MatchCount:
		fmt.Fprintf(b, "match_count %s\n", idRefStr(v.Ref))
	case ruleir.MatchOffset:
		fmt.Fprintf(b, "match_offset %s\n", idRefStr(v.Ref))
		printNode(b, v.Index, depth+1)
	case ruleir.MatchLength:
		fmt.Fprintf(b, "match_length %s\n", idRefStr(v.Ref))
		printNode(b, v.Index, depth+1)
	case ruleir.MutexCount:
		fmt.Fprintf(b, "mutex_count %d\n", v.ID)
	case ruleir.LoopIntVar:
		fmt.Fprintf(b, "loop_int_var depth=%d\n", v.Depth)
	default:
		fmt.Fprintf(b, "?%T\n", v)
	}
}

func idRefStr(ref ruleir.IDRef) string {
	if ref.Current {
		return "$"
	}
	return fmt.Sprintf("%d", ref.ID)
}
