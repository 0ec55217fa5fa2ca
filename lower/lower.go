// Package lower implements the condition lowerer (component 4.E): it turns
// each rule's ast.Expr condition into a ruleir tree, a closed-sum-type
// predicate over a ScanContext.
//
// Grounded on original_source's codegen.hpp (the Codegen visitor): same
// node-for-node dispatch, the same "_loop_vars" positional-depth scope
// stack for nested for-loops, the same of/for count clamp (max(1, min(n,
// K))), and the same identifier-resolution order (loop variable, then
// rule, then external variable). Retargeted from "emit C++ source text"
// to "build a ruleir.BoolNode tree", per spec.md §9's preference for the IR
// form over codegen.
package lower

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avast/yarang/ast"
	"github.com/avast/yarang/extract"
	"github.com/avast/yarang/ruleir"
)

// LoweringError reports a condition-lowering failure: an identifier that
// resolves to neither a loop variable, a rule name nor a known string, or
// a cycle in the rule reference graph.
type LoweringError struct {
	Rule string
	Msg  string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("lower: rule %s: %s", e.Rule, e.Msg)
}

// Program is the full set of lowered per-rule procedures, keyed by the
// rule's global index (matching extract.RuleInfo.GlobalIndex).
type Program struct {
	Procedures []ruleir.BoolNode
}

// lowerer carries the state shared across every rule's lowering: the
// extraction tables, a name->index lookup for cross-rule references, and
// the memoization/cycle-detection bookkeeping codegen.hpp does with a
// plain recursive visit (there, C++ declaration order made cycles a
// non-issue the original never actually guarded against; spec.md's open
// question asks for a real answer here, so in-progress tracking is added).
type lowerer struct {
	tables      *extract.Tables
	ruleByName  map[string]*extract.RuleInfo
	indexByName map[string]int
	procedures  map[string]ruleir.BoolNode
	inProgress  map[string]bool
	stack       []string
}

// Lower lowers every rule in tables and returns the per-rule procedures
// indexed by extract.RuleInfo.GlobalIndex.
func Lower(tables *extract.Tables) (*Program, error) {
	l := &lowerer{
		tables:      tables,
		ruleByName:  make(map[string]*extract.RuleInfo),
		indexByName: make(map[string]int),
		procedures:  make(map[string]ruleir.BoolNode),
		inProgress:  make(map[string]bool),
	}
	for _, ri := range tables.Rules {
		l.ruleByName[ri.Rule.Name] = ri
		l.indexByName[ri.Rule.Name] = ri.GlobalIndex
	}

	procs := make([]ruleir.BoolNode, len(tables.Rules))
	for _, ri := range tables.Rules {
		node, err := l.lowerRule(ri.Rule.Name)
		if err != nil {
			return nil, err
		}
		procs[ri.GlobalIndex] = node
	}
	return &Program{Procedures: procs}, nil
}

func (l *lowerer) lowerRule(name string) (ruleir.BoolNode, error) {
	if node, ok := l.procedures[name]; ok {
		return node, nil
	}
	if l.inProgress[name] {
		return nil, &LoweringError{Rule: name, Msg: fmt.Sprintf("cycle in rule references: %s -> %s", strings.Join(l.stack, " -> "), name)}
	}
	ri, ok := l.ruleByName[name]
	if !ok {
		return nil, &LoweringError{Rule: name, Msg: "reference to unknown rule"}
	}

	l.inProgress[name] = true
	l.stack = append(l.stack, name)
	c := &condLowerer{l: l, ri: ri}
	node, err := c.lowerBool(ri.Rule.Condition)
	l.stack = l.stack[:len(l.stack)-1]
	delete(l.inProgress, name)
	if err != nil {
		return nil, err
	}
	l.procedures[name] = node
	return node, nil
}

// condLowerer lowers one rule's condition. varStack holds the names bound
// by enclosing for-in-set/for-in-range loops in push order; a name's
// position in varStack is its positional depth, fixed here and read back
// by ruleir.LoopIntVar at evaluation time.
type condLowerer struct {
	l        *lowerer
	ri       *extract.RuleInfo
	varStack []string
}

func (c *condLowerer) errf(format string, args ...any) error {
	return &LoweringError{Rule: c.ri.Rule.Name, Msg: fmt.Sprintf(format, args...)}
}

// ---- boolean-valued lowering ----

func (c *condLowerer) lowerBool(e ast.Expr) (ruleir.BoolNode, error) {
	switch n := e.(type) {
	case ast.BoolLit:
		return ruleir.BoolConst{Value: n.Value}, nil

	case ast.IntLit:
		return ruleir.BoolConst{Value: n.Value != 0}, nil

	case ast.ParenExpr:
		return c.lowerBool(n.Inner)

	case ast.NotExpr:
		inner, err := c.lowerBool(n.Inner)
		if err != nil {
			return nil, err
		}
		return ruleir.Not{Inner: inner}, nil

	case ast.BinaryExpr:
		return c.lowerBinaryBool(n)

	case ast.StringRef:
		ids, err := c.resolveIDs(n.Name)
		if err != nil {
			return nil, err
		}
		return orPresent(ids), nil

	case ast.AtExpr:
		pos, err := c.lowerInt(n.Pos)
		if err != nil {
			return nil, err
		}
		ids, err := c.resolveIDs(n.Name)
		if err != nil {
			return nil, err
		}
		var node ruleir.BoolNode = ruleir.BoolConst{Value: false}
		for i, id := range ids {
			test := ruleir.AtTest{Ref: id, Pos: pos}
			if i == 0 {
				node = test
			} else {
				node = ruleir.Or{Left: node, Right: test}
			}
		}
		return node, nil

	case ast.InRangeExpr:
		low, err := c.lowerInt(n.Low)
		if err != nil {
			return nil, err
		}
		high, err := c.lowerInt(n.High)
		if err != nil {
			return nil, err
		}
		ids, err := c.resolveIDs(n.Name)
		if err != nil {
			return nil, err
		}
		var node ruleir.BoolNode = ruleir.BoolConst{Value: false}
		for i, id := range ids {
			test := ruleir.InRangeTest{Ref: id, Low: low, High: high}
			if i == 0 {
				node = test
			} else {
				node = ruleir.Or{Left: node, Right: test}
			}
		}
		return node, nil

	case ast.FuncCall:
		if n.IsRegexArg && n.Name == "cuckoo.sync.mutex" {
			id, ok := c.ri.MutexIDs[n.RegexArg]
			if !ok {
				return nil, c.errf("cuckoo.sync.mutex(/%s/): mutex pattern not recorded during extraction", n.RegexArg)
			}
			return ruleir.MutexPresent{ID: id}, nil
		}
		// Any other function call used directly in boolean position is
		// truthy on a nonzero integer result, same as a bare IntLit.
		iv, err := c.lowerInt(n)
		if err != nil {
			return nil, err
		}
		return ruleir.Cmp{Op: "!=", Left: iv, Right: ruleir.IntConst{Value: 0}}, nil

	case ast.OfExpr:
		ids, err := c.resolveStringSet(n.Set)
		if err != nil {
			return nil, err
		}
		k, err := c.lowerCount(n.Count, len(ids))
		if err != nil {
			return nil, err
		}
		return ruleir.Of{K: k, IDs: ids}, nil

	case ast.ForOfExpr:
		ids, err := c.resolveStringSet(n.Set)
		if err != nil {
			return nil, err
		}
		k, err := c.lowerCount(n.Count, len(ids))
		if err != nil {
			return nil, err
		}
		body, err := c.lowerBool(n.Body)
		if err != nil {
			return nil, err
		}
		return ruleir.ForOf{K: k, IDs: ids, Body: body}, nil

	case ast.ForInSetExpr:
		values := make([]ruleir.IntNode, len(n.Ints))
		for i, e := range n.Ints {
			v, err := c.lowerInt(e)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		k, err := c.lowerCount(n.Count, len(values))
		if err != nil {
			return nil, err
		}
		depth := len(c.varStack)
		c.varStack = append(c.varStack, n.Var)
		body, err := c.lowerBool(n.Body)
		c.varStack = c.varStack[:len(c.varStack)-1]
		if err != nil {
			return nil, err
		}
		return ruleir.ForInSet{K: k, Values: values, Depth: depth, Body: body}, nil

	case ast.ForInRangeExpr:
		low, err := c.lowerInt(n.Low)
		if err != nil {
			return nil, err
		}
		high, err := c.lowerInt(n.High)
		if err != nil {
			return nil, err
		}
		// The count quantifier for a range loop has no statically known
		// set size; "all" and numeric K clamp against the loop's actual
		// span at evaluation time instead of at lowering time.
		k, err := c.lowerRangeCount(n.Count)
		if err != nil {
			return nil, err
		}
		depth := len(c.varStack)
		c.varStack = append(c.varStack, n.Var)
		body, err := c.lowerBool(n.Body)
		c.varStack = c.varStack[:len(c.varStack)-1]
		if err != nil {
			return nil, err
		}
		return ruleir.ForInRange{K: k, Low: low, High: high, Depth: depth, Body: body}, nil

	case ast.Ident:
		return c.resolveIdentBool(n.Name)

	case ast.RuleRef:
		return c.lowerRuleReference(n.Name)

	default:
		return nil, c.errf("unsupported boolean expression %T", e)
	}
}

func (c *condLowerer) lowerBinaryBool(n ast.BinaryExpr) (ruleir.BoolNode, error) {
	switch n.Op {
	case "and":
		left, err := c.lowerBool(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerBool(n.Right)
		if err != nil {
			return nil, err
		}
		return ruleir.And{Left: left, Right: right}, nil
	case "or":
		left, err := c.lowerBool(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerBool(n.Right)
		if err != nil {
			return nil, err
		}
		return ruleir.Or{Left: left, Right: right}, nil
	case "==", "!=", "<", "<=", ">", ">=":
		left, err := c.lowerInt(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerInt(n.Right)
		if err != nil {
			return nil, err
		}
		return ruleir.Cmp{Op: n.Op, Left: left, Right: right, Signed: isSignedOperand(left) || isSignedOperand(right)}, nil
	default:
		return nil, c.errf("operator %q used in boolean position", n.Op)
	}
}

// isSignedOperand reports whether n is a direct signed integer read; per
// spec.md §4.E, "the emitter selects the comparison type based on the
// read's signedness" — matched only at the comparison's immediate
// operands, same depth codegen.hpp's own (untyped) emission implicitly
// relied on since C++ did the promotion for it.
func isSignedOperand(n ruleir.IntNode) bool {
	r, ok := n.(ruleir.ReadInt)
	return ok && r.Signed
}

// resolveIdentBool resolves a bare identifier used in boolean position.
// Loop variables are always integer-valued in this grammar, so a bare
// boolean identifier can only be a rule reference.
func (c *condLowerer) resolveIdentBool(name string) (ruleir.BoolNode, error) {
	for _, v := range c.varStack {
		if v == name {
			return nil, c.errf("%q is a loop integer variable, not usable in boolean position", name)
		}
	}
	if _, ok := c.l.ruleByName[name]; ok {
		return c.lowerRuleReference(name)
	}
	return nil, c.errf("unresolved identifier %q (not a loop variable or rule name; external variables are not supported)", name)
}

// lowerRuleReference lowers a by-name reference to another rule. It still
// recurses through l.lowerRule to force the target's own lowering (so
// unknown-rule and cycle errors surface at compile time), but the node
// this rule's procedure embeds is ruleir.EvaluateRule, not the target's
// tree: spec.md §4.G requires cross-rule references to route through the
// runtime's memoizing evaluate_rule dispatcher rather than duplicating
// the target's procedure inline, which is the only way "each rule
// procedure is invoked at most once per scan" (§8) holds when two
// different rules both reference a third.
func (c *condLowerer) lowerRuleReference(name string) (ruleir.BoolNode, error) {
	if _, err := c.l.lowerRule(name); err != nil {
		return nil, err
	}
	return ruleir.EvaluateRule{RuleIndex: c.l.indexByName[name]}, nil
}

// ---- integer-valued lowering ----

var intFuncRe = regexp.MustCompile(`^(u?int)(8|16|32)(be)?$`)

func (c *condLowerer) lowerInt(e ast.Expr) (ruleir.IntNode, error) {
	switch n := e.(type) {
	case ast.IntLit:
		return ruleir.IntConst{Value: uint64(n.Value)}, nil

	case ast.Filesize:
		return ruleir.Filesize{}, nil

	case ast.ParenExpr:
		return c.lowerInt(n.Inner)

	case ast.BinaryExpr:
		left, err := c.lowerInt(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lowerInt(n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "+", "-", "*", "%", "&", "^":
			return ruleir.Arith{Op: n.Op, Left: left, Right: right}, nil
		default:
			return nil, c.errf("operator %q used in integer position", n.Op)
		}

	case ast.StringCount:
		ids, err := c.resolveIDs(n.Name)
		if err != nil {
			return nil, err
		}
		return sumCounts(ids), nil

	case ast.StringOffset:
		idx, err := c.indexMinusOne(n.Index)
		if err != nil {
			return nil, err
		}
		if n.Name == "@" {
			return ruleir.MatchOffset{Ref: ruleir.IDRef{Current: true}, Index: idx}, nil
		}
		ids, err := c.resolveIDs(n.Name)
		if err != nil {
			return nil, err
		}
		return ruleir.MatchOffset{Ref: ids[0], Index: idx}, nil

	case ast.StringLength:
		idx, err := c.indexMinusOne(n.Index)
		if err != nil {
			return nil, err
		}
		if n.Name == "!" {
			return ruleir.MatchLength{Ref: ruleir.IDRef{Current: true}, Index: idx}, nil
		}
		ids, err := c.resolveIDs(n.Name)
		if err != nil {
			return nil, err
		}
		return ruleir.MatchLength{Ref: ids[0], Index: idx}, nil

	case ast.FuncCall:
		return c.lowerIntFuncCall(n)

	case ast.Ident:
		return c.resolveIdentInt(n.Name)

	default:
		return nil, c.errf("unsupported integer expression %T", e)
	}
}

// indexMinusOne lowers the optional 1-based bracket index of @foo[i]/!foo[i]
// into the 0-based form the IR and the match tables use; a nil index
// (no brackets) defaults to offset 0, per spec.md's table, not to -1.
func (c *condLowerer) indexMinusOne(idx ast.Expr) (ruleir.IntNode, error) {
	if idx == nil {
		return ruleir.IntConst{Value: 0}, nil
	}
	v, err := c.lowerInt(idx)
	if err != nil {
		return nil, err
	}
	return ruleir.Arith{Op: "-", Left: v, Right: ruleir.IntConst{Value: 1}}, nil
}

func (c *condLowerer) lowerIntFuncCall(fc ast.FuncCall) (ruleir.IntNode, error) {
	m := intFuncRe.FindStringSubmatch(fc.Name)
	if m == nil {
		return nil, c.errf("unknown integer function %q", fc.Name)
	}
	if len(fc.Args) != 1 {
		return nil, c.errf("%s: expected exactly one argument", fc.Name)
	}
	offset, err := c.lowerInt(fc.Args[0])
	if err != nil {
		return nil, err
	}
	width := map[string]int{"8": 1, "16": 2, "32": 4}[m[2]]
	return ruleir.ReadInt{
		Width:     width,
		Signed:    m[1] == "int",
		BigEndian: m[3] == "be",
		Offset:    offset,
	}, nil
}

func (c *condLowerer) resolveIdentInt(name string) (ruleir.IntNode, error) {
	for depth, v := range c.varStack {
		if v == name {
			return ruleir.LoopIntVar{Depth: depth}, nil
		}
	}
	return nil, c.errf("unresolved identifier %q in integer position (not a loop variable)", name)
}

// ---- shared helpers ----

// resolveIDs resolves a "$foo" string reference to its global pattern
// ids, or, for the "$" current-string form, a single IDRef marker node
// handled specially by callers that need a *ruleir.IDRef rather than a
// raw pattern id.
func (c *condLowerer) resolveIDs(name string) ([]ruleir.IDRef, error) {
	if name == "$" {
		return []ruleir.IDRef{{Current: true}}, nil
	}
	ids := c.ri.IDsOf(name)
	if ids == nil {
		return nil, c.errf("unresolved string identifier %q", name)
	}
	refs := make([]ruleir.IDRef, len(ids))
	for i, id := range ids {
		refs[i] = ruleir.IDRef{ID: id}
	}
	return refs, nil
}

func orPresent(ids []ruleir.IDRef) ruleir.BoolNode {
	var node ruleir.BoolNode
	for i, id := range ids {
		p := ruleir.MatchPresent{Ref: id}
		if i == 0 {
			node = p
		} else {
			node = ruleir.Or{Left: node, Right: p}
		}
	}
	return node
}

func sumCounts(ids []ruleir.IDRef) ruleir.IntNode {
	var node ruleir.IntNode
	for i, id := range ids {
		mc := ruleir.MatchCount{Ref: id}
		if i == 0 {
			node = mc
		} else {
			node = ruleir.Arith{Op: "+", Left: node, Right: mc}
		}
	}
	return node
}

// resolveStringSet expands a StringSet ("them", an explicit list, or
// wildcard identifiers) into the flat, declaration-ordered list of global
// pattern ids it denotes.
func (c *condLowerer) resolveStringSet(set ast.StringSet) ([]int, error) {
	var ids []int
	if set.Them {
		for _, sd := range c.ri.Rule.Strings {
			ids = append(ids, c.ri.IDsOf(sd.Name)...)
		}
		return ids, nil
	}
	for _, pat := range set.Patterns {
		if strings.HasSuffix(pat, "*") {
			prefix := strings.TrimSuffix(pat, "*")
			var matched bool
			for _, sd := range c.ri.Rule.Strings {
				if strings.HasPrefix(sd.Name, prefix) {
					ids = append(ids, c.ri.IDsOf(sd.Name)...)
					matched = true
				}
			}
			if !matched {
				return nil, c.errf("wildcard %q matches no string in this rule", pat)
			}
			continue
		}
		resolved := c.ri.IDsOf(pat)
		if resolved == nil {
			return nil, c.errf("unresolved string identifier %q in set", pat)
		}
		ids = append(ids, resolved...)
	}
	return ids, nil
}

// lowerCount lowers an any/all/K count quantifier against a statically
// known set size n, clamping K into [1, n] at lowering time when K is
// already a constant (the common case); a dynamic K expression is
// clamped by the runtime interpreter instead, since its value isn't known
// until evaluation.
func (c *condLowerer) lowerCount(count ast.Count, n int) (ruleir.IntNode, error) {
	switch count.Kind {
	case ast.CountAny:
		return ruleir.IntConst{Value: 1}, nil
	case ast.CountAll:
		return ruleir.IntConst{Value: uint64(n)}, nil
	case ast.CountExpr:
		v, err := c.lowerInt(count.N)
		if err != nil {
			return nil, err
		}
		if lit, ok := v.(ruleir.IntConst); ok {
			return ruleir.IntConst{Value: clamp(lit.Value, n)}, nil
		}
		return v, nil
	default:
		return nil, c.errf("unknown count kind %d", count.Kind)
	}
}

// lowerRangeCount lowers a for-in-range count quantifier, whose "all" has
// no compile-time set size (it depends on the range's runtime span);
// the interpreter resolves CountAll/CountExpr clamping at each
// evaluation once it knows the concrete [low, high) span.
func (c *condLowerer) lowerRangeCount(count ast.Count) (ruleir.IntNode, error) {
	switch count.Kind {
	case ast.CountAny:
		return ruleir.IntConst{Value: 1}, nil
	case ast.CountAll:
		return ruleir.RangeSpan{}, nil
	case ast.CountExpr:
		v, err := c.lowerInt(count.N)
		if err != nil {
			return nil, err
		}
		if lit, ok := v.(ruleir.IntConst); ok && lit.Value < 1 {
			return ruleir.IntConst{Value: 1}, nil
		}
		return v, nil
	default:
		return nil, c.errf("unknown count kind %d", count.Kind)
	}
}

// clamp applies max(1, min(n, k)) to an explicit/any count quantifier. It
// never collapses to 0 when n<=0 (an empty or unresolvable set still
// requires at least one match, which an empty set can't provide, so the
// predicate correctly comes out false downstream rather than vacuously
// true); the n<=0-is-0 floor only belongs to the "all" quantifier, which
// lowerCount/lowerRangeCount already bake independently of this helper.
func clamp(k uint64, n int) uint64 {
	if n > 0 && k > uint64(n) {
		k = uint64(n)
	}
	if k < 1 || n <= 0 {
		k = 1
	}
	return k
}
