package runtime

import (
	"github.com/avast/yarang/compiler"
	"github.com/avast/yarang/ruleir"
)

// evaluator interprets a lowered ruleir tree against one ScanContext.
// Loop-variable scoping replaces nested-closure capture with two explicit
// stacks the lowerer's positional depths index into: currentIDs for the "$"/"@" binding an
// of/for-of body sees, loopInts for the integer bound by a for-in-set/
// for-in-range body.
type evaluator struct {
	rp         *compiler.RuleProgram
	ctx        *ScanContext
	onHit      func(ruleName string)
	currentIDs []int
	loopInts   []uint64
	rangeSpans []uint64
}

func newEvaluator(rp *compiler.RuleProgram, ctx *ScanContext, onHit func(string)) *evaluator {
	return &evaluator{rp: rp, ctx: ctx, onHit: onHit}
}

// evaluateRule is the memoizing dispatcher of spec.md §4.G: a rule's
// procedure runs at most once per scan regardless of how many other
// rules' conditions reference it, and a public rule's hit callback fires
// from here rather than from whoever happened to trigger the evaluation.
func (e *evaluator) evaluateRule(idx int) bool {
	st := &e.ctx.ruleStates[idx]
	if *st == notEvaluated {
		result := e.evalBool(e.rp.Procedures[idx])
		if result {
			*st = hit
			if e.rp.Rules[idx].Visibility == compiler.Public {
				e.onHit(e.rp.Rules[idx].Name)
			}
		} else {
			*st = noHit
		}
	}
	return *st == hit
}

func (e *evaluator) resolveID(ref ruleir.IDRef) int {
	if ref.Current {
		return e.currentIDs[len(e.currentIDs)-1]
	}
	return ref.ID
}

func (e *evaluator) evalBool(n ruleir.BoolNode) bool {
	switch v := n.(type) {
	case ruleir.BoolConst:
		return v.Value
	case ruleir.And:
		return e.evalBool(v.Left) && e.evalBool(v.Right)
	case ruleir.Or:
		return e.evalBool(v.Left) || e.evalBool(v.Right)
	case ruleir.Not:
		return !e.evalBool(v.Inner)
	case ruleir.Cmp:
		return e.evalCmp(v)
	case ruleir.MatchPresent:
		return e.ctx.matches[e.resolveID(v.Ref)].count() > 0
	case ruleir.MutexPresent:
		return e.ctx.mutexHits[v.ID]
	case ruleir.AtTest:
		return e.evalAtTest(v)
	case ruleir.InRangeTest:
		return e.evalInRangeTest(v)
	case ruleir.Of:
		return e.evalOf(v.IDs, int(e.clampedK(v.K, len(v.IDs))))
	case ruleir.ForOf:
		return e.evalForOf(v)
	case ruleir.ForInSet:
		return e.evalForInSet(v)
	case ruleir.ForInRange:
		return e.evalForInRange(v)
	case ruleir.EvaluateRule:
		return e.evaluateRule(v.RuleIndex)
	default:
		panic("runtime: unhandled bool node")
	}
}

func (e *evaluator) evalCmp(v ruleir.Cmp) bool {
	l, r := e.evalInt(v.Left), e.evalInt(v.Right)
	if v.Signed {
		sl, sr := int64(l), int64(r)
		switch v.Op {
		case "==":
			return sl == sr
		case "!=":
			return sl != sr
		case "<":
			return sl < sr
		case "<=":
			return sl <= sr
		case ">":
			return sl > sr
		case ">=":
			return sl >= sr
		}
	}
	switch v.Op {
	case "==":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	panic("runtime: unhandled comparison operator " + v.Op)
}

func (e *evaluator) evalAtTest(v ruleir.AtTest) bool {
	pos := int(e.evalInt(v.Pos))
	for _, off := range e.ctx.matches[e.resolveID(v.Ref)].offsets {
		if off == pos {
			return true
		}
	}
	return false
}

func (e *evaluator) evalInRangeTest(v ruleir.InRangeTest) bool {
	low, high := int(e.evalInt(v.Low)), int(e.evalInt(v.High))
	for _, off := range e.ctx.matches[e.resolveID(v.Ref)].offsets {
		if off >= low && off < high {
			return true
		}
	}
	return false
}

// clampedK applies the uniform clamp(k, n) = max(1, min(n, k)) formula of
// spec.md §4.E's "of"/"for" semantics to a raw evaluated count expression.
// It is idempotent, so it is safe to re-apply here even when the lowerer
// already clamped a literal K against a statically known n.
//
// An empty or inverted universe (n<=0) is vacuously true for "all" but
// false for "any"/an explicit K, so the two have to be told apart rather
// than both collapsing K to 0: a RangeSpan node is always the runtime
// span of a for-in-range "all" (unknown until the range is evaluated),
// and a literal 0 can only reach here, given n<=0, from lowerCount's own
// CountAll bake (lower.go's clamp never produces a literal 0 over an
// empty set) — every other K, including "any"'s IntConst{1}, wants the
// usual floor-to-1 so the predicate fails instead of matching nothing.
func (e *evaluator) clampedK(k ruleir.IntNode, n int) uint64 {
	if _, isAll := k.(ruleir.RangeSpan); isAll && n <= 0 {
		return 0
	}
	if lit, ok := k.(ruleir.IntConst); ok && n <= 0 && lit.Value == 0 {
		return 0
	}
	raw := e.evalInt(k)
	if n > 0 && raw > uint64(n) {
		raw = uint64(n)
	}
	if raw < 1 || n <= 0 {
		raw = 1
	}
	return raw
}

// evalOf is "K of X": succeeds as soon as K ids have matched, with the
// tolerance-based early exit of spec.md §4.E — tolerance = n-K, and the
// predicate fails the moment the remaining ids can no longer reach K.
func (e *evaluator) evalOf(ids []int, k int) bool {
	n := len(ids)
	tolerance := n - k
	hits := 0
	for i, id := range ids {
		if e.ctx.matches[id].count() > 0 {
			hits++
		}
		if hits >= k {
			return true
		}
		if (i+1)-hits > tolerance {
			return false
		}
	}
	return hits >= k
}

// evalForOf is "for K of X : ( body )": same tolerance rule as evalOf, but
// each iteration evaluates body with "$"/"@" bound to the current id.
func (e *evaluator) evalForOf(v ruleir.ForOf) bool {
	n := len(v.IDs)
	k := int(e.clampedK(v.K, n))
	tolerance := n - k
	hits := 0
	for i, id := range v.IDs {
		e.currentIDs = append(e.currentIDs, id)
		ok := e.evalBool(v.Body)
		e.currentIDs = e.currentIDs[:len(e.currentIDs)-1]
		if ok {
			hits++
		}
		if hits >= k {
			return true
		}
		if (i+1)-hits > tolerance {
			return false
		}
	}
	return hits >= k
}

// evalForInSet is "for K i in (e1, e2, ...) : ( body )": the bound value
// is an explicit integer set evaluated once per iteration (each Values
// entry may itself reference outer loop variables).
func (e *evaluator) evalForInSet(v ruleir.ForInSet) bool {
	n := len(v.Values)
	k := int(e.clampedK(v.K, n))
	tolerance := n - k
	hits := 0
	for i, valNode := range v.Values {
		e.pushLoopInt(v.Depth, e.evalInt(valNode))
		ok := e.evalBool(v.Body)
		e.popLoopInt()
		if ok {
			hits++
		}
		if hits >= k {
			return true
		}
		if (i+1)-hits > tolerance {
			return false
		}
	}
	return hits >= k
}

// evalForInRange is "for K i in (L..H) : ( body )". n = H-L is only known
// at evaluation time, so K's clamp (and an "all" quantifier's RangeSpan)
// resolve against it here rather than at lowering time.
func (e *evaluator) evalForInRange(v ruleir.ForInRange) bool {
	low, high := int64(e.evalInt(v.Low)), int64(e.evalInt(v.High))
	n := int(high - low)
	e.rangeSpans = append(e.rangeSpans, uint64(max64(n, 0)))
	k := int(e.clampedK(v.K, n))
	e.rangeSpans = e.rangeSpans[:len(e.rangeSpans)-1]

	tolerance := n - k
	hits := 0
	idx := 0
	for i := low; i < high; i++ {
		e.pushLoopInt(v.Depth, uint64(i))
		ok := e.evalBool(v.Body)
		e.popLoopInt()
		if ok {
			hits++
		}
		idx++
		if hits >= k {
			return true
		}
		if idx-hits > tolerance {
			return false
		}
	}
	return hits >= k
}

func max64(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// pushLoopInt and popLoopInt maintain the positional-depth stack a
// LoopIntVar reference indexes into. Depth is fixed at lowering time, so
// as long as nesting at evaluation time matches nesting at lowering time
// (which it always does: the tree shape is unconditional), loopInts[depth]
// is always the frame the reference was written against.
func (e *evaluator) pushLoopInt(depth int, val uint64) {
	for len(e.loopInts) <= depth {
		e.loopInts = append(e.loopInts, 0)
	}
	e.loopInts = e.loopInts[:depth+1]
	e.loopInts[depth] = val
}

func (e *evaluator) popLoopInt() {
	if len(e.loopInts) > 0 {
		e.loopInts = e.loopInts[:len(e.loopInts)-1]
	}
}

func (e *evaluator) evalInt(n ruleir.IntNode) uint64 {
	switch v := n.(type) {
	case ruleir.IntConst:
		return v.Value
	case ruleir.Arith:
		return e.evalArith(v)
	case ruleir.Filesize:
		return uint64(len(e.ctx.buf))
	case ruleir.ReadInt:
		return e.evalReadInt(v)
	case ruleir.MatchCount:
		return uint64(e.ctx.matches[e.resolveID(v.Ref)].count())
	case ruleir.MatchOffset:
		return e.indexedLookup(e.ctx.matches[e.resolveID(v.Ref)].offsets, v.Index)
	case ruleir.MatchLength:
		return e.indexedLookup(e.ctx.matches[e.resolveID(v.Ref)].lengths, v.Index)
	case ruleir.MutexCount:
		if e.ctx.mutexHits[v.ID] {
			return 1
		}
		return 0
	case ruleir.LoopIntVar:
		return e.loopInts[v.Depth]
	case ruleir.RangeSpan:
		return e.rangeSpans[len(e.rangeSpans)-1]
	default:
		panic("runtime: unhandled int node")
	}
}

func (e *evaluator) indexedLookup(vals []int, indexNode ruleir.IntNode) uint64 {
	idx := int(e.evalInt(indexNode))
	if idx < 0 || idx >= len(vals) {
		return ruleir.UNDEFINED
	}
	return uint64(vals[idx])
}

func (e *evaluator) evalArith(v ruleir.Arith) uint64 {
	l, r := e.evalInt(v.Left), e.evalInt(v.Right)
	switch v.Op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "%":
		if r == 0 {
			return ruleir.UNDEFINED
		}
		return l % r
	case "&":
		return l & r
	case "^":
		return l ^ r
	}
	panic("runtime: unhandled arithmetic operator " + v.Op)
}

func (e *evaluator) evalReadInt(v ruleir.ReadInt) uint64 {
	off := int64(e.evalInt(v.Offset))
	if off < 0 || off+int64(v.Width) > int64(len(e.ctx.buf)) {
		return ruleir.UNDEFINED
	}
	buf := e.ctx.buf[off : off+int64(v.Width)]

	var raw uint64
	if v.BigEndian {
		for _, b := range buf {
			raw = raw<<8 | uint64(b)
		}
	} else {
		for i := len(buf) - 1; i >= 0; i-- {
			raw = raw<<8 | uint64(buf[i])
		}
	}

	if !v.Signed {
		return raw
	}
	switch v.Width {
	case 1:
		return uint64(int64(int8(raw)))
	case 2:
		return uint64(int64(int16(raw)))
	case 4:
		return uint64(int64(int32(raw)))
	default:
		return raw
	}
}
