// Package runtime implements the rule evaluator (component 4.G): it loads
// a compiled RuleProgram, drives the three matching-engine databases over
// a scanned buffer to populate match tables, then walks each rule's
// lowered procedure to decide hit/no-hit, memoizing per scan.
package runtime

import "github.com/avast/yarang/compiler"

type ruleState int

const (
	notEvaluated ruleState = iota
	hit
	noHit
)

// matchRecord is the per-pattern-id match table entry of spec.md §3: a
// count plus parallel offset/length lists, ordered by engine-callback
// arrival (not guaranteed sorted).
type matchRecord struct {
	offsets []int
	lengths []int
}

func (m *matchRecord) count() int { return len(m.offsets) }

// ScanContext is the transient state of one scan: the buffer being
// scanned, the Match[PATTERN_COUNT] and mutex_match[MUTEX_PATTERN_COUNT]
// tables of spec.md §4.F, and every rule's memoized state. It is re-used
// across scans on the same Scanner, reset at the start of each one.
type ScanContext struct {
	buf         []byte
	matches     []matchRecord
	mutexHits   []bool
	ruleStates  []ruleState
}

func newScanContext(rp *compiler.RuleProgram) *ScanContext {
	return &ScanContext{
		matches:    make([]matchRecord, rp.PatternCount()),
		mutexHits:  make([]bool, rp.MutexCount),
		ruleStates: make([]ruleState, len(rp.Rules)),
	}
}

// reset clears every match table and rule state for a new scan, per
// spec.md §4.G step 1, without discarding the backing arrays.
func (c *ScanContext) reset(buf []byte) {
	c.buf = buf
	for i := range c.matches {
		c.matches[i].offsets = c.matches[i].offsets[:0]
		c.matches[i].lengths = c.matches[i].lengths[:0]
	}
	for i := range c.mutexHits {
		c.mutexHits[i] = false
	}
	for i := range c.ruleStates {
		c.ruleStates[i] = notEvaluated
	}
}

func (c *ScanContext) addMatch(id, start, end int) {
	c.matches[id].offsets = append(c.matches[id].offsets, start)
	c.matches[id].lengths = append(c.matches[id].lengths, end-start)
}

func (c *ScanContext) addMutexHit(id int) {
	c.mutexHits[id] = true
}
