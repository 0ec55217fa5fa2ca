// Package compiler implements the rule program emitter (component 4.F):
// it drives the pattern extractor, the condition lowerer and the matching
// engine database builds, then assembles their outputs into one
// RuleProgram artifact plus the textual deliverables spec.md §6 asks for
// (patterns.txt, rules.def).
package compiler

import (
	"errors"
	"fmt"

	"github.com/avast/yarang/ast"
	"github.com/avast/yarang/engine"
	"github.com/avast/yarang/extract"
	"github.com/avast/yarang/lower"
	"github.com/avast/yarang/ruleir"
)

// Visibility mirrors spec.md §3: public rules fire the host callback,
// private rules exist only to be referenced.
type Visibility int

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "Private"
	}
	return "Public"
}

// RuleMeta is one entry of the rules table of spec.md §4.F.
type RuleMeta struct {
	Name        string
	Visibility  Visibility
	GlobalIndex int
}

// PatternMeta carries a pattern's origin and modifier data, addressed by
// its global pattern id in [0, RegexCount+LiteralCount).
type PatternMeta struct {
	Kind             extract.PatternKind
	Expression       string
	OriginRule       string
	OriginIdentifier string
	Fullword         bool
}

// MutexMeta carries a mutex pattern's origin, addressed by its global
// mutex id in [0, MutexCount).
type MutexMeta struct {
	Regex      string
	OriginRule string
}

// RuleProgram is the compiler's full output: the constants and
// ScanContext layout of spec.md §4.F, the per-rule procedures, and the
// three matching-engine databases (any of which may be nil when its
// pattern group was empty).
type RuleProgram struct {
	RegexCount   int // R
	LiteralCount int // L
	MutexCount   int // M

	Rules      []RuleMeta
	Procedures []ruleir.BoolNode // indexed by GlobalIndex
	Patterns   []PatternMeta     // indexed by global pattern id
	Mutexes    []MutexMeta       // indexed by global mutex id

	RegexDB   *engine.RegexDatabase
	LiteralDB *engine.LiteralDatabase
	MutexDB   *engine.MutexDatabase
}

// PatternCount is PATTERN_COUNT = R + L from spec.md §4.F.
func (rp *RuleProgram) PatternCount() int { return rp.RegexCount + rp.LiteralCount }

// Compile runs the full front-to-back pipeline (4.B -> 4.E -> 4.C/4.D) over
// a parsed rule set and assembles the RuleProgram of 4.F.
func Compile(rs *ast.RuleSet) (*RuleProgram, error) {
	tables, err := extract.Extract(rs)
	if err != nil {
		return nil, fmt.Errorf("compiler: extraction: %w", err)
	}

	loweredProg, err := lower.Lower(tables)
	if err != nil {
		return nil, fmt.Errorf("compiler: lowering: %w", err)
	}

	regexDB, literalDB, mutexDB, err := buildDatabases(tables)
	if err != nil {
		return nil, err
	}

	rp := &RuleProgram{
		RegexCount:   len(tables.RegexPatterns),
		LiteralCount: len(tables.LiteralPatterns),
		MutexCount:   len(tables.MutexPatterns),
		Procedures:   loweredProg.Procedures,
		RegexDB:      regexDB,
		LiteralDB:    literalDB,
		MutexDB:      mutexDB,
	}

	rp.Rules = make([]RuleMeta, len(tables.Rules))
	for _, ri := range tables.Rules {
		vis := Public
		if ri.Rule.Private {
			vis = Private
		}
		rp.Rules[ri.GlobalIndex] = RuleMeta{Name: ri.Rule.Name, Visibility: vis, GlobalIndex: ri.GlobalIndex}
	}

	rp.Patterns = make([]PatternMeta, rp.PatternCount())
	for i, p := range tables.RegexPatterns {
		rp.Patterns[i] = patternMetaOf(p)
	}
	for i, p := range tables.LiteralPatterns {
		rp.Patterns[rp.RegexCount+i] = patternMetaOf(p)
	}

	rp.Mutexes = make([]MutexMeta, len(tables.MutexPatterns))
	for i, m := range tables.MutexPatterns {
		rp.Mutexes[i] = MutexMeta{Regex: m.Regex, OriginRule: m.OriginRule}
	}

	return rp, nil
}

func patternMetaOf(p extract.Pattern) PatternMeta {
	return PatternMeta{
		Kind:             p.Kind,
		Expression:       p.Expression,
		OriginRule:       p.OriginRule,
		OriginIdentifier: p.OriginIdentifier,
		Fullword:         p.Fullword,
	}
}

// buildDatabases compiles the three matching-engine databases, skipping
// any whose pattern group is empty per spec.md §4.C, and joins every
// DBBuildError encountered instead of stopping at the first one, the same
// errors.Join batching the teacher's scanner/compile.go uses.
func buildDatabases(tables *extract.Tables) (*engine.RegexDatabase, *engine.LiteralDatabase, *engine.MutexDatabase, error) {
	var errs []error

	var regexDB *engine.RegexDatabase
	if len(tables.RegexPatterns) > 0 {
		exprs := make([]string, len(tables.RegexPatterns))
		for i, p := range tables.RegexPatterns {
			exprs[i] = p.Expression
		}
		db, err := engine.CompileRegexDB(exprs)
		if err != nil {
			errs = append(errs, err)
		} else {
			regexDB = db
		}
	}

	var literalDB *engine.LiteralDatabase
	if len(tables.LiteralPatterns) > 0 {
		exprs := make([]string, len(tables.LiteralPatterns))
		for i, p := range tables.LiteralPatterns {
			exprs[i] = p.Expression
		}
		db, err := engine.CompileLiteralDB(exprs)
		if err != nil {
			errs = append(errs, err)
		} else {
			literalDB = db
		}
	}

	var mutexDB *engine.MutexDatabase
	if len(tables.MutexPatterns) > 0 {
		exprs := make([]string, len(tables.MutexPatterns))
		for i, m := range tables.MutexPatterns {
			exprs[i] = m.Regex
		}
		db, err := engine.CompileMutexDB(exprs)
		if err != nil {
			errs = append(errs, err)
		} else {
			mutexDB = db
		}
	}

	if len(errs) > 0 {
		return nil, nil, nil, fmt.Errorf("compiler: database compilation: %w", errors.Join(errs...))
	}
	return regexDB, literalDB, mutexDB, nil
}
