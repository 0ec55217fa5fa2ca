package compiler

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avast/yarang/engine"
	"github.com/avast/yarang/ruleir"
)

func init() {
	gob.Register(ruleir.BoolConst{})
	gob.Register(ruleir.And{})
	gob.Register(ruleir.Or{})
	gob.Register(ruleir.Not{})
	gob.Register(ruleir.Cmp{})
	gob.Register(ruleir.MatchPresent{})
	gob.Register(ruleir.MutexPresent{})
	gob.Register(ruleir.AtTest{})
	gob.Register(ruleir.InRangeTest{})
	gob.Register(ruleir.Of{})
	gob.Register(ruleir.ForOf{})
	gob.Register(ruleir.ForInSet{})
	gob.Register(ruleir.ForInRange{})
	gob.Register(ruleir.EvaluateRule{})
	gob.Register(ruleir.IntConst{})
	gob.Register(ruleir.Arith{})
	gob.Register(ruleir.Filesize{})
	gob.Register(ruleir.ReadInt{})
	gob.Register(ruleir.MatchCount{})
	gob.Register(ruleir.MatchOffset{})
	gob.Register(ruleir.MatchLength{})
	gob.Register(ruleir.MutexCount{})
	gob.Register(ruleir.LoopIntVar{})
	gob.Register(ruleir.RangeSpan{})
}

// programWire is the RuleProgram's gob-encodable shape: the matching-
// engine databases are re-derived from their pattern lists on load (the
// same rationale each engine.*Database.Deserialize already uses) rather
// than carrying their compiled RE2/automaton state across the wire.
type programWire struct {
	RegexCount   int
	LiteralCount int
	MutexCount   int
	Rules        []RuleMeta
	Procedures   []ruleir.BoolNode
	Patterns     []PatternMeta
	Mutexes      []MutexMeta
}

// Serialize encodes the rule program — rule table, lowered procedures and
// pattern/mutex metadata — so that a fresh process can Load it, together
// with the separately serialized databases, and scan without re-running
// the parser or the lowerer. The databases themselves are not part of
// this encoding. This is the artifact the "round-trip"
// testable property of spec.md §8 exercises.
func (rp *RuleProgram) Serialize() ([]byte, error) {
	w := programWire{
		RegexCount:   rp.RegexCount,
		LiteralCount: rp.LiteralCount,
		MutexCount:   rp.MutexCount,
		Rules:        rp.Rules,
		Procedures:   rp.Procedures,
		Patterns:     rp.Patterns,
		Mutexes:      rp.Mutexes,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("compiler: serialize rule program: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reconstructs a RuleProgram from the bytes produced by Serialize
// plus the three database blobs written alongside it (any of which may be
// nil if that pattern group was empty, mirroring WriteArtifacts).
func Load(programData, regexDBData, literalDBData, mutexDBData []byte) (*RuleProgram, error) {
	var w programWire
	if err := gob.NewDecoder(bytes.NewReader(programData)).Decode(&w); err != nil {
		return nil, fmt.Errorf("compiler: deserialize rule program: %w", err)
	}

	rp := &RuleProgram{
		RegexCount:   w.RegexCount,
		LiteralCount: w.LiteralCount,
		MutexCount:   w.MutexCount,
		Rules:        w.Rules,
		Procedures:   w.Procedures,
		Patterns:     w.Patterns,
		Mutexes:      w.Mutexes,
	}

	var err error
	if regexDBData != nil {
		if rp.RegexDB, err = engine.DeserializeRegexDB(regexDBData); err != nil {
			return nil, fmt.Errorf("compiler: %w", err)
		}
	}
	if literalDBData != nil {
		if rp.LiteralDB, err = engine.DeserializeLiteralDB(literalDBData); err != nil {
			return nil, fmt.Errorf("compiler: %w", err)
		}
	}
	if mutexDBData != nil {
		if rp.MutexDB, err = engine.DeserializeMutexDB(mutexDBData); err != nil {
			return nil, fmt.Errorf("compiler: %w", err)
		}
	}
	return rp, nil
}

// LoadFiles reads the rule-program bundle WriteArtifacts produced for
// base in dir and reconstructs a RuleProgram from it.
func LoadFiles(dir, base string) (*RuleProgram, error) {
	programData, err := os.ReadFile(filepath.Join(dir, base+".program"))
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	regexDBData := readOptional(filepath.Join(dir, base+".regex.db"))
	literalDBData := readOptional(filepath.Join(dir, base+".literal.db"))
	mutexDBData := readOptional(filepath.Join(dir, base+".mutex.db"))
	return Load(programData, regexDBData, literalDBData, mutexDBData)
}

func readOptional(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}
