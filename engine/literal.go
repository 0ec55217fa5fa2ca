package engine

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// DBBuildError reports that a pattern was rejected while building one of
// the matching-engine databases (the DBBuildError taxonomy entry).
type DBBuildError struct {
	Database string
	Pattern  string
	Err      error
}

func (e *DBBuildError) Error() string {
	return fmt.Sprintf("engine: %s database: pattern %q: %v", e.Database, e.Pattern, e.Err)
}

func (e *DBBuildError) Unwrap() error { return e.Err }

// LiteralDatabase matches a deduplicated set of literal byte patterns
// against a buffer, reporting match-start offsets, per spec.md §4.C.
type LiteralDatabase struct {
	patterns []string
	fsm      *automaton
}

// CompileLiteralDB builds a literal pattern database. An empty patterns
// slice is valid and yields a database that never matches (the caller
// skips building one at all when the group is empty, per spec.md §4.C).
func CompileLiteralDB(patterns []string) (*LiteralDatabase, error) {
	byteP := make([][]byte, len(patterns))
	for i, p := range patterns {
		byteP[i] = []byte(p)
	}
	return &LiteralDatabase{patterns: patterns, fsm: buildAutomaton(byteP)}, nil
}

// Scan reports every occurrence of every pattern in buf. report receives
// the pattern's global id (its index into the patterns slice the database
// was built from) plus the match's [start, end) byte range.
func (db *LiteralDatabase) Scan(buf []byte, report func(id, start, end int)) {
	if db == nil || db.fsm == nil {
		return
	}
	db.fsm.scan(buf, report)
}

type literalDBWire struct {
	Patterns []string
}

// Serialize produces the database's persisted form: the teacher's matching
// engines (hyperscan, the in-tree Aho-Corasick automaton) serialize a
// built structure, but re-deriving the automaton from its pattern list on
// load is cheap and avoids hand-rolling a binary format for the trie.
func (db *LiteralDatabase) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(literalDBWire{Patterns: db.patterns}); err != nil {
		return nil, fmt.Errorf("engine: serialize literal database: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeLiteralDB loads a database previously produced by Serialize.
func DeserializeLiteralDB(data []byte) (*LiteralDatabase, error) {
	var w literalDBWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, fmt.Errorf("engine: deserialize literal database: %w", err)
	}
	return CompileLiteralDB(w.Patterns)
}
