package engine

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"

	re2 "github.com/wasilibs/go-re2"
	"github.com/wasilibs/go-re2/experimental"
)

// MutexDatabase matches mutex patterns against a line-delimited list of
// mutex names.
//
// A mutex pattern is a regex, not a literal: the Aho-Corasick automaton
// behind the literal database can't evaluate the regex metacharacters a
// cuckoo.sync.mutex(/re/) argument is free to contain. MutexDatabase is
// therefore built on the same RE2 engine as RegexDatabase, with "multiline" (?m) compiled in per
// spec.md §4.C so ^/$ anchor per mutex-name line rather than the whole
// buffer, and "single-match" enforced at scan time: a pattern already
// reported once is skipped for the rest of the scan, since existence is
// all a mutex test ever asks for.
type MutexDatabase struct {
	patterns []string
	compiled []*re2.Regexp
}

// CompileMutexDB builds a mutex pattern database.
func CompileMutexDB(patterns []string) (*MutexDatabase, error) {
	compiled := make([]*re2.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := experimental.CompileLatin1("(?m)" + p)
		if err != nil {
			return nil, &DBBuildError{Database: "mutex", Pattern: p, Err: err}
		}
		compiled[i] = re
	}
	return &MutexDatabase{patterns: patterns, compiled: compiled}, nil
}

// Scan reports at most one match per pattern against buf (the newline-
// joined mutex name list), since a mutex test only cares about presence.
func (db *MutexDatabase) Scan(buf []byte, report func(id int)) {
	if db == nil {
		return
	}
	for id, re := range db.compiled {
		if re.Match(buf) {
			report(id)
		}
	}
}

// JoinMutexNames builds the newline-terminated buffer the mutex database
// scans, per spec.md §6: each name concatenated with a "\n" terminator.
func JoinMutexNames(names []string) []byte {
	if len(names) == 0 {
		return nil
	}
	return []byte(strings.Join(names, "\n") + "\n")
}

type mutexDBWire struct {
	Patterns []string
}

func (db *MutexDatabase) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(mutexDBWire{Patterns: db.patterns}); err != nil {
		return nil, fmt.Errorf("engine: serialize mutex database: %w", err)
	}
	return buf.Bytes(), nil
}

func DeserializeMutexDB(data []byte) (*MutexDatabase, error) {
	var w mutexDBWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, fmt.Errorf("engine: deserialize mutex database: %w", err)
	}
	return CompileMutexDB(w.Patterns)
}
