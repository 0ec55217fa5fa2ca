package runtime

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/avast/yarang/compiler"
	"github.com/avast/yarang/engine"
)

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == '_'
}

func checkWordBoundary(buf []byte, start, end int) bool {
	if start > 0 && isWordChar(buf[start-1]) {
		return false
	}
	if end < len(buf) && isWordChar(buf[end]) {
		return false
	}
	return true
}

// ScanCallback receives one notification per public rule hit.
type ScanCallback interface {
	RuleMatching(ruleName string) (abort bool, err error)
}

// MatchRules collects hit rule names and implements ScanCallback.
type MatchRules []string

func (m *MatchRules) RuleMatching(ruleName string) (abort bool, err error) {
	*m = append(*m, ruleName)
	return false, nil
}

// Scanner is a single-threaded scan handle over one RuleProgram, per
// spec.md §5: it owns one ScanContext re-used across scans and must not
// be shared between concurrently running scans.
type Scanner struct {
	rp  *compiler.RuleProgram
	ctx *ScanContext
}

// NewScanner allocates a scanner and its scratch ScanContext.
func NewScanner(rp *compiler.RuleProgram) *Scanner {
	return &Scanner{rp: rp, ctx: newScanContext(rp)}
}

// ScanMem runs the full scan lifecycle of spec.md §4.G against an
// in-memory buffer. mutexBuf is the newline-joined mutex-name list
// (engine.JoinMutexNames); nil is equivalent to no mutex input supplied.
func (s *Scanner) ScanMem(buf, mutexBuf []byte, cb ScanCallback) error {
	s.ctx.reset(buf)

	if s.rp.RegexDB != nil {
		s.rp.RegexDB.Scan(buf, func(id, start, end int) {
			s.reportMatch(id, start, end)
		})
	}
	if s.rp.LiteralDB != nil {
		s.rp.LiteralDB.Scan(buf, func(id, start, end int) {
			s.reportMatch(id, start, end)
		})
	}
	if mutexBuf != nil && s.rp.MutexDB != nil {
		s.rp.MutexDB.Scan(mutexBuf, s.ctx.addMutexHit)
	}

	var cbErr error
	aborted := false
	ev := newEvaluator(s.rp, s.ctx, func(ruleName string) {
		if aborted || cbErr != nil {
			return
		}
		abort, err := cb.RuleMatching(ruleName)
		if err != nil {
			cbErr = err
			return
		}
		aborted = abort
	})

	for idx := range s.rp.Rules {
		ev.evaluateRule(idx)
		if cbErr != nil {
			return cbErr
		}
		if aborted {
			return nil
		}
	}
	return nil
}

func (s *Scanner) reportMatch(id, start, end int) {
	if s.rp.Patterns[id].Fullword && !checkWordBoundary(s.ctx.buf, start, end) {
		return
	}
	s.ctx.addMatch(id, start, end)
}

// ScanFile mmaps filename and scans it, per spec.md §4.G and the
// teacher's scanner.ScanFile. mutexInputPath, if non-empty, is loaded via
// LoadMutexNames.
func (s *Scanner) ScanFile(filename, mutexInputPath string, cb ScanCallback) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("runtime: %w", err)
	}

	mutexBuf, err := s.loadMutexBuf(mutexInputPath)
	if err != nil {
		return err
	}

	size := fi.Size()
	if size == 0 {
		return s.ScanMem(nil, mutexBuf, cb)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("runtime: mmap %s: %w", filename, err)
	}
	defer func() { _ = unix.Munmap(data) }()

	return s.ScanMem(data, mutexBuf, cb)
}

func (s *Scanner) loadMutexBuf(mutexInputPath string) ([]byte, error) {
	if mutexInputPath == "" {
		return nil, nil
	}
	names, err := LoadMutexNames(mutexInputPath)
	if err != nil {
		return nil, err
	}
	return engine.JoinMutexNames(names), nil
}
