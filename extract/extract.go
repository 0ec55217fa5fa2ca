// Package extract implements the pattern extractor and ID allocator
// (components B/C): it walks a rule set, normalizes every string and mutex
// reference into flat, deduplicated pattern tables, and assigns the stable
// numeric ids the rest of the compiler and the runtime key off of.
//
// Grounded on original_source's pattern_extractor.hpp for the per-rule
// RuleInfo/cache-map shape, and on scanner/compile.go's generatePatterns/
// generateBase64Patterns for the string-modifier handling the distilled
// spec is silent on.
package extract

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/avast/yarang/ast"
	"github.com/avast/yarang/hexlower"
)

// PatternKind classifies a Pattern as literal or regex.
type PatternKind int

const (
	Literal PatternKind = iota
	Regex
)

// Pattern is one deduplicated entry in the global literal or regex table.
type Pattern struct {
	Kind             PatternKind
	Expression       string
	OriginRule       string
	OriginIdentifier string
	Fullword         bool
	Private          bool
}

// MutexPattern is one deduplicated entry in the global mutex table.
type MutexPattern struct {
	Regex      string
	OriginRule string
}

// RuleInfo carries one rule's position in global_index order plus its
// identifier→id maps. An identifier maps to more than one id only when a
// modifier (base64) expands it into several underlying patterns; the ids it
// expands to are still drawn from the single shared [0, R+L) or [0, M) id
// space.
type RuleInfo struct {
	GlobalIndex int
	Rule        *ast.Rule
	LiteralIDs  map[string][]int
	RegexIDs    map[string][]int
	MutexIDs    map[string]int
}

// IDsOf returns every pattern id the given string identifier ("$foo")
// resolves to, regardless of which bucket it landed in.
func (ri *RuleInfo) IDsOf(name string) []int {
	if ids, ok := ri.LiteralIDs[name]; ok {
		return ids
	}
	return ri.RegexIDs[name]
}

// Tables is the full output of extraction. Each pattern list is indexed
// from 0 within its own bucket; every RuleInfo's literal ids have already
// been shifted by len(RegexPatterns).
type Tables struct {
	RegexPatterns   []Pattern
	LiteralPatterns []Pattern
	MutexPatterns   []MutexPattern
	Rules           []*RuleInfo
}

// LoweringError reports an extraction-time identifier problem. Named
// LoweringError to share the taxonomy entry the condition lowerer also
// raises identifier-resolution failures under.
type LoweringError struct {
	Rule string
	Msg  string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("extract: rule %s: %s", e.Rule, e.Msg)
}

type cache struct {
	byExpr map[string]int
	list   []Pattern
}

func newCache() *cache { return &cache{byExpr: make(map[string]int)} }

func (c *cache) intern(p Pattern) int {
	if id, ok := c.byExpr[p.Expression]; ok {
		return id
	}
	id := len(c.list)
	c.byExpr[p.Expression] = id
	c.list = append(c.list, p)
	return id
}

type mutexCache struct {
	byRegex map[string]int
	list    []MutexPattern
}

func newMutexCache() *mutexCache { return &mutexCache{byRegex: make(map[string]int)} }

func (c *mutexCache) intern(m MutexPattern) int {
	if id, ok := c.byRegex[m.Regex]; ok {
		return id
	}
	id := len(c.list)
	c.byRegex[m.Regex] = id
	c.list = append(c.list, m)
	return id
}

// Extract walks rs in declaration order and produces deduplicated,
// id-shifted pattern tables. Extraction is deterministic: running it twice
// on the same rule set yields bitwise-identical tables.
func Extract(rs *ast.RuleSet) (*Tables, error) {
	regexes := newCache()
	literals := newCache()
	mutexes := newMutexCache()

	var ruleInfos []*RuleInfo
	for idx, rule := range rs.Rules {
		ri := &RuleInfo{
			GlobalIndex: idx,
			Rule:        rule,
			LiteralIDs:  make(map[string][]int),
			RegexIDs:    make(map[string][]int),
			MutexIDs:    make(map[string]int),
		}
		for _, sd := range rule.Strings {
			ids, kind, err := internStringDef(regexes, literals, rule.Name, sd)
			if err != nil {
				return nil, err
			}
			if kind == Regex {
				ri.RegexIDs[sd.Name] = ids
			} else {
				ri.LiteralIDs[sd.Name] = ids
			}
		}
		if rule.Condition != nil {
			ast.Walk(rule.Condition, func(e ast.Expr) {
				fc, ok := e.(ast.FuncCall)
				if !ok || !fc.IsRegexArg || fc.Name != "cuckoo.sync.mutex" {
					return
				}
				id := mutexes.intern(MutexPattern{Regex: fc.RegexArg, OriginRule: rule.Name})
				ri.MutexIDs[fc.RegexArg] = id
			})
		}
		ruleInfos = append(ruleInfos, ri)
	}

	totalRegex := len(regexes.list)
	for _, ri := range ruleInfos {
		for name, ids := range ri.LiteralIDs {
			shifted := make([]int, len(ids))
			for i, id := range ids {
				shifted[i] = id + totalRegex
			}
			ri.LiteralIDs[name] = shifted
		}
	}

	return &Tables{
		RegexPatterns:   regexes.list,
		LiteralPatterns: literals.list,
		MutexPatterns:   mutexes.list,
		Rules:           ruleInfos,
	}, nil
}

// internStringDef classifies and interns sd's one or more underlying
// patterns, returning the (pre-shift) ids assigned and which bucket they
// landed in.
func internStringDef(regexes, literals *cache, ruleName string, sd *ast.StringDef) ([]int, PatternKind, error) {
	switch v := sd.Value.(type) {
	case ast.TextString:
		if sd.Modifiers.Nocase {
			expr := "(?i)" + regexp.QuoteMeta(v.Value)
			id := regexes.intern(Pattern{Kind: Regex, Expression: expr, OriginRule: ruleName, OriginIdentifier: sd.Name, Fullword: sd.Modifiers.Fullword, Private: sd.Modifiers.Private})
			return []int{id}, Regex, nil
		}
		if sd.Modifiers.Base64 {
			var ids []int
			for _, variant := range base64Variants([]byte(v.Value)) {
				ids = append(ids, literals.intern(Pattern{Kind: Literal, Expression: variant, OriginRule: ruleName, OriginIdentifier: sd.Name, Fullword: sd.Modifiers.Fullword, Private: sd.Modifiers.Private}))
			}
			if len(ids) == 0 {
				return nil, Literal, &LoweringError{Rule: ruleName, Msg: fmt.Sprintf("%s: base64 modifier produced no usable pattern", sd.Name)}
			}
			return ids, Literal, nil
		}
		id := literals.intern(Pattern{Kind: Literal, Expression: v.Value, OriginRule: ruleName, OriginIdentifier: sd.Name, Fullword: sd.Modifiers.Fullword, Private: sd.Modifiers.Private})
		return []int{id}, Literal, nil

	case ast.RegexString:
		expr := v.Pattern
		if v.Modifiers.CaseInsensitive {
			expr = "(?i)" + expr
		}
		if v.Modifiers.DotMatchesAll {
			expr = "(?s)" + expr
		}
		if v.Modifiers.Multiline {
			expr = "(?m)" + expr
		}
		id := regexes.intern(Pattern{Kind: Regex, Expression: expr, OriginRule: ruleName, OriginIdentifier: sd.Name, Fullword: sd.Modifiers.Fullword, Private: sd.Modifiers.Private})
		return []int{id}, Regex, nil

	case ast.HexString:
		pattern, literalOnly := hexlower.Lower(v.Tokens)
		if literalOnly {
			raw, err := unescapeHexLiteral(pattern)
			if err != nil {
				return nil, Literal, &LoweringError{Rule: ruleName, Msg: err.Error()}
			}
			id := literals.intern(Pattern{Kind: Literal, Expression: raw, OriginRule: ruleName, OriginIdentifier: sd.Name, Fullword: sd.Modifiers.Fullword, Private: sd.Modifiers.Private})
			return []int{id}, Literal, nil
		}
		id := regexes.intern(Pattern{Kind: Regex, Expression: pattern, OriginRule: ruleName, OriginIdentifier: sd.Name, Fullword: sd.Modifiers.Fullword, Private: sd.Modifiers.Private})
		return []int{id}, Regex, nil
	}
	return nil, Literal, &LoweringError{Rule: ruleName, Msg: fmt.Sprintf("%s: unknown string value type %T", sd.Name, sd.Value)}
}

// base64Variants mirrors generateBase64Patterns: three offset-aligned
// encodings, since the byte alignment of the surrounding base64-encoded
// data (unknown at compile time) shifts which characters are stable.
func base64Variants(data []byte) []string {
	type offset struct{ pad, skip int }
	offsets := [3]offset{{0, 0}, {1, 2}, {2, 3}}
	var out []string
	for _, o := range offsets {
		padded := append(make([]byte, o.pad), data...)
		enc := base64.StdEncoding.EncodeToString(padded)
		if len(enc) <= o.skip {
			continue
		}
		trimmed := strings.TrimRight(enc[o.skip:], "=")
		if trim := trailingUnstableChars(len(data) + o.pad); trim > 0 && len(trimmed) > trim {
			trimmed = trimmed[:len(trimmed)-trim]
		}
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// trailingUnstableChars returns how many trailing base64 characters encode
// bits shared with whatever byte follows the pattern in the real file, and
// so can't be trusted as part of a fixed literal.
func trailingUnstableChars(dataLen int) int {
	switch dataLen % 3 {
	case 1, 2:
		return 1
	default:
		return 0
	}
}

// unescapeHexLiteral reverses hexlower's "\xHH or literal ASCII char" escape
// scheme back into raw bytes, for the case where every unit was a concrete
// byte and the pattern belongs in the literal bucket rather than the regex
// one.
func unescapeHexLiteral(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			var v int
			if _, err := fmt.Sscanf(s[i+2:i+4], "%02x", &v); err != nil {
				return "", fmt.Errorf("extract: bad hex escape in %q: %w", s, err)
			}
			b.WriteByte(byte(v))
			i += 4
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), nil
}
