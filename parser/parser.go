// Package parser turns YARA rule source into an *ast.RuleSet. It is the
// external-collaborator front end the compiler drives: a participle/v2
// lexer.Definition feeding a hand-written recursive-descent parser for the
// condition grammar, since operator precedence doesn't fall out of struct
// tags the way the rest of a participle grammar would.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/avast/yarang/ast"
)

// ParseError reports a syntax error with its source position.
type ParseError struct {
	Filename string
	Line     int
	Column   int
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Msg)
}

type parser struct {
	lex  lexer.Lexer
	cur  lexer.Token
	file string
}

// Parse parses YARA rule source text into a RuleSet.
func Parse(filename, src string) (*ast.RuleSet, error) {
	lx, err := Definition.Lex(filename, strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	p := &parser{lex: lx, file: filename}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseRuleSet()
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) tt() tokenType { return tokenType(p.cur.Type) }

func (p *parser) at(tt tokenType) bool { return p.tt() == tt }

func (p *parser) errf(format string, args ...any) error {
	return &ParseError{
		Filename: p.file,
		Line:     p.cur.Pos.Line,
		Column:   p.cur.Pos.Column,
		Msg:      fmt.Sprintf(format, args...),
	}
}

func (p *parser) expect(tt tokenType) (lexer.Token, error) {
	if !p.at(tt) {
		return lexer.Token{}, p.errf("expected %s, got %q", symbolNames[tt], p.cur.Value)
	}
	tok := p.cur
	return tok, p.advance()
}

func (p *parser) parseRuleSet() (*ast.RuleSet, error) {
	rs := &ast.RuleSet{}
	for !p.at(tEOF) {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
	}
	return rs, nil
}

func (p *parser) parseRule() (*ast.Rule, error) {
	r := &ast.Rule{}
	if p.at(tPrivate) {
		r.Private = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tRule); err != nil {
		return nil, err
	}
	name, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	r.Name = name.Value
	// Tags ("rule X : tag1 tag2 {") are accepted and discarded.
	if p.at(tColon) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.at(tIdent) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(tLBrace); err != nil {
		return nil, err
	}
	if p.at(tMeta) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tColon); err != nil {
			return nil, err
		}
		for p.at(tIdent) {
			entry, err := p.parseMetaEntry()
			if err != nil {
				return nil, err
			}
			r.Meta = append(r.Meta, entry)
		}
	}
	if p.at(tStrings) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tColon); err != nil {
			return nil, err
		}
		for p.at(tStringIdent) {
			sd, err := p.parseStringDef()
			if err != nil {
				return nil, err
			}
			r.Strings = append(r.Strings, sd)
		}
	}
	if _, err := p.expect(tCondition); err != nil {
		return nil, err
	}
	if _, err := p.expect(tColon); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	r.Condition = cond
	if _, err := p.expect(tRBrace); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *parser) parseMetaEntry() (*ast.MetaEntry, error) {
	key, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tEquals); err != nil {
		return nil, err
	}
	var val any
	switch {
	case p.at(tStringLit):
		val = unquote(p.cur.Value)
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.at(tIntLit):
		n, err := strconv.ParseInt(p.cur.Value, 0, 64)
		if err != nil {
			return nil, p.errf("bad integer %q: %v", p.cur.Value, err)
		}
		val = n
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.at(tIdent) && (p.cur.Value == "true" || p.cur.Value == "false"):
		val = p.cur.Value == "true"
		if err := p.advance(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errf("expected meta value, got %q", p.cur.Value)
	}
	return &ast.MetaEntry{Key: key.Value, Value: val}, nil
}

func (p *parser) parseStringDef() (*ast.StringDef, error) {
	name, err := p.expect(tStringIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tEquals); err != nil {
		return nil, err
	}
	sd := &ast.StringDef{Name: name.Value}
	switch {
	case p.at(tStringLit):
		sd.Value = ast.TextString{Value: unquote(p.cur.Value)}
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.at(tRegexLit):
		pat, mods := splitRegexLiteral(p.cur.Value)
		sd.Value = ast.RegexString{Pattern: pat, Modifiers: mods}
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.at(tLBrace):
		if err := p.advance(); err != nil {
			return nil, err
		}
		toks, err := p.parseHexTokens()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRBrace); err != nil {
			return nil, err
		}
		sd.Value = ast.HexString{Tokens: toks}
	default:
		return nil, p.errf("expected string value, got %q", p.cur.Value)
	}
	for p.at(tModifier) {
		switch p.cur.Value {
		case "base64":
			sd.Modifiers.Base64 = true
		case "base64wide":
			sd.Modifiers.Base64Wide = true
		case "fullword":
			sd.Modifiers.Fullword = true
		case "wide":
			sd.Modifiers.Wide = true
		case "ascii":
			sd.Modifiers.Ascii = true
		case "nocase":
			sd.Modifiers.Nocase = true
		case "xor":
			sd.Modifiers.Xor = true
		case "private":
			sd.Modifiers.Private = true
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return sd, nil
}

// parseHexTokens parses a flat run of hex-string tokens up to (but not
// including) the terminator the caller expects ('}', ')' or '|').
func (p *parser) parseHexTokens() ([]ast.HexToken, error) {
	var toks []ast.HexToken
	for {
		switch {
		case p.at(tHexByte):
			v, _ := strconv.ParseUint(p.cur.Value, 16, 8)
			toks = append(toks, ast.HexByte{Value: byte(v)})
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.at(tHexHalfHi):
			toks = append(toks, ast.HexHalfNibble{Known: hexNibble(p.cur.Value[0]), KnownHi: true})
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.at(tHexHalfLo):
			toks = append(toks, ast.HexHalfNibble{Known: hexNibble(p.cur.Value[0]), KnownHi: false})
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.at(tHexWildcard):
			toks = append(toks, ast.HexWildcard{})
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.at(tHexJump):
			jump, err := parseHexJump(p.cur.Value)
			if err != nil {
				return nil, err
			}
			toks = append(toks, jump)
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.at(tLParen):
			if err := p.advance(); err != nil {
				return nil, err
			}
			alt, err := p.parseHexAlt()
			if err != nil {
				return nil, err
			}
			toks = append(toks, alt)
		default:
			return toks, nil
		}
	}
}

func (p *parser) parseHexAlt() (ast.HexAlt, error) {
	var branches [][]ast.HexToken
	for {
		branch, err := p.parseHexTokens()
		if err != nil {
			return ast.HexAlt{}, err
		}
		branches = append(branches, branch)
		if p.at(tPipe) {
			if err := p.advance(); err != nil {
				return ast.HexAlt{}, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tRParen); err != nil {
		return ast.HexAlt{}, err
	}
	return ast.HexAlt{Branches: branches}, nil
}

func parseHexJump(raw string) (ast.HexJump, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	if !strings.Contains(inner, "-") {
		n, err := strconv.Atoi(inner)
		if err != nil {
			return ast.HexJump{}, fmt.Errorf("parser: bad hex jump %q: %w", raw, err)
		}
		return ast.HexJump{Min: &n, Max: &n}, nil
	}
	parts := strings.SplitN(inner, "-", 2)
	jump := ast.HexJump{}
	if parts[0] != "" {
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return ast.HexJump{}, fmt.Errorf("parser: bad hex jump %q: %w", raw, err)
		}
		jump.Min = &n
	}
	if parts[1] != "" {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return ast.HexJump{}, fmt.Errorf("parser: bad hex jump %q: %w", raw, err)
		}
		jump.Max = &n
	}
	return jump, nil
}

// ---- condition expression grammar ----

func (p *parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(tOr) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(tAnd) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.at(tNot) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.NotExpr{Inner: inner}, nil
	}
	return p.parseComparison()
}

var relOps = map[tokenType]string{
	tEq: "==", tNeq: "!=", tLt: "<", tLe: "<=", tGt: ">", tGe: ">=",
}

// parseComparison also owns "any"/"all"/"for" and the "K of X" quantifier
// form, since all of them begin at the same precedence level as a bare
// relational expression.
func (p *parser) parseComparison() (ast.Expr, error) {
	switch {
	case p.at(tAny):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.finishOf(ast.Count{Kind: ast.CountAny})
	case p.at(tAll):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.finishOf(ast.Count{Kind: ast.CountAll})
	case p.at(tFor):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseForExpr()
	}
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.at(tOf) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.finishOfSet(ast.Count{Kind: ast.CountExpr, N: left})
	}
	if op, ok := relOps[p.tt()]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return ast.BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// finishOf expects "of X" after a bare any/all count.
func (p *parser) finishOf(count ast.Count) (ast.Expr, error) {
	if _, err := p.expect(tOf); err != nil {
		return nil, err
	}
	return p.finishOfSet(count)
}

// finishOfSet parses the string set after "of" and returns an OfExpr, or a
// ForOfExpr if the set is itself followed by a ": ( body )".
func (p *parser) finishOfSet(count ast.Count) (ast.Expr, error) {
	set, err := p.parseStringSet()
	if err != nil {
		return nil, err
	}
	if p.at(tColon) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return ast.ForOfExpr{Count: count, Set: set, Body: body}, nil
	}
	return ast.OfExpr{Count: count, Set: set}, nil
}

func (p *parser) parseStringSet() (ast.StringSet, error) {
	if p.at(tThem) {
		if err := p.advance(); err != nil {
			return ast.StringSet{}, err
		}
		return ast.StringSet{Them: true}, nil
	}
	if _, err := p.expect(tLParen); err != nil {
		return ast.StringSet{}, err
	}
	var names []string
	for {
		switch {
		case p.at(tCondStringID):
			names = append(names, p.cur.Value)
		case p.at(tStringPattern):
			names = append(names, p.cur.Value)
		default:
			return ast.StringSet{}, p.errf("expected string identifier in set, got %q", p.cur.Value)
		}
		if err := p.advance(); err != nil {
			return ast.StringSet{}, err
		}
		if p.at(tComma) {
			if err := p.advance(); err != nil {
				return ast.StringSet{}, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tRParen); err != nil {
		return ast.StringSet{}, err
	}
	return ast.StringSet{Patterns: names}, nil
}

func (p *parser) parseForExpr() (ast.Expr, error) {
	var count ast.Count
	switch {
	case p.at(tAny):
		count = ast.Count{Kind: ast.CountAny}
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.at(tAll):
		count = ast.Count{Kind: ast.CountAll}
		if err := p.advance(); err != nil {
			return nil, err
		}
	default:
		n, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		count = ast.Count{Kind: ast.CountExpr, N: n}
	}
	if p.at(tOf) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		set, err := p.parseStringSet()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tColon); err != nil {
			return nil, err
		}
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return ast.ForOfExpr{Count: count, Set: set, Body: body}, nil
	}
	varTok, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tIn); err != nil {
		return nil, err
	}
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	first, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	var result ast.Expr
	if p.at(tDotDot) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		high, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		if _, err := p.expect(tColon); err != nil {
			return nil, err
		}
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		result = ast.ForInRangeExpr{Count: count, Var: varTok.Value, Low: first, High: high, Body: body}
	} else {
		ints := []ast.Expr{first}
		for p.at(tComma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			ints = append(ints, e)
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		if _, err := p.expect(tColon); err != nil {
			return nil, err
		}
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		result = ast.ForInSetExpr{Count: count, Var: varTok.Value, Ints: ints, Body: body}
	}
	return result, nil
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseUnarySigned()
	if err != nil {
		return nil, err
	}
	for p.at(tPlus) || p.at(tMinus) {
		op := "+"
		if p.at(tMinus) {
			op = "-"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnarySigned()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnarySigned() (ast.Expr, error) {
	if p.at(tMinus) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return ast.BinaryExpr{Op: "-", Left: ast.IntLit{Value: 0}, Right: inner}, nil
	}
	return p.parseTerm()
}

func (p *parser) parseTerm() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.at(tStar):
			op = "*"
		case p.at(tPercent):
			op = "%"
		case p.at(tAmp):
			op = "&"
		case p.at(tCaret):
			op = "^"
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.at(tLParen):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return ast.ParenExpr{Inner: inner}, nil
	case p.at(tIntLit):
		n, err := parseIntLit(p.cur.Value)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.IntLit{Value: n}, nil
	case p.at(tTrue):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.BoolLit{Value: true}, nil
	case p.at(tFalse):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.BoolLit{Value: false}, nil
	case p.at(tFilesize):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Filesize{}, nil
	case p.at(tCondStringID) || p.at(tCondStringCur):
		name := p.cur.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.at(tAt):
			if err := p.advance(); err != nil {
				return nil, err
			}
			pos, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return ast.AtExpr{Name: name, Pos: pos}, nil
		case p.at(tIn):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(tLParen); err != nil {
				return nil, err
			}
			low, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tDotDot); err != nil {
				return nil, err
			}
			high, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tRParen); err != nil {
				return nil, err
			}
			return ast.InRangeExpr{Name: name, Low: low, High: high}, nil
		}
		return ast.StringRef{Name: name}, nil
	case p.at(tStringCount):
		name := "$" + p.cur.Value[1:]
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.StringCount{Name: name}, nil
	case p.at(tStringOffset):
		raw := p.cur.Value
		name := "@"
		if len(raw) > 1 {
			name = "$" + raw[1:]
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		var idx ast.Expr
		if p.at(tLBracket) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tRBracket); err != nil {
				return nil, err
			}
			idx = e
		}
		return ast.StringOffset{Name: name, Index: idx}, nil
	case p.at(tStringLength):
		raw := p.cur.Value
		name := "!"
		if len(raw) > 1 {
			name = "$" + raw[1:]
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		var idx ast.Expr
		if p.at(tLBracket) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tRBracket); err != nil {
				return nil, err
			}
			idx = e
		}
		return ast.StringLength{Name: name, Index: idx}, nil
	case p.at(tIdent):
		name := p.cur.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(tLParen) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishFuncCall(name)
		}
		return ast.Ident{Name: name}, nil
	}
	return nil, p.errf("unexpected token %q in condition", p.cur.Value)
}

func (p *parser) finishFuncCall(name string) (ast.Expr, error) {
	if name == "cuckoo.sync.mutex" && p.at(tRegexLit) {
		pat, _ := splitRegexLiteral(p.cur.Value)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return ast.FuncCall{Name: name, RegexArg: pat, IsRegexArg: true}, nil
	}
	var args []ast.Expr
	if !p.at(tRParen) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(tComma) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(tRParen); err != nil {
		return nil, err
	}
	return ast.FuncCall{Name: name, Args: args}, nil
}

// ---- literal helpers ----

func unquote(lit string) string {
	s, err := strconv.Unquote(lit)
	if err != nil {
		return strings.Trim(lit, `"`)
	}
	return s
}

func splitRegexLiteral(lit string) (string, ast.RegexModifiers) {
	end := strings.LastIndexByte(lit, '/')
	pattern := lit[1:end]
	flags := lit[end+1:]
	return pattern, ast.RegexModifiers{
		CaseInsensitive: strings.ContainsRune(flags, 'i'),
		DotMatchesAll:   strings.ContainsRune(flags, 's'),
		Multiline:       strings.ContainsRune(flags, 'm'),
	}
}

func parseIntLit(s string) (int64, error) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "KB"), strings.HasSuffix(s, "K"):
		mult = 1024
		s = strings.TrimSuffix(strings.TrimSuffix(s, "KB"), "K")
	case strings.HasSuffix(s, "MB"), strings.HasSuffix(s, "M"):
		mult = 1024 * 1024
		s = strings.TrimSuffix(strings.TrimSuffix(s, "MB"), "M")
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parser: bad integer literal %q: %w", s, err)
	}
	return n * mult, nil
}
