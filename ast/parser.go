// Copyright 2024 The ClickGraph Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/genezhang/clickgraph/cgqerrors"
)

// Parser builds a Query from a token stream produced by Lexer.
type Parser struct {
	lex     *Lexer
	cur     Token
	lookbuf []Token
}

// Parse parses src into a Query, or returns a *cgqerrors.CompileError with
// Kind=ParseError (or LexError) carrying a source span (spec §4.1).
func Parse(src string) (*Query, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != EOF {
		return nil, p.errf("unexpected trailing input")
	}
	return q, nil
}

func (p *Parser) advance() error {
	if len(p.lookbuf) > 0 {
		p.cur = p.lookbuf[0]
		p.lookbuf = p.lookbuf[1:]
		return nil
	}
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return &cgqerrors.CompileError{
		Kind:    cgqerrors.KindParseError,
		Message: fmt.Sprintf(format, args...) + fmt.Sprintf(" (got %s %q)", p.cur.Kind, p.cur.Text),
		Span:    &cgqerrors.Span{Line: p.cur.Line, Column: p.cur.Column, Length: runeLen(p.cur.Text)},
	}
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	if p.cur.Kind != k {
		return Token{}, p.errf("expected %s", k)
	}
	t := p.cur
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return t, nil
}

func (p *Parser) at(k TokenKind) bool { return p.cur.Kind == k }

// --- Query & clauses ---

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}
	for {
		if p.at(EOF) {
			break
		}
		clause, stop, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
		q.Clauses = append(q.Clauses, clause)
	}
	if p.at(UNION) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(ALL); err != nil {
			return nil, err
		}
		right, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		left := &Query{Clauses: q.Clauses}
		return &Query{Union: &UnionAll{Left: left, Right: right}}, nil
	}
	return q, nil
}

func (p *Parser) parseClause() (Clause, bool, error) {
	switch p.cur.Kind {
	case USE:
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, false, err
		}
		return &UseClause{Catalog: name.Text}, false, nil

	case MATCH:
		return p.parseMatch(false)

	case OPTIONAL:
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		if _, err := p.expect(MATCH); err != nil {
			return nil, false, err
		}
		return p.parseMatchBody(true)

	case WHERE:
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		return &WhereClause{Predicate: expr}, false, nil

	case WITH:
		return p.parseWith()

	case UNWIND:
		return p.parseUnwind()

	case RETURN:
		return p.parseReturn()

	default:
		return nil, true, nil
	}
}

func (p *Parser) parseMatch(optional bool) (Clause, bool, error) {
	if err := p.advance(); err != nil {
		return nil, false, err
	}
	return p.parseMatchBody(optional)
}

func (p *Parser) parseMatchBody(optional bool) (Clause, bool, error) {
	var patterns []*Pattern
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, false, err
		}
		patterns = append(patterns, pat)
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, false, err
			}
			continue
		}
		break
	}
	return &MatchClause{Optional: optional, Patterns: patterns}, false, nil
}

func (p *Parser) parseWith() (Clause, bool, error) {
	if err := p.advance(); err != nil {
		return nil, false, err
	}
	distinct := false
	if p.at(DISTINCT) {
		distinct = true
		if err := p.advance(); err != nil {
			return nil, false, err
		}
	}
	projs, err := p.parseProjectionList()
	if err != nil {
		return nil, false, err
	}
	var where Expression
	if p.at(WHERE) {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		where, err = p.parseExpr()
		if err != nil {
			return nil, false, err
		}
	}
	return &WithClause{Projections: projs, Distinct: distinct, Where: where}, false, nil
}

func (p *Parser) parseUnwind() (Clause, bool, error) {
	if err := p.advance(); err != nil {
		return nil, false, err
	}
	src, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	if _, err := p.expect(AS); err != nil {
		return nil, false, err
	}
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, false, err
	}
	return &UnwindClause{Source: src, As: name.Text}, false, nil
}

func (p *Parser) parseReturn() (Clause, bool, error) {
	if err := p.advance(); err != nil {
		return nil, false, err
	}
	distinct := false
	if p.at(DISTINCT) {
		distinct = true
		if err := p.advance(); err != nil {
			return nil, false, err
		}
	}
	projs, err := p.parseProjectionList()
	if err != nil {
		return nil, false, err
	}
	rc := &ReturnClause{Projections: projs, Distinct: distinct}
	if p.at(ORDER) {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		if _, err := p.expect(BY); err != nil {
			return nil, false, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, false, err
			}
			desc := false
			if p.at(IDENT) && strings.EqualFold(p.cur.Text, "DESC") {
				desc = true
				if err := p.advance(); err != nil {
					return nil, false, err
				}
			} else if p.at(IDENT) && strings.EqualFold(p.cur.Text, "ASC") {
				if err := p.advance(); err != nil {
					return nil, false, err
				}
			}
			rc.OrderBy = append(rc.OrderBy, OrderTerm{Expr: e, Descending: desc})
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, false, err
				}
				continue
			}
			break
		}
	}
	if p.at(SKIP) {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		rc.Skip = e
	}
	if p.at(LIMIT) {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		rc.Limit = e
	}
	return rc, false, nil
}

func (p *Parser) parseProjectionList() ([]Projection, error) {
	var out []Projection
	for {
		proj, err := p.parseProjection()
		if err != nil {
			return nil, err
		}
		out = append(out, proj)
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseProjection() (Projection, error) {
	// Bare variable with no trailing '.' or function-call parens is a
	// wildcard whole-entity return: RETURN n
	if p.at(IDENT) {
		name := p.cur.Text
		save := p.cur
		lookahead, err := p.peekNext()
		if err != nil {
			return Projection{}, err
		}
		if lookahead.Kind != DOT && lookahead.Kind != LPAREN {
			if err := p.advance(); err != nil {
				return Projection{}, err
			}
			alias := ""
			if p.at(AS) {
				if err := p.advance(); err != nil {
					return Projection{}, err
				}
				a, err := p.expect(IDENT)
				if err != nil {
					return Projection{}, err
				}
				alias = a.Text
			}
			return Projection{Wildcard: true, Var: name, Alias: alias}, nil
		}
		_ = save
	}
	expr, err := p.parseExpr()
	if err != nil {
		return Projection{}, err
	}
	alias := ""
	if p.at(AS) {
		if err := p.advance(); err != nil {
			return Projection{}, err
		}
		a, err := p.expect(IDENT)
		if err != nil {
			return Projection{}, err
		}
		alias = a.Text
	}
	return Projection{Expr: expr, Alias: alias}, nil
}

// peekNext looks one token ahead without consuming p.cur, buffering the
// lookahead token for the following advance().
func (p *Parser) peekNext() (Token, error) {
	if len(p.lookbuf) > 0 {
		return p.lookbuf[0], nil
	}
	t, err := p.lex.Next()
	if err != nil {
		return Token{}, err
	}
	p.lookbuf = append(p.lookbuf, t)
	return t, nil
}

// --- Patterns ---

func (p *Parser) parsePattern() (*Pattern, error) {
	pat := &Pattern{}
	// Optional "p = " path-variable binding, or shortestPath(...) wrapper.
	if p.at(IDENT) {
		next, err := p.peekNext()
		if err != nil {
			return nil, err
		}
		if next.Kind == EQ {
			pat.PathVar = p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil { // consume '='
				return nil, err
			}
		}
	}
	if p.at(SHORTEST_PATH) || p.at(ALL_SHORTEST_PATHS) {
		pat.ShortestPath = p.at(SHORTEST_PATH)
		pat.AllShortestPaths = p.at(ALL_SHORTEST_PATHS)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		if err := p.parsePatternSegments(pat); err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return pat, nil
	}
	if err := p.parsePatternSegments(pat); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *Parser) parsePatternSegments(pat *Pattern) error {
	node, err := p.parseNodePattern()
	if err != nil {
		return err
	}
	pat.Segments = append(pat.Segments, node)
	for p.at(DASH) || p.at(ARROW_L) {
		rel, err := p.parseRelPattern()
		if err != nil {
			return err
		}
		pat.Segments = append(pat.Segments, rel)
		node, err := p.parseNodePattern()
		if err != nil {
			return err
		}
		pat.Segments = append(pat.Segments, node)
	}
	return nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	n := &NodePattern{}
	if p.at(IDENT) {
		n.Var = p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.at(COLON) {
		labels, err := p.parseLabelList()
		if err != nil {
			return nil, err
		}
		n.Labels = labels
	}
	if p.at(LBRACE) {
		props, err := p.parsePropertyMap()
		if err != nil {
			return nil, err
		}
		n.Properties = props
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseLabelList() ([]string, error) {
	var labels []string
	for p.at(COLON) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		id, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		labels = append(labels, id.Text)
		for p.at(PIPE) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			id, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			labels = append(labels, id.Text)
		}
	}
	return labels, nil
}

func (p *Parser) parsePropertyMap() ([]PropertyEquality, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var out []PropertyEquality
	for !p.at(RBRACE) {
		key, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, PropertyEquality{Name: key.Text, Value: val})
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) parseRelPattern() (*RelationshipPattern, error) {
	rel := &RelationshipPattern{Direction: DirUndirected}
	leftArrow := false
	if p.at(ARROW_L) {
		leftArrow = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		if _, err := p.expect(DASH); err != nil {
			return nil, err
		}
	}
	hasBracket := p.at(LBRACKET)
	if hasBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(IDENT) {
			rel.Var = p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.at(COLON) {
			types, err := p.parseTypeList()
			if err != nil {
				return nil, err
			}
			rel.Types = types
		}
		if p.at(STAR) {
			hr, err := p.parseHopRange()
			if err != nil {
				return nil, err
			}
			rel.Range = hr
		}
		if p.at(LBRACE) {
			props, err := p.parsePropertyMap()
			if err != nil {
				return nil, err
			}
			rel.Properties = props
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
	}
	if leftArrow {
		if _, err := p.expect(DASH); err != nil {
			return nil, err
		}
		rel.Direction = DirIncoming
		return rel, nil
	}
	if p.at(ARROW_R) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rel.Direction = DirOutgoing
		return rel, nil
	}
	if _, err := p.expect(DASH); err != nil {
		return nil, err
	}
	rel.Direction = DirUndirected
	return rel, nil
}

func (p *Parser) parseTypeList() ([]string, error) {
	var types []string
	for p.at(COLON) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		id, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		types = append(types, id.Text)
		for p.at(PIPE) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			id, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			types = append(types, id.Text)
		}
	}
	return types, nil
}

// parseHopRange parses "*", "*n", "*n..m", "*n.." after the leading STAR has
// been seen but not consumed.
func (p *Parser) parseHopRange() (*HopRange, error) {
	if err := p.advance(); err != nil { // consume '*'
		return nil, err
	}
	hr := &HopRange{Min: 1, Max: Unbounded}
	if p.at(NUMBER) {
		n, err := strconv.Atoi(p.cur.Text)
		if err != nil {
			return nil, p.errf("invalid hop count %q", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		hr.Min = n
		hr.Max = n
		if p.at(DOTDOT) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.at(NUMBER) {
				m, err := strconv.Atoi(p.cur.Text)
				if err != nil {
					return nil, p.errf("invalid hop count %q", p.cur.Text)
				}
				if err := p.advance(); err != nil {
					return nil, err
				}
				hr.Max = m
			} else {
				hr.Max = Unbounded
			}
		}
	} else {
		hr.Min = 0
		hr.Max = Unbounded
	}
	return hr, nil
}

// --- Expressions (precedence climbing) ---
// OR < AND < NOT < comparison < additive < multiplicative < unary < primary

func (p *Parser) parseExpr() (Expression, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(OR) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(AND) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expression, error) {
	if p.at(NOT) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var cmpOps = map[TokenKind]string{
	EQ: "=", NEQ: "<>", LT: "<", LE: "<=", GT: ">", GE: ">=",
}

func (p *Parser) parseComparison() (Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := cmpOps[p.cur.Kind]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, Left: left, Right: right}, nil
	}
	if p.at(IN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: "IN", Left: left, Right: right}, nil
	}
	if p.at(IS) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		neg := false
		if p.at(NOT) {
			neg = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(NULL); err != nil {
			return nil, err
		}
		return &IsNull{Operand: left, Negated: neg}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(PLUS) || p.at(DASH) {
		op := "+"
		if p.at(DASH) {
			op = "-"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(STAR) || p.at(SLASH) || p.at(PERCENT) {
		op := map[TokenKind]string{STAR: "*", SLASH: "/", PERCENT: "%"}[p.cur.Kind]
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	if p.at(DASH) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expression, error) {
	switch p.cur.Kind {
	case NUMBER:
		text := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errf("invalid number %q", text)
		}
		return &Literal{Value: f}, nil
	case STRING:
		text := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: text}, nil
	case TRUE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: true}, nil
	case FALSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: false}, nil
	case NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: nil}, nil
	case PARAM:
		name := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ParamRef{Name: name}, nil
	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case LBRACKET:
		if err := p.advance(); err != nil {
			return nil, err
		}
		var items []Expression
		for !p.at(RBRACKET) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, e)
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return &ListLiteral{Items: items}, nil
	case CASE:
		return p.parseCase()
	case IDENT:
		return p.parseIdentExpr()
	}
	return nil, p.errf("unexpected token in expression")
}

func (p *Parser) parseCase() (Expression, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	ce := &CaseExpr{}
	if !p.at(WHEN) {
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Operand = operand
	}
	for p.at(WHEN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(THEN); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, CaseWhen{Cond: cond, Then: then})
	}
	if p.at(ELSE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if _, err := p.expect(END); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *Parser) parseIdentExpr() (Expression, error) {
	name := p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.at(DOT) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		prop, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return &PropertyAccess{Var: name, Prop: prop.Text}, nil
	}
	if p.at(LPAREN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		fc := &FuncCall{Name: name}
		if p.at(DISTINCT) {
			fc.Distinct = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		for !p.at(RPAREN) {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			fc.Args = append(fc.Args, arg)
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return fc, nil
	}
	return &VarRef{Name: name}, nil
}
