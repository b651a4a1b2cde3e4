package reader

import (
	"strconv"
	"strings"

	"github.com/pongascript/pong/interp"
)

// Parser turns a token stream into interp.Value trees. It builds Array
// values for "#( ... )", Sexpr values for "( ... )", List values for
// "'( ... )", and Symbol values for "'ident".
type Parser struct {
	lex    *Lexer
	tok    Token
	errors ErrorList
}

// NewParser creates a Parser over src.
func NewParser(src string) *Parser {
	p := &Parser{lex: NewLexer(src)}
	p.next()
	return p
}

func (p *Parser) next() {
	p.tok = p.lex.Next()
}

func (p *Parser) errorf(pos Position, format string, args ...any) {
	p.errors.Add(pos, format, args...)
}

// ParseOne parses exactly one top-level form from src and returns it.
// Trailing tokens after the form are an error.
func ParseOne(src string) (interp.Value, error) {
	p := NewParser(src)
	v := p.parseValue()
	if p.tok.Kind != TokEOF {
		p.errorf(p.tok.Pos, "unexpected input after expression")
	}
	if errs := append(p.errors, p.lex.Errors()...); len(errs) > 0 {
		errs.Sort()
		return interp.Value{}, errs
	}
	return v, nil
}

// ParseAll parses every top-level form in src, in order — used to load
// whole files (see the load builtin registered by cmd/pong).
func ParseAll(src string) ([]interp.Value, error) {
	p := NewParser(src)
	var out []interp.Value
	for p.tok.Kind != TokEOF {
		out = append(out, p.parseValue())
	}
	if errs := append(p.errors, p.lex.Errors()...); len(errs) > 0 {
		errs.Sort()
		return nil, errs
	}
	return out, nil
}

func (p *Parser) parseValue() interp.Value {
	switch p.tok.Kind {
	case TokEOF:
		p.errorf(p.tok.Pos, "unexpected end of input")
		return interp.Null
	case TokLParen:
		return p.parseSexpr()
	case TokVecOpen:
		return p.parseVector()
	case TokQuote:
		return p.parseQuoted()
	case TokInt:
		n, err := parseInt(p.tok.Text)
		if err != nil {
			p.errorf(p.tok.Pos, "malformed integer %q", p.tok.Text)
		}
		p.next()
		return interp.NumberValue(interp.Int(n))
	case TokFloat:
		f, err := strconv.ParseFloat(p.tok.Text, 64)
		if err != nil {
			p.errorf(p.tok.Pos, "malformed float %q", p.tok.Text)
		}
		p.next()
		return interp.NumberValue(interp.Float(f))
	case TokString:
		s := p.tok.Text
		p.next()
		return interp.StringValue(s)
	case TokChar:
		r := []rune(p.tok.Text)[0]
		p.next()
		return interp.CharValue(r)
	case TokTrue:
		p.next()
		return interp.True
	case TokFalse:
		p.next()
		return interp.False
	case TokIdent:
		name := p.tok.Text
		p.next()
		return interp.IdentifierValue(name)
	case TokRParen:
		p.errorf(p.tok.Pos, "unexpected ')'")
		p.next()
		return interp.Null
	default:
		p.errorf(p.tok.Pos, "unexpected token")
		p.next()
		return interp.Null
	}
}

// parseInt converts an integer token, honoring the #b/#o/#x radix
// prefixes the lexer normalizes to lowercase.
func parseInt(text string) (int64, error) {
	if strings.HasPrefix(text, "#") && len(text) >= 2 {
		base := 10
		switch text[1] {
		case 'b':
			base = 2
		case 'o':
			base = 8
		case 'x':
			base = 16
		}
		return strconv.ParseInt(text[2:], base, 64)
	}
	return strconv.ParseInt(text, 10, 64)
}

func (p *Parser) parseItems(close TokKind) []interp.Value {
	var items []interp.Value
	for p.tok.Kind != close && p.tok.Kind != TokEOF {
		items = append(items, p.parseValue())
	}
	if p.tok.Kind != close {
		p.errorf(p.tok.Pos, "unterminated form, expected closing ')'")
		return items
	}
	p.next() // consume close
	return items
}

func (p *Parser) parseSexpr() interp.Value {
	p.next() // consume '('
	items := p.parseItems(TokRParen)
	return interp.SexprValue(items)
}

func (p *Parser) parseVector() interp.Value {
	p.next() // consume '#('
	items := p.parseItems(TokRParen)
	return interp.ArrayValue(items)
}

// parseQuoted handles "'ident" (a Symbol) and "'( ... )" (a quoted List
// literal, built directly rather than expanded to a runtime (quote ...)
// call — Pongascript's reader produces List values as data immediately).
func (p *Parser) parseQuoted() interp.Value {
	pos := p.tok.Pos
	p.next() // consume '\''
	switch p.tok.Kind {
	case TokLParen:
		p.next() // consume '('
		items := p.parseItems(TokRParen)
		return interp.ListValue(items)
	case TokIdent:
		name := p.tok.Text
		p.next()
		return interp.SymbolValue(name)
	default:
		p.errorf(pos, "expected an identifier or '(' after '\\''")
		return interp.Null
	}
}
