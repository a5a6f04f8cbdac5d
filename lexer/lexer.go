// Package lexer implements FlowQuery's tokenizer: a single left-to-right
// pass turning query text into a token.Token stream (spec §4.1).
//
// Grounded on freeeve/machparse/lexer/lexer.go: a pooled scanner struct
// with Next/Peek and a scan() dispatch switch, one scanX helper per
// token family.
package lexer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/token"
)

// Lexer scans query text into tokens. Zero value is not usable; use
// New or the pooled Get.
type Lexer struct {
	input  string
	pos    int // next unread byte offset
	line   int
	lineAt int // byte offset where the current line started

	peeked  *token.Token
	peekErr error
}

var pool = sync.Pool{New: func() interface{} { return &Lexer{} }}

// Get returns a pooled Lexer reset to scan input. Pair with Put.
func Get(input string) *Lexer {
	l := pool.Get().(*Lexer)
	l.Reset(input)
	return l
}

// Put returns l to the pool. l must not be used afterwards.
func Put(l *Lexer) { pool.Put(l) }

// New allocates a fresh, unpooled Lexer.
func New(input string) *Lexer {
	l := &Lexer{}
	l.Reset(input)
	return l
}

// Clone returns an independent copy of l positioned at the same point
// in the input, for the parser's multi-token lookahead past what Peek
// alone can see (e.g. disambiguating `NOT STARTS WITH` three tokens
// ahead without disturbing l's own cursor).
func (l *Lexer) Clone() *Lexer {
	cp := *l
	return &cp
}

// Reset rewinds l to scan a new input from the start.
func (l *Lexer) Reset(input string) {
	l.input = input
	l.pos = 0
	l.line = 1
	l.lineAt = 0
	l.peeked = nil
	l.peekErr = nil
}

func (l *Lexer) posAt(offset int) token.Pos {
	return token.Pos{Offset: offset, Line: l.line, Column: offset - l.lineAt + 1}
}

// Peek returns the next significant (non-whitespace, non-comment)
// token without consuming it.
func (l *Lexer) Peek() (token.Token, error) {
	if l.peeked == nil {
		t, err := l.next()
		l.peeked = &t
		l.peekErr = err
	}
	return *l.peeked, l.peekErr
}

// Next returns and consumes the next significant token. Whitespace and
// comment tokens are scanned and discarded internally per spec §4.1.
func (l *Lexer) Next() (token.Token, error) {
	if l.peeked != nil {
		t, err := *l.peeked, l.peekErr
		l.peeked = nil
		l.peekErr = nil
		return t, err
	}
	return l.next()
}

func (l *Lexer) next() (token.Token, error) {
	for {
		t, err := l.scan()
		if err != nil {
			return t, err
		}
		if t.Kind == token.Whitespace || t.Kind == token.Comment {
			continue
		}
		return t, nil
	}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.input) }

func (l *Lexer) peekByte() byte {
	if l.eof() {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() byte {
	b := l.input[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.lineAt = l.pos
	}
	return b
}

func (l *Lexer) scan() (token.Token, error) {
	start := l.pos
	if l.eof() {
		return token.Token{Kind: token.EOF, Pos: l.posAt(start)}, nil
	}

	b := l.peekByte()
	switch {
	case isSpace(b):
		return l.scanWhitespace(start), nil
	case b == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '*':
		return l.scanComment(start)
	case b == '"' || b == '\'':
		return l.scanString(start, b, false)
	case b == '`':
		return l.scanBacktick(start)
	case (b == 'f' || b == 'F') && l.pos+1 < len(l.input) && (l.input[l.pos+1] == '"' || l.input[l.pos+1] == '\''):
		l.advance()
		quote := l.peekByte()
		return l.scanString(start, quote, true)
	case isDigit(b):
		return l.scanNumber(start), nil
	case isIdentStart(b):
		return l.scanIdentOrKeyword(start), nil
	case strings.IndexByte(token.Symbols, b) >= 0 && !strings.HasPrefix(l.input[l.pos:], ".."):
		l.advance()
		return token.Token{Kind: token.Symbol, Value: string(b), CaseSensitiveValue: string(b), Pos: l.posAt(start)}, nil
	default:
		if op, n := token.LookupOperator(l.input[l.pos:]); n > 0 {
			for i := 0; i < n; i++ {
				l.advance()
			}
			return token.Token{Kind: token.Operator, Value: op, CaseSensitiveValue: op, Pos: l.posAt(start)}, nil
		}
		l.advance()
		return token.Token{}, fqerrors.At(l.posAt(start), fqerrors.Lexical.New(fmt.Sprintf("unexpected character %q", b)))
	}
}

func (l *Lexer) scanWhitespace(start int) token.Token {
	for !l.eof() && isSpace(l.peekByte()) {
		l.advance()
	}
	return token.Token{Kind: token.Whitespace, Value: l.input[start:l.pos], Pos: l.posAt(start)}
}

func (l *Lexer) scanComment(start int) (token.Token, error) {
	l.advance() // '/'
	l.advance() // '*'
	for {
		if l.eof() {
			return token.Token{}, fqerrors.At(l.posAt(start), fqerrors.Lexical.New("unterminated comment"))
		}
		if l.peekByte() == '*' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '/' {
			l.advance()
			l.advance()
			break
		}
		l.advance()
	}
	return token.Token{Kind: token.Comment, Value: l.input[start:l.pos], Pos: l.posAt(start)}, nil
}

func (l *Lexer) scanBacktick(start int) (token.Token, error) {
	l.advance() // opening `
	contentStart := l.pos
	for {
		if l.eof() {
			return token.Token{}, fqerrors.At(l.posAt(start), fqerrors.Lexical.New("unterminated back-tick identifier"))
		}
		if l.peekByte() == '`' {
			content := l.input[contentStart:l.pos]
			l.advance()
			return token.Token{
				Kind:               token.BacktickString,
				Value:              content,
				CaseSensitiveValue: content,
				Pos:                l.posAt(start),
			}, nil
		}
		l.advance()
	}
}

// scanString handles "...", '...' and, when fstring is set, f"..."/f'...'
// with {expr} interpolation and {{ / }} escaping (spec §4.1).
func (l *Lexer) scanString(start int, quote byte, fstring bool) (token.Token, error) {
	l.advance() // opening quote
	var raw strings.Builder
	var parts []token.FStringPart
	var literal strings.Builder

	flushLiteral := func() {
		if fstring {
			parts = append(parts, token.FStringPart{Literal: literal.String()})
			literal.Reset()
		}
	}

	for {
		if l.eof() {
			return token.Token{}, fqerrors.At(l.posAt(start), fqerrors.Lexical.New("unterminated string literal"))
		}
		b := l.peekByte()
		if b == quote {
			l.advance()
			break
		}
		if b == '\\' && l.pos+1 < len(l.input) {
			l.advance()
			esc := l.advance()
			decoded := decodeEscape(esc)
			raw.WriteByte(decoded)
			literal.WriteByte(decoded)
			continue
		}
		if fstring && b == '{' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '{' {
				l.advance()
				l.advance()
				raw.WriteByte('{')
				literal.WriteByte('{')
				continue
			}
			flushLiteral()
			l.advance() // '{'
			exprStart := l.pos
			depth := 1
			for depth > 0 {
				if l.eof() {
					return token.Token{}, fqerrors.At(l.posAt(start), fqerrors.Lexical.New("unterminated f-string expression"))
				}
				c := l.peekByte()
				if c == '{' {
					depth++
				} else if c == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				l.advance()
			}
			exprText := l.input[exprStart:l.pos]
			l.advance() // closing '}'
			parts = append(parts, token.FStringPart{Expr: exprText, IsExpr: true})
			continue
		}
		if fstring && b == '}' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '}' {
			l.advance()
			l.advance()
			raw.WriteByte('}')
			literal.WriteByte('}')
			continue
		}
		raw.WriteByte(b)
		literal.WriteByte(b)
		l.advance()
	}
	flushLiteral()

	kind := token.String
	if fstring {
		kind = token.FString
	}
	return token.Token{
		Kind:               kind,
		Value:              raw.String(),
		CaseSensitiveValue: raw.String(),
		Pos:                l.posAt(start),
		FStringParts:       parts,
	}, nil
}

func decodeEscape(b byte) byte {
	switch b {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return b
	}
}

func (l *Lexer) scanNumber(start int) token.Token {
	for !l.eof() && isDigit(l.peekByte()) {
		l.advance()
	}
	if !l.eof() && l.peekByte() == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]) {
		l.advance()
		for !l.eof() && isDigit(l.peekByte()) {
			l.advance()
		}
	}
	text := l.input[start:l.pos]
	return token.Token{Kind: token.Number, Value: text, CaseSensitiveValue: text, Pos: l.posAt(start)}
}

func (l *Lexer) scanIdentOrKeyword(start int) token.Token {
	for !l.eof() && isIdentChar(l.peekByte()) {
		l.advance()
	}
	text := l.input[start:l.pos]
	upper := strings.ToUpper(text)

	switch upper {
	case "TRUE", "FALSE":
		return token.Token{Kind: token.Boolean, Value: upper, CaseSensitiveValue: text, Pos: l.posAt(start)}
	case "NULL":
		return token.Token{Kind: token.Keyword, Value: upper, CaseSensitiveValue: text, Pos: l.posAt(start)}
	}
	if token.WordOperators[upper] {
		return token.Token{Kind: token.Operator, Value: upper, CaseSensitiveValue: text, Pos: l.posAt(start)}
	}
	if token.Keywords[upper] {
		return token.Token{Kind: token.Keyword, Value: upper, CaseSensitiveValue: text, Pos: l.posAt(start)}
	}
	return token.Token{Kind: token.Identifier, Value: text, CaseSensitiveValue: text, Pos: l.posAt(start)}
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentChar(b byte) bool { return isIdentStart(b) || isDigit(b) }
