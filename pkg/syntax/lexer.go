package syntax

import (
	"strings"
)

// TokenType represents the type of a token.
type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL" // Literal carries the error message
	EOF     TokenType = "EOF"

	IDENT  TokenType = "IDENT" // identifiers and keywords
	NUMBER TokenType = "NUMBER"
	STRING TokenType = "STRING"
	REGEXP TokenType = "REGEXP"
	PUNCT  TokenType = "PUNCT"

	// Template literals. TEMPLATE has no substitutions; the others split a
	// template around its ${...} substitutions.
	TEMPLATE        TokenType = "TEMPLATE"
	TEMPLATE_HEAD   TokenType = "TEMPLATE_HEAD"
	TEMPLATE_MIDDLE TokenType = "TEMPLATE_MIDDLE"
	TEMPLATE_TAIL   TokenType = "TEMPLATE_TAIL"
)

// Token is a lexical token plus the whitespace and comments before it.
// Concatenating Leading+Literal for every token reproduces the input exactly.
type Token struct {
	Type     TokenType
	Literal  string // raw source text of the token
	Leading  string // trivia preceding the token
	Line     int    // 1-based
	Column   int    // 1-based, in bytes
	StartPos int    // byte offset of Literal
	EndPos   int
}

// Pos returns the token's position.
func (t Token) Pos() Position {
	return Position{Line: t.Line, Column: t.Column}
}

func (t Token) is(lit string) bool {
	return t.Type == PUNCT && t.Literal == lit
}

// punctuators ordered longest first so the first prefix match wins.
var punctuators = []string{
	">>>=",
	"...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ";", ",", "<", ">", "+", "-", "*", "/",
	"%", "&", "|", "^", "!", "~", "?", ":", "=", ".", "@", "#",
}

// keywords after which an expression, and so a regular expression literal,
// may start.
var exprKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// keywords whose parenthesized head is followed by a statement, so that
// `if (x) /re/.test(s)` starts a regular expression after the ')'.
var headKeywords = map[string]bool{
	"if": true, "while": true, "for": true, "with": true,
}

// Lexer scans JavaScript source into tokens without losing any text.
type Lexer struct {
	input    string
	position int
	line     int
	column   int

	// braces tracks open '{' and '${': true marks a template substitution.
	braces []bool
	// parens tracks open '(': true marks the head of an if, while, for or with.
	parens []bool
	prev   *Token

	prevKeyword bool // prev is a statement keyword with a head
	prevHead    bool // prev is the ')' closing such a head
}

// NewLexer creates a new Lexer.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

func (l *Lexer) ch() byte {
	if l.position >= len(l.input) {
		return 0
	}
	return l.input[l.position]
}

func (l *Lexer) peekAt(n int) byte {
	if l.position+n >= len(l.input) {
		return 0
	}
	return l.input[l.position+n]
}

func (l *Lexer) eof() bool {
	return l.position >= len(l.input)
}

// advance consumes n bytes, keeping line and column current.
func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.position < len(l.input); i++ {
		if l.input[l.position] == '\n' {
			l.line++
			l.column = 0
		}
		l.position++
		l.column++
	}
}

// NextToken scans the input and returns the next token.
func (l *Lexer) NextToken() Token {
	leading, errTok := l.skipTrivia()
	if errTok != nil {
		errTok.Leading = leading
		return *errTok
	}

	tok := Token{Leading: leading, Line: l.line, Column: l.column, StartPos: l.position}
	start := l.position

	closesHead := false
	ch := l.ch()
	switch {
	case l.eof():
		tok.Type = EOF
	case isIdentStart(ch) || (ch == '\\' && l.peekAt(1) == 'u'):
		l.readIdentifier()
		tok.Type = IDENT
	case isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))):
		l.readNumber()
		tok.Type = NUMBER
	case ch == '"' || ch == '\'':
		if msg := l.readString(ch); msg != "" {
			return l.illegal(tok, msg)
		}
		tok.Type = STRING
	case ch == '`':
		l.advance(1)
		typ, msg := l.readTemplate(TEMPLATE, TEMPLATE_HEAD)
		if msg != "" {
			return l.illegal(tok, msg)
		}
		tok.Type = typ
	case ch == '}' && len(l.braces) > 0 && l.braces[len(l.braces)-1]:
		l.braces = l.braces[:len(l.braces)-1]
		l.advance(1)
		typ, msg := l.readTemplate(TEMPLATE_TAIL, TEMPLATE_MIDDLE)
		if msg != "" {
			return l.illegal(tok, msg)
		}
		tok.Type = typ
	case ch == '/' && l.regexAllowed():
		if msg := l.readRegexp(); msg != "" {
			return l.illegal(tok, msg)
		}
		tok.Type = REGEXP
	default:
		p := l.matchPunct()
		if p == "" {
			l.advance(1)
			return l.illegal(tok, "unexpected character "+quoteByte(ch))
		}
		switch p {
		case "(":
			l.parens = append(l.parens, l.prevKeyword)
		case ")":
			if n := len(l.parens); n > 0 {
				closesHead = l.parens[n-1]
				l.parens = l.parens[:n-1]
			}
		case "{":
			l.braces = append(l.braces, false)
		case "}":
			if len(l.braces) > 0 {
				l.braces = l.braces[:len(l.braces)-1]
			}
		}
		l.advance(len(p))
		tok.Type = PUNCT
	}

	tok.Literal = l.input[start:l.position]
	tok.EndPos = l.position
	if tok.Type == TEMPLATE_HEAD || tok.Type == TEMPLATE_MIDDLE {
		l.braces = append(l.braces, true)
	}
	if tok.Type != EOF {
		l.prevKeyword = tok.Type == IDENT && headKeywords[tok.Literal] && (l.prev == nil || !l.prev.is("."))
		l.prevHead = closesHead
		t := tok
		l.prev = &t
	}
	return tok
}

func (l *Lexer) illegal(tok Token, msg string) Token {
	tok.Type = ILLEGAL
	tok.Literal = msg
	tok.EndPos = l.position
	return tok
}

// skipTrivia consumes whitespace, comments and a leading hashbang line.
func (l *Lexer) skipTrivia() (string, *Token) {
	start := l.position
	if start == 0 && strings.HasPrefix(l.input, "#!") {
		for !l.eof() && l.ch() != '\n' {
			l.advance(1)
		}
	}
	for !l.eof() {
		ch := l.ch()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f':
			l.advance(1)
		case ch == '/' && l.peekAt(1) == '/':
			for !l.eof() && l.ch() != '\n' {
				l.advance(1)
			}
		case ch == '/' && l.peekAt(1) == '*':
			tok := Token{Line: l.line, Column: l.column, StartPos: l.position}
			end := strings.Index(l.input[l.position+2:], "*/")
			if end < 0 {
				l.advance(len(l.input) - l.position)
				tok.Type = ILLEGAL
				tok.Literal = "unterminated comment"
				tok.EndPos = l.position
				return l.input[start:tok.StartPos], &tok
			}
			l.advance(end + 4)
		case ch == 0xC2 && l.peekAt(1) == 0xA0: // no-break space
			l.advance(2)
		case ch == 0xEF && l.peekAt(1) == 0xBB && l.peekAt(2) == 0xBF: // byte order mark
			l.advance(3)
		default:
			return l.input[start:l.position], nil
		}
	}
	return l.input[start:l.position], nil
}

func (l *Lexer) readIdentifier() {
	for !l.eof() {
		ch := l.ch()
		if ch == '\\' && l.peekAt(1) == 'u' {
			l.advance(2)
			continue
		}
		if !isIdentPart(ch) {
			return
		}
		l.advance(1)
	}
}

// readNumber consumes a numeric literal. It is permissive: validating digits
// is left to the JavaScript engine that eventually runs the bundle.
func (l *Lexer) readNumber() {
	hex := l.ch() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X')
	for !l.eof() {
		ch := l.ch()
		switch {
		case isIdentPart(ch) || ch == '.':
			l.advance(1)
		case (ch == '+' || ch == '-') && !hex && (l.input[l.position-1] == 'e' || l.input[l.position-1] == 'E'):
			l.advance(1)
		default:
			return
		}
	}
}

// readString consumes a quoted string. It returns an error message or "".
func (l *Lexer) readString(quote byte) string {
	l.advance(1)
	for {
		switch ch := l.ch(); {
		case l.eof(), ch == '\n':
			return "unterminated string literal"
		case ch == '\\':
			if l.peekAt(1) == '\r' && l.peekAt(2) == '\n' {
				l.advance(3)
			} else {
				l.advance(2)
			}
		case ch == quote:
			l.advance(1)
			return ""
		default:
			l.advance(1)
		}
	}
}

// readTemplate consumes template characters after a '`' or a substitution's
// closing '}'. It returns end when the template closes and open when a new
// substitution starts.
func (l *Lexer) readTemplate(end, open TokenType) (TokenType, string) {
	for {
		switch ch := l.ch(); {
		case l.eof():
			return ILLEGAL, "unterminated template literal"
		case ch == '\\':
			l.advance(2)
		case ch == '`':
			l.advance(1)
			return end, ""
		case ch == '$' && l.peekAt(1) == '{':
			l.advance(2)
			return open, ""
		default:
			l.advance(1)
		}
	}
}

func (l *Lexer) readRegexp() string {
	l.advance(1)
	inClass := false
	for {
		switch ch := l.ch(); {
		case l.eof(), ch == '\n':
			return "unterminated regular expression"
		case ch == '\\':
			l.advance(2)
		case ch == '[':
			inClass = true
			l.advance(1)
		case ch == ']':
			inClass = false
			l.advance(1)
		case ch == '/' && !inClass:
			l.advance(1)
			for !l.eof() && isIdentPart(l.ch()) {
				l.advance(1)
			}
			return ""
		default:
			l.advance(1)
		}
	}
}

// regexAllowed decides whether '/' starts a regular expression or is the
// division operator, based on the previous significant token.
func (l *Lexer) regexAllowed() bool {
	if l.prev == nil {
		return true
	}
	switch l.prev.Type {
	case IDENT:
		return exprKeywords[l.prev.Literal]
	case NUMBER, STRING, REGEXP, TEMPLATE, TEMPLATE_TAIL:
		return false
	case PUNCT:
		switch l.prev.Literal {
		case ")":
			return l.prevHead
		case "]", "++", "--":
			return false
		}
	}
	return true
}

func (l *Lexer) matchPunct() string {
	rest := l.input[l.position:]
	for _, p := range punctuators {
		if strings.HasPrefix(rest, p) {
			// a?.5:1 is a conditional, not optional chaining
			if p == "?." && isDigit(l.peekAt(2)) {
				continue
			}
			return p
		}
	}
	return ""
}

func isIdentStart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func quoteByte(ch byte) string {
	return "'" + string(rune(ch)) + "'"
}
