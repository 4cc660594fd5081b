// Package lexer implements the single-pass GAL lexer described in spec §4.5.
// It tokenizes a UTF-8 byte buffer into a stream of token.Token values,
// tracking nested multi-line string/comment levels and collecting lex-level
// diagnostics (broken strings, invalid UTF-8) onto the lexeme itself rather
// than aborting the scan, the same "keep going, annotate the lexeme" posture
// the teacher repo uses for malformed PE headers (anomalies collected, not
// fatal).
package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/galang-lang/gal/token"
)

// Lexer scans a single source buffer.
type Lexer struct {
	src    string
	offset int
	line   int
	column int

	// snapshot support for Peek/Restore.
	savedOffset int
	savedLine   int
	savedColumn int

	skipComments bool

	// HotComments collects a `#!directive` comment that starts on line 1;
	// a `#!` comment on any later line, even before the first token, is an
	// ordinary comment and is not collected.
	HotComments []string
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, column: 1, skipComments: true}
}

// SkipComments controls whether comment lexemes are silently dropped
// (default true); disabling it is used by tooling that wants to
// round-trip comments.
func (l *Lexer) SkipComments(v bool) { l.skipComments = v }

func (l *Lexer) PreviousLocation() token.Position {
	return token.Position{Line: l.line, Column: l.column}
}

// Peek scans the next token without consuming it permanently: the lexer
// state is restored after the call unless the caller calls Next, which
// replays the scan.
func (l *Lexer) Peek() token.Token {
	offset, line, column := l.offset, l.line, l.column
	t := l.Next()
	l.offset, l.line, l.column = offset, line, column
	return t
}

func (l *Lexer) at(i int) byte {
	if l.offset+i >= len(l.src) {
		return 0
	}
	return l.src[l.offset+i]
}

func (l *Lexer) cur() byte { return l.at(0) }

func (l *Lexer) advance() byte {
	c := l.cur()
	l.offset++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool  { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isAlnum(c byte) bool  { return isAlpha(c) || isDigit(c) }
func isHexDig(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }

// Next scans and consumes the next token.
func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespace()
		if l.cur() == '#' {
			tok, isComment := l.lexComment()
			if isComment {
				if !l.skipComments {
					return tok
				}
				continue
			}
			return tok
		}
		break
	}

	start := l.PreviousLocation()
	c := l.cur()

	switch {
	case c == 0 && l.offset >= len(l.src):
		return l.emit(token.Eof, start, "")
	case isDigit(c):
		return l.lexNumber(start)
	case isAlpha(c):
		return l.lexIdentifier(start)
	case c == '\'' || c == '"':
		return l.lexQuotedString(start, c)
	case c == '<' && isMultilineOpen(l.src[l.offset:]):
		return l.lexMultilineString(start)
	}

	return l.lexOperator(start)
}

func (l *Lexer) emit(k token.Kind, start token.Position, payload string) token.Token {
	return token.Token{Kind: k, Location: token.Location{Begin: start, End: l.PreviousLocation()}, Payload: payload}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.cur() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

// lexComment handles `# ...\n` line comments and `#<N< ... >N>` block
// comments (the multi-line-string form reused after `#`, per spec §4.5).
func (l *Lexer) lexComment() (token.Token, bool) {
	start := l.PreviousLocation()
	l.advance() // '#'

	if l.cur() == '!' && start.Line == 1 {
		l.advance()
		var sb strings.Builder
		for l.cur() != '\n' && !(l.offset >= len(l.src)) {
			sb.WriteByte(l.advance())
		}
		l.HotComments = append(l.HotComments, sb.String())
		return token.Token{}, true
	}

	if l.cur() == '<' && isMultilineOpen(l.src[l.offset:]) {
		content, ok := l.consumeMultiline()
		if !ok {
			return l.emit(token.BrokenComment, start, content), false
		}
		return l.emit(token.Error, start, content), true
	}

	var sb strings.Builder
	for l.offset < len(l.src) && l.cur() != '\n' {
		sb.WriteByte(l.advance())
	}
	_ = sb
	return token.Token{}, true
}

// isMultilineOpen reports whether s begins with `<N<` for some
// non-negative integer N (possibly empty, meaning level 0).
func isMultilineOpen(s string) bool {
	if len(s) == 0 || s[0] != '<' {
		return false
	}
	i := 1
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i < len(s) && s[i] == '<'
}

// consumeMultiline consumes a `<N< ... >N>` block (string or comment body)
// and returns its inner content. ok is false on mismatch or unterminated
// input (spec §4.5: "broken_string"/"broken_comment" on mismatch).
func (l *Lexer) consumeMultiline() (string, bool) {
	l.advance() // '<'
	levelStart := l.offset
	for isDigit(l.cur()) {
		l.advance()
	}
	levelStr := l.src[levelStart:l.offset]
	if levelStr != "" {
		if n, err := strconv.Atoi(levelStr); err != nil || n > 255 {
			// spec open question: GAL bounds the level at 255 (fits a byte).
			return "level out of range", false
		}
	}
	if l.cur() != '<' {
		return "malformed multi-line level", false
	}
	l.advance() // second '<'

	closer := ">" + levelStr + ">"
	var sb strings.Builder
	for {
		if l.offset >= len(l.src) {
			return "unterminated multi-line block", false
		}
		if l.cur() == '>' && strings.HasPrefix(l.src[l.offset:], closer) {
			for range closer {
				l.advance()
			}
			return sb.String(), true
		}
		sb.WriteByte(l.advance())
	}
}

func (l *Lexer) lexMultilineString(start token.Position) token.Token {
	content, ok := l.consumeMultiline()
	if !ok {
		return l.emit(token.BrokenString, start, content)
	}
	return l.emit(token.RawString, start, content)
}

func (l *Lexer) lexQuotedString(start token.Position, quote byte) token.Token {
	// Triple-quote form: ''' ... ''' or """ ... """.
	triple := l.at(1) == quote && l.at(2) == quote
	if triple {
		l.advance()
		l.advance()
		l.advance()
	} else {
		l.advance()
	}

	var sb strings.Builder
	for {
		c := l.cur()
		if l.offset >= len(l.src) {
			return l.emit(token.BrokenString, start, "unterminated string")
		}
		if !triple && c == '\n' {
			return l.emit(token.BrokenString, start, "unterminated string (bare newline)")
		}
		if c == quote {
			if !triple {
				l.advance()
				break
			}
			if l.at(1) == quote && l.at(2) == quote {
				l.advance()
				l.advance()
				l.advance()
				break
			}
		}
		if c == '\\' {
			l.advance()
			ok := l.lexEscape(&sb)
			if !ok {
				return l.emit(token.BrokenString, start, "malformed escape sequence")
			}
			continue
		}
		sb.WriteByte(l.advance())
	}
	return l.emit(token.String, start, sb.String())
}

// lexEscape decodes one escape sequence after the backslash has been
// consumed, per the standard set in spec §4.5.
func (l *Lexer) lexEscape(sb *strings.Builder) bool {
	c := l.cur()
	switch c {
	case 'n':
		sb.WriteByte('\n')
		l.advance()
	case 'r':
		sb.WriteByte('\r')
		l.advance()
	case 't':
		sb.WriteByte('\t')
		l.advance()
	case '\\':
		sb.WriteByte('\\')
		l.advance()
	case '\'':
		sb.WriteByte('\'')
		l.advance()
	case '"':
		sb.WriteByte('"')
		l.advance()
	case '0':
		sb.WriteByte(0)
		l.advance()
	case 'a':
		sb.WriteByte(7)
		l.advance()
	case 'b':
		sb.WriteByte(8)
		l.advance()
	case 'e':
		sb.WriteByte(27)
		l.advance()
	case 'f':
		sb.WriteByte(12)
		l.advance()
	case 'v':
		sb.WriteByte(11)
		l.advance()
	case 'x':
		l.advance()
		if !isHexDig(l.cur()) || !isHexDig(l.at(1)) {
			return false
		}
		v := hexVal(l.advance())<<4 | hexVal(l.advance())
		sb.WriteByte(byte(v))
	case 'u':
		l.advance()
		if l.cur() != '{' {
			return false
		}
		l.advance()
		start := l.offset
		for isHexDig(l.cur()) {
			l.advance()
		}
		hex := l.src[start:l.offset]
		if l.cur() != '}' || hex == "" {
			return false
		}
		l.advance()
		n, err := strconv.ParseInt(hex, 16, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return false
		}
		sb.WriteRune(rune(n))
	case 'U':
		l.advance()
		start := l.offset
		for i := 0; i < 8 && isHexDig(l.cur()); i++ {
			l.advance()
		}
		hex := l.src[start:l.offset]
		n, err := strconv.ParseInt(hex, 16, 64)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return false
		}
		sb.WriteRune(rune(n))
	case 'z':
		l.advance()
		for l.cur() == ' ' || l.cur() == '\t' || l.cur() == '\n' || l.cur() == '\r' {
			l.advance()
		}
	default:
		return false
	}
	return true
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func (l *Lexer) lexNumber(start token.Position) token.Token {
	var sb strings.Builder
	for isDigit(l.cur()) || l.cur() == '_' {
		c := l.advance()
		if c != '_' {
			sb.WriteByte(c)
		}
	}
	if l.cur() == '.' && isDigit(l.at(1)) {
		sb.WriteByte(l.advance())
		for isDigit(l.cur()) || l.cur() == '_' {
			c := l.advance()
			if c != '_' {
				sb.WriteByte(c)
			}
		}
	}
	if l.cur() == 'e' || l.cur() == 'E' {
		sb.WriteByte(l.advance())
		if l.cur() == '+' || l.cur() == '-' {
			sb.WriteByte(l.advance())
		}
		for isDigit(l.cur()) {
			sb.WriteByte(l.advance())
		}
	}
	text := sb.String()
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return l.emit(token.Error, start, "malformed number literal: "+text)
	}
	tok := l.emit(token.Number, start, text)
	tok.Number = f
	return tok
}

func (l *Lexer) lexIdentifier(start token.Position) token.Token {
	s := l.offset
	for isAlnum(l.cur()) {
		l.advance()
	}
	text := l.src[s:l.offset]
	if kw, ok := token.Keywords[text]; ok {
		return l.emit(kw, start, text)
	}
	return l.emit(token.Name, start, text)
}

type opEntry struct {
	text string
	kind token.Kind
}

// ordered longest-match-first.
var operators = []opEntry{
	{"**=", token.CaretEq},
	{"**", token.Caret},
	{"==", token.Eq},
	{"!=", token.Ne},
	{"<=", token.Le},
	{">=", token.Ge},
	{"+=", token.PlusEq},
	{"-=", token.MinusEq},
	{"*=", token.StarEq},
	{"/=", token.SlashEq},
	{"%=", token.PercentEq},
	{"->", token.Arrow},
	{"::", token.DoubleColon},
	{"=", token.Assign},
	{"<", token.Lt},
	{">", token.Gt},
	{"+", token.Plus},
	{"-", token.Minus},
	{"*", token.Star},
	{"/", token.Slash},
	{"%", token.Percent},
	{":", token.Colon},
	{"(", token.LParen},
	{")", token.RParen},
	{"[", token.LBracket},
	{"]", token.RBracket},
	{"{", token.LBrace},
	{"}", token.RBrace},
	{",", token.Comma},
	{";", token.Semicolon},
	{"..", token.Concat},
	{".", token.Dot},
}

func (l *Lexer) lexOperator(start token.Position) token.Token {
	rest := l.src[l.offset:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.advance()
			}
			return l.emit(op.kind, start, op.text)
		}
	}

	r, size := utf8.DecodeRuneInString(rest)
	if r == utf8.RuneError && size <= 1 {
		l.advance()
		suggestion := confusables[rune(l.src[start.Column-1])]
		msg := "invalid UTF-8 byte"
		if suggestion != "" {
			msg += "; did you mean '" + suggestion + "'?"
		}
		return l.emit(token.BrokenUnicode, start, msg)
	}
	for i := 0; i < size; i++ {
		l.advance()
	}
	if look, ok := confusables[r]; ok {
		return l.emit(token.BrokenUnicode, start, "confusable character; did you mean '"+look+"'?")
	}
	return l.emit(token.BrokenUnicode, start, "unexpected character")
}

// confusables maps common look-alike Unicode punctuation onto the ASCII
// character a user probably meant, per spec §4.5.
var confusables = map[rune]string{
	'‘': "'",
	'’': "'",
	'“': `"`,
	'”': `"`,
	'−': "-",
	'×': "*",
	'⁄': "/",
	'（': "(",
	'）': ")",
}
