// Package token defines the lexeme kinds and source positions produced by
// the GAL lexer and consumed by the parser.
package token

import "fmt"

// Kind identifies the category of a lexeme.
type Kind uint8

const (
	Eof Kind = iota
	Error

	// Literals
	Number
	String
	RawString
	Name

	// Broken lexemes (lex errors carried forward so parsing can continue)
	BrokenString
	BrokenComment
	BrokenUnicode

	// Keywords
	KeywordAnd
	KeywordBreak
	KeywordContinue
	KeywordDeclare
	KeywordDo
	KeywordElse
	KeywordElseif
	KeywordEnd
	KeywordExport
	KeywordFalse
	KeywordFor
	KeywordFunction
	KeywordIf
	KeywordIn
	KeywordLocal
	KeywordNull
	KeywordNot
	KeywordOr
	KeywordRepeat
	KeywordReturn
	KeywordThen
	KeywordTrue
	KeywordUndefined
	KeywordUntil
	KeywordUsing
	KeywordWhile

	// Operators and punctuation
	Assign     // =
	Eq         // ==
	Ne         // !=
	Lt         // <
	Le         // <=
	Gt         // >
	Ge         // >=
	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /
	Percent    // %
	Caret      // **
	Concat     // ..
	PlusEq     // +=
	MinusEq    // -=
	StarEq     // *=
	SlashEq    // /=
	PercentEq  // %=
	CaretEq    // **=
	Colon      // :
	DoubleColon // ::
	Arrow      // ->
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Semicolon
	Dot
)

var names = map[Kind]string{
	Eof:             "<eof>",
	Error:           "<error>",
	Number:          "number",
	String:          "string",
	RawString:       "raw_string",
	Name:            "name",
	BrokenString:    "broken_string",
	BrokenComment:   "broken_comment",
	BrokenUnicode:   "broken_unicode",
	KeywordAnd:      "and",
	KeywordBreak:    "break",
	KeywordContinue: "continue",
	KeywordDeclare:  "declare",
	KeywordDo:       "do",
	KeywordElse:     "else",
	KeywordElseif:   "elseif",
	KeywordEnd:      "end",
	KeywordExport:   "export",
	KeywordFalse:    "false",
	KeywordFor:      "for",
	KeywordFunction: "function",
	KeywordIf:       "if",
	KeywordIn:       "in",
	KeywordLocal:    "local",
	KeywordNull:     "null",
	KeywordNot:      "not",
	KeywordOr:       "or",
	KeywordRepeat:   "repeat",
	KeywordReturn:   "return",
	KeywordThen:     "then",
	KeywordTrue:     "true",
	KeywordUndefined: "undefined",
	KeywordUntil:    "until",
	KeywordUsing:    "using",
	KeywordWhile:    "while",
	Assign:          "=",
	Eq:              "==",
	Ne:              "!=",
	Lt:              "<",
	Le:              "<=",
	Gt:              ">",
	Ge:              ">=",
	Plus:            "+",
	Minus:           "-",
	Star:            "*",
	Slash:           "/",
	Percent:         "%",
	Caret:           "**",
	Concat:          "..",
	PlusEq:          "+=",
	MinusEq:         "-=",
	StarEq:          "*=",
	SlashEq:         "/=",
	PercentEq:       "%=",
	CaretEq:         "**=",
	Colon:           ":",
	DoubleColon:     "::",
	Arrow:           "->",
	LParen:          "(",
	RParen:          ")",
	LBracket:        "[",
	RBracket:        "]",
	LBrace:          "{",
	RBrace:          "}",
	Comma:           ",",
	Semicolon:       ";",
	Dot:             ".",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Keywords maps the reserved identifier spellings to their keyword kind.
var Keywords = map[string]Kind{
	"and":       KeywordAnd,
	"break":     KeywordBreak,
	"continue":  KeywordContinue,
	"declare":   KeywordDeclare,
	"do":        KeywordDo,
	"else":      KeywordElse,
	"elseif":    KeywordElseif,
	"end":       KeywordEnd,
	"export":    KeywordExport,
	"false":     KeywordFalse,
	"for":       KeywordFor,
	"function":  KeywordFunction,
	"if":        KeywordIf,
	"in":        KeywordIn,
	"local":     KeywordLocal,
	"null":      KeywordNull,
	"not":       KeywordNot,
	"or":        KeywordOr,
	"repeat":    KeywordRepeat,
	"return":    KeywordReturn,
	"then":      KeywordThen,
	"true":      KeywordTrue,
	"undefined": KeywordUndefined,
	"until":     KeywordUntil,
	"using":     KeywordUsing,
	"while":     KeywordWhile,
}

// Position is a single point in the source buffer.
type Position struct {
	Line   int // 1-based
	Column int // 1-based, in bytes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Location is a half-open range [Begin, End) in the source buffer.
type Location struct {
	Begin Position
	End   Position
}

func (l Location) String() string {
	return fmt.Sprintf("%s-%s", l.Begin, l.End)
}

// Token is one lexeme emitted by the lexer.
type Token struct {
	Kind     Kind
	Location Location
	// Payload holds the decoded literal value: string content for
	// String/RawString/Name, the numeric text for Number (the lexer also
	// stores the parsed value in the Number field), or the diagnostic
	// message for Error/Broken* kinds.
	Payload string
	// Number is populated for Kind == Number.
	Number float64
}

func (t Token) String() string {
	if t.Payload != "" {
		return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Payload, t.Location)
	}
	return fmt.Sprintf("%s@%s", t.Kind, t.Location)
}
