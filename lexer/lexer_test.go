package lexer

import (
	"testing"

	"github.com/galang-lang/gal/token"
)

func TestMultilineStringLevels(t *testing.T) {
	// spec §8 scenario 1: nested levels, inner >2> does not close the
	// outer <1< ... >1> block.
	l := New(`<1< a>2>b >1>`)
	tok := l.Next()
	if tok.Kind != token.RawString {
		t.Fatalf("expected raw_string, got %s (%s)", tok.Kind, tok.Payload)
	}
	if tok.Payload != " a>2>b " {
		t.Fatalf("unexpected content: %q", tok.Payload)
	}
}

func TestMultilineStringMismatch(t *testing.T) {
	l := New(`<1< hello >2>`)
	tok := l.Next()
	if tok.Kind != token.BrokenString {
		t.Fatalf("expected broken_string for mismatched level, got %s", tok.Kind)
	}
}

func TestQuotedStringEscapes(t *testing.T) {
	l := New(`"a\nb\tc\\d"`)
	tok := l.Next()
	if tok.Kind != token.String {
		t.Fatalf("expected string, got %s", tok.Kind)
	}
	if tok.Payload != "a\nb\tc\\d" {
		t.Fatalf("unexpected payload: %q", tok.Payload)
	}
}

func TestUnterminatedStringIsBroken(t *testing.T) {
	l := New(`"abc`)
	tok := l.Next()
	if tok.Kind != token.BrokenString {
		t.Fatalf("expected broken_string, got %s", tok.Kind)
	}
}

func TestNumbersWithUnderscoresAndExponent(t *testing.T) {
	l := New(`1_000.5e-2`)
	tok := l.Next()
	if tok.Kind != token.Number {
		t.Fatalf("expected number, got %s", tok.Kind)
	}
	if tok.Number != 1000.5e-2 {
		t.Fatalf("unexpected value: %v", tok.Number)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	l := New(`function foo local`)
	if tok := l.Next(); tok.Kind != token.KeywordFunction {
		t.Fatalf("expected function keyword, got %s", tok.Kind)
	}
	if tok := l.Next(); tok.Kind != token.Name || tok.Payload != "foo" {
		t.Fatalf("expected name foo, got %s %q", tok.Kind, tok.Payload)
	}
	if tok := l.Next(); tok.Kind != token.KeywordLocal {
		t.Fatalf("expected local keyword, got %s", tok.Kind)
	}
}

func TestOperatorLongestMatch(t *testing.T) {
	l := New(`**=`)
	if tok := l.Next(); tok.Kind != token.CaretEq {
		t.Fatalf("expected **=, got %s", tok.Kind)
	}
}

func TestHotComment(t *testing.T) {
	l := New("#!strict\nreturn 1")
	tok := l.Next()
	if tok.Kind != token.KeywordReturn {
		t.Fatalf("expected return after hot comment, got %s", tok.Kind)
	}
	if len(l.HotComments) != 1 || l.HotComments[0] != "strict" {
		t.Fatalf("unexpected hot comments: %v", l.HotComments)
	}
}

func TestLineComment(t *testing.T) {
	l := New("# a comment\nreturn")
	tok := l.Next()
	if tok.Kind != token.KeywordReturn {
		t.Fatalf("expected return, got %s", tok.Kind)
	}
}

func TestBrokenUnicode(t *testing.T) {
	l := New(string([]byte{0xff}))
	tok := l.Next()
	if tok.Kind != token.BrokenUnicode {
		t.Fatalf("expected broken_unicode, got %s", tok.Kind)
	}
}
