package lexer

import (
	"testing"

	"github.com/galang-lang/gal/token"
)

// FuzzLex exercises the lexer's "never crash on attacker-controlled text"
// contract: lex errors and broken tokens are recorded as ordinary token
// payloads (spec §7's lex-error taxonomy), so the only failure mode a
// fuzzer can find here is a panic or an infinite loop.
func FuzzLex(f *testing.F) {
	f.Add("return 1 + 2 * 3")
	f.Add(`<1< a>2>b >1>`)
	f.Add(`"unterminated`)
	f.Add("local x = 0x")
	f.Add("#!strict\nreturn 1")

	f.Fuzz(func(t *testing.T, src string) {
		l := New(src)
		for i := 0; i < len(src)+64; i++ {
			if l.Next().Kind == token.Eof {
				return
			}
		}
		t.Fatalf("lexer did not reach EOF within a bounded number of tokens for %q", src)
	})
}
