// Package galerr collects GAL's sentinel errors (spec §7), following the
// teacher's style of one exported Err* value per failure mode (see
// security.go's ErrSecurityDataDirInvalid, helper.go's ErrOutsideBoundary)
// rather than a single opaque error type.
package galerr

import (
	"errors"
	"fmt"

	"github.com/galang-lang/gal/object"
)

// Lex errors (spec §7: "recorded on the lexeme; the lexer continues").
var (
	ErrUnterminatedString  = errors.New("galerr: unterminated string literal")
	ErrUnterminatedComment = errors.New("galerr: unterminated long comment")
	ErrMalformedEscape     = errors.New("galerr: malformed escape sequence")
	ErrInvalidUTF8         = errors.New("galerr: invalid UTF-8 in source")
	ErrBrokenLongBracket   = errors.New("galerr: mismatched long-bracket level")
)

// Parse errors (spec §7: "recorded into parse_result.errors ... parser
// resumes at the next recovery token").
var (
	ErrUnexpectedToken  = errors.New("galerr: unexpected token")
	ErrMissingKeyword   = errors.New("galerr: missing keyword")
	ErrNameNotResolved  = errors.New("galerr: name could not be resolved")
	ErrBreakOutsideLoop = errors.New("galerr: break used outside a loop")
)

// Compile errors (spec §7: "abort the current prototype with a descriptive
// error; the embedder receives a syntax-error status").
var (
	ErrTooManyLocals    = errors.New("galerr: function has too many local variables")
	ErrTooManyUpvalues  = errors.New("galerr: function has too many upvalues")
	ErrTooManyConstants = errors.New("galerr: function has too many constants")
	ErrTooManyRegisters = errors.New("galerr: function needs more registers than the format allows")
	ErrJumpTooFar       = errors.New("galerr: jump target out of encodable range")
	ErrDuplicateLabel   = errors.New("galerr: duplicate label")
)

// Runtime errors (spec §7: "raised via a VM exception, caught by the
// nearest protected call").
var (
	ErrTypeError       = errors.New("galerr: type error")
	ErrDivideByZero    = errors.New("galerr: attempt to divide by zero")
	ErrStackOverflow   = errors.New("galerr: stack overflow")
	ErrMissingMetaHook = errors.New("galerr: metatable missing required tagged method")
	ErrOutOfMemory     = errors.New("galerr: out of memory")
	ErrErrorInError    = errors.New("galerr: error raised while handling an error")
)

// Chunk-loading errors (spec §6.1/§6.4).
var (
	ErrMalformedChunk         = errors.New("galerr: malformed bytecode chunk")
	ErrUnsupportedVersion     = errors.New("galerr: unsupported bytecode version")
	ErrSignatureRequired      = errors.New("galerr: chunk is not signed")
	ErrSignatureUntrustworthy = errors.New("galerr: chunk signature did not verify")
)

// TypeError formats a runtime type error the way the interpreter raises
// them: "attempt to <verb> a <kind> value".
func TypeError(verb string, k object.Category) error {
	return fmt.Errorf("%w: attempt to %s a %s value", ErrTypeError, verb, k)
}

// MetaHookError names the missing tagged method.
func MetaHookError(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingMetaHook, name)
}
