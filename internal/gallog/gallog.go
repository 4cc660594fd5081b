// Package gallog re-exports the go-kratos structured logger under GAL's own
// import path, the same shim shape the teacher's file.go consumes as
// "github.com/saferwall/pe/log" (NewStdLogger, NewHelper, NewFilter,
// FilterLevel) rather than importing go-kratos directly at every call site.
package gallog

import kratoslog "github.com/go-kratos/kratos/v2/log"

type (
	// Logger is the sink structured log records are written to.
	Logger = kratoslog.Logger
	// Helper adds leveled convenience methods (Debugf, Infof, Warnf, Errorf)
	// on top of a Logger.
	Helper = kratoslog.Helper
	// Level is a log severity.
	Level = kratoslog.Level
)

var (
	NewStdLogger = kratoslog.NewStdLogger
	NewHelper    = kratoslog.NewHelper
	NewFilter    = kratoslog.NewFilter
	FilterLevel  = kratoslog.FilterLevel
	With         = kratoslog.With
)

const (
	LevelDebug = kratoslog.LevelDebug
	LevelInfo  = kratoslog.LevelInfo
	LevelWarn  = kratoslog.LevelWarn
	LevelError = kratoslog.LevelError
	LevelFatal = kratoslog.LevelFatal
)

// Discard is a Logger that drops everything, the default when an embedder
// passes no gal.WithLogger option.
var Discard Logger = kratoslog.NewFilter(kratoslog.NewStdLogger(discardWriter{}), kratoslog.FilterLevel(kratoslog.LevelFatal))

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
