// Package cli implements the bpedit command-line interface.
//
// The commands convert between blueprint strings and JSON documents, edit
// blueprints through a scripted session with full undo history, and keep a
// library of blueprints in the configured store. The CLI is built using
// cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - encode, decode: convert between JSON documents and blueprint strings
//   - find: extract a blueprint string from free text
//   - inspect, query: summarize or query a blueprint string
//   - edit: apply a TOML script of edits with undo and redo
//   - library: save, load, list and delete stored blueprints
//   - watch: re-validate a file whenever it changes
//   - config: show the configuration in effect
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to commands.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a logger stamping "15:04:05.00" times.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times a batch operation. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time and any extra key/value pairs:
//
//	INFO encoded documents count=12 elapsed=1.234s
func (p *progress) done(msg string, keyvals ...any) {
	elapsed := time.Since(p.start).Round(time.Millisecond)
	p.logger.Info(msg, append(keyvals, "elapsed", elapsed)...)
}

type ctxKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext falls back to log.Default so commands run without
// setup (as in tests) still log somewhere.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
