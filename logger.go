package xmlbind

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/pkg/errors"
)

type Logger struct {
	*slog.Logger
	output *outputVar
	level  *slog.LevelVar
}

type LoggerOptions struct {
	Output io.Writer

	// AddSource causes the handler to compute the source code position
	// of the log statement and add a SourceKey attribute to the output.
	AddSource bool

	// Level reports the minimum record level that will be logged.
	// The handler discards records with lower levels.
	// If Level is nil, the handler assumes LevelError.
	// At LevelDebug failure records also carry the stack trace of the error.
	Level slog.Leveler

	// ReplaceAttr is called to rewrite each non-group attribute before it is logged.
	// See slog.HandlerOptions.
	ReplaceAttr func(groups []string, a slog.Attr) slog.Attr

	NewHandler func(w io.Writer, opts *slog.HandlerOptions) slog.Handler
}

type outputVar struct {
	mu sync.RWMutex
	w  io.Writer
}

func (o *outputVar) Write(p []byte) (int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.w.Write(p)
}

func (o *outputVar) load() io.Writer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.w
}

// store waits for in-flight writes to the previous writer.
func (o *outputVar) store(w io.Writer) {
	o.mu.Lock()
	o.w = w
	o.mu.Unlock()
}

func NewLogger(opts *LoggerOptions) *Logger {
	if opts == nil {
		opts = &LoggerOptions{}
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Level == nil {
		opts.Level = slog.LevelError
	}
	if opts.NewHandler == nil {
		opts.NewHandler = func(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
			return slog.NewTextHandler(w, opts)
		}
	}
	level := &slog.LevelVar{}
	output := &outputVar{w: opts.Output}
	level.Set(opts.Level.Level())
	return &Logger{
		Logger: slog.New(opts.NewHandler(output, &slog.HandlerOptions{
			AddSource:   opts.AddSource,
			Level:       level,
			ReplaceAttr: opts.ReplaceAttr,
		})),
		output: output,
		level:  level,
	}
}

// DiscardLogger returns a Logger that drops every record.
func DiscardLogger() *Logger {
	return NewLogger(&LoggerOptions{Output: io.Discard})
}

func (l *Logger) Output() io.Writer {
	return l.output.load()
}

// SetOutput redirects the records of l and of every Logger derived from it.
// It is safe to call while other goroutines are logging.
func (l *Logger) SetOutput(w io.Writer) {
	l.output.store(w)
}

func (l *Logger) SetLevel(level slog.Level) (oldLevel slog.Level) {
	oldLevel = l.level.Level()
	l.level.Set(level)
	return
}

func (l *Logger) Level() slog.Leveler {
	return l.level
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		output: l.output,
		level:  l.level,
	}
}

func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{
		Logger: l.Logger.WithGroup(name),
		output: l.output,
		level:  l.level,
	}
}

// failure logs err at error level.
func (l *Logger) failure(err error) {
	ctx := context.Background()
	msg := "xmlbind: failed"
	args := make([]any, 0, 12)
	var be *BindError
	if errors.As(err, &be) {
		msg = "xmlbind: " + be.Op + " failed"
		args = append(args, "op", be.Op, "type", typeName(be.Type), "kind", be.Kind().String())
		if be.Name.Local != "" || be.Name.Space != "" {
			args = append(args, "name", formatName(be.Name))
		}
	}
	args = append(args, "error", err.Error())
	if l.Enabled(ctx, slog.LevelDebug) {
		args = append(args, "stack", fmt.Sprintf("%+v", err))
	}
	l.ErrorContext(ctx, msg, args...)
}
