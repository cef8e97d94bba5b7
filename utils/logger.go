package utils

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
)

// Logger is the structured logger every component takes as a
// dependency; args are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugCtx(ctx context.Context, msg string, args ...any)
	InfoCtx(ctx context.Context, msg string, args ...any)
	WarnCtx(ctx context.Context, msg string, args ...any)
	ErrorCtx(ctx context.Context, msg string, args ...any)
}

type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger writes text records to stderr.
func NewDefaultLogger(level slog.Level) *DefaultLogger {
	return NewTextLogger(os.Stderr, level)
}

func NewTextLogger(w io.Writer, level slog.Level) *DefaultLogger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	return &DefaultLogger{logger: logger}
}

const prefix = "[crdtop] "

func (d *DefaultLogger) Debug(msg string, args ...any) {
	d.logger.Debug(prefix+msg, args...)
}

func (d *DefaultLogger) Info(msg string, args ...any) {
	d.logger.Info(prefix+msg, args...)
}

func (d *DefaultLogger) Warn(msg string, args ...any) {
	d.logger.Warn(prefix+msg, args...)
}

func (d *DefaultLogger) Error(msg string, args ...any) {
	d.logger.Error(prefix+msg, args...)
}

// NewDiscardLogger drops everything, for tests and quiet tools.
func NewDiscardLogger() *DefaultLogger {
	return NewTextLogger(io.Discard, slog.LevelError)
}

type ctxArgsKey struct{}

func getDefaultArgs(ctx context.Context) []any {
	args, _ := ctx.Value(ctxArgsKey{}).([]any)
	return args
}

// WithDefaultArgs attaches key/value pairs to ctx; the *Ctx logging
// methods append them to every record. Setting a key again replaces
// its value, and ctx itself is left as it was.
func WithDefaultArgs(ctx context.Context, args ...any) context.Context {
	merged := slices.Clone(getDefaultArgs(ctx))
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			merged = append(merged, args[i])
			break
		}
		merged = setArg(merged, args[i], args[i+1])
	}
	return context.WithValue(ctx, ctxArgsKey{}, merged)
}

func setArg(args []any, key, value any) []any {
	if k, ok := key.(string); ok {
		for i := 0; i+1 < len(args); i += 2 {
			if have, _ := args[i].(string); have == k {
				args[i+1] = value
				return args
			}
		}
	}
	return append(args, key, value)
}

// Keys WithOperation sets.
const (
	OpNodeKey   = "op_node"
	OpTimeKey   = "op_ts"
	OpFamilyKey = "op_family"
)

// WithOperation tags every *Ctx record logged under ctx with the
// operation being handled. A nested operation replaces the outer one.
func WithOperation(ctx context.Context, node, timestamp, family string) context.Context {
	return WithDefaultArgs(ctx, OpNodeKey, node, OpTimeKey, timestamp, OpFamilyKey, family)
}

func (d *DefaultLogger) DebugCtx(ctx context.Context, msg string, args ...any) {
	args = append(args, getDefaultArgs(ctx)...)
	d.logger.Debug(prefix+msg, args...)
}

func (d *DefaultLogger) InfoCtx(ctx context.Context, msg string, args ...any) {
	args = append(args, getDefaultArgs(ctx)...)
	d.logger.Info(prefix+msg, args...)
}

func (d *DefaultLogger) WarnCtx(ctx context.Context, msg string, args ...any) {
	args = append(args, getDefaultArgs(ctx)...)
	d.logger.Warn(prefix+msg, args...)
}

func (d *DefaultLogger) ErrorCtx(ctx context.Context, msg string, args ...any) {
	args = append(args, getDefaultArgs(ctx)...)
	d.logger.Error(prefix+msg, args...)
}
