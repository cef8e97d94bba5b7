package utils

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to Logger, for JSON output.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar().Named("crdtop")}
}

func (z *ZapLogger) Debug(msg string, args ...any) {
	z.sugar.Debugw(msg, args...)
}

func (z *ZapLogger) Info(msg string, args ...any) {
	z.sugar.Infow(msg, args...)
}

func (z *ZapLogger) Warn(msg string, args ...any) {
	z.sugar.Warnw(msg, args...)
}

func (z *ZapLogger) Error(msg string, args ...any) {
	z.sugar.Errorw(msg, args...)
}

func (z *ZapLogger) DebugCtx(ctx context.Context, msg string, args ...any) {
	z.sugar.Debugw(msg, append(args, getDefaultArgs(ctx)...)...)
}

func (z *ZapLogger) InfoCtx(ctx context.Context, msg string, args ...any) {
	z.sugar.Infow(msg, append(args, getDefaultArgs(ctx)...)...)
}

func (z *ZapLogger) WarnCtx(ctx context.Context, msg string, args ...any) {
	z.sugar.Warnw(msg, append(args, getDefaultArgs(ctx)...)...)
}

func (z *ZapLogger) ErrorCtx(ctx context.Context, msg string, args ...any) {
	z.sugar.Errorw(msg, append(args, getDefaultArgs(ctx)...)...)
}

func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}
