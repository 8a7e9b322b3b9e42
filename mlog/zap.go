package mlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger 把 mlog 的级别映射到 zap, notice 和 trace 没有对应级别,
// 分别落到 info 和 debug
type zapLogger struct {
	level Level
	sl    *zap.SugaredLogger
}

// UseZapLogger 使用 zap 的生产配置输出 json 日志
func UseZapLogger(level Level) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return err
	}
	SetLogger(NewZapLogger(l, level))
	return nil
}

func NewZapLogger(l *zap.Logger, level Level) Logger {
	return &zapLogger{level: level, sl: l.Sugar()}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case FatalLevel:
		return zapcore.FatalLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case NoticeLevel, InfoLevel:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

func (z *zapLogger) enabled(level Level) bool {
	return z.level >= level
}

func (z *zapLogger) Trace(v ...any) {
	if z.enabled(TraceLevel) {
		z.sl.Debug(v...)
	}
}

func (z *zapLogger) Tracef(format string, v ...any) {
	if z.enabled(TraceLevel) {
		z.sl.Debugf(format, v...)
	}
}

func (z *zapLogger) Debug(v ...any) {
	if z.enabled(DebugLevel) {
		z.sl.Debug(v...)
	}
}

func (z *zapLogger) Debugf(format string, v ...any) {
	if z.enabled(DebugLevel) {
		z.sl.Debugf(format, v...)
	}
}

func (z *zapLogger) Info(v ...any) {
	if z.enabled(InfoLevel) {
		z.sl.Info(v...)
	}
}

func (z *zapLogger) Infof(format string, v ...any) {
	if z.enabled(InfoLevel) {
		z.sl.Infof(format, v...)
	}
}

func (z *zapLogger) Notice(v ...any) {
	if z.enabled(NoticeLevel) {
		z.sl.Info(v...)
	}
}

func (z *zapLogger) Noticef(format string, v ...any) {
	if z.enabled(NoticeLevel) {
		z.sl.Infof(format, v...)
	}
}

func (z *zapLogger) Warn(v ...any) {
	if z.enabled(WarnLevel) {
		z.sl.Warn(v...)
	}
}

func (z *zapLogger) Warnf(format string, v ...any) {
	if z.enabled(WarnLevel) {
		z.sl.Warnf(format, v...)
	}
}

func (z *zapLogger) Error(v ...any)                 { z.sl.Error(v...) }
func (z *zapLogger) Errorf(format string, v ...any) { z.sl.Errorf(format, v...) }
func (z *zapLogger) Fatal(v ...any)                 { z.sl.Fatal(v...) }
func (z *zapLogger) Fatalf(format string, v ...any) { z.sl.Fatalf(format, v...) }
