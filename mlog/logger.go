package mlog

import (
	"context"
	"sync"
	"sync/atomic"
)

type Logger interface {
	Trace(v ...any)
	Debug(v ...any)
	Info(v ...any)
	Notice(v ...any)
	Warn(v ...any)
	Error(v ...any)
	Fatal(v ...any)

	Tracef(format string, v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Noticef(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Fatalf(format string, v ...any)
}

type holder struct{ l Logger }

var logger atomic.Pointer[holder]

// SetLogger 替换全局 logger, nil 关闭日志
func SetLogger(l Logger) {
	if l == nil {
		logger.Store(nil)
		return
	}
	logger.Store(&holder{l: l})
}

func current() Logger {
	if h := logger.Load(); h != nil {
		return h.l
	}
	return nil
}

// UseDefaultLogger 异步写文件, 文件滚动交给 lumberjack
func UseDefaultLogger(ctx context.Context, wg *sync.WaitGroup, path string, logName string, level Level, stdOut bool) error {
	l, err := newDefaultLogger(path, logName, level, stdOut)
	if err != nil {
		return err
	}
	l.Start(ctx, wg)
	SetLogger(l)
	return nil
}

func UseStdLogger(level Level) error {
	SetLogger(newStdoutLogger(level))
	return nil
}

type Level uint32

const (
	FatalLevel Level = iota
	ErrorLevel
	WarnLevel
	NoticeLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

func (l Level) Tag() string {
	switch l {
	case FatalLevel:
		return "[fatal] "
	case ErrorLevel:
		return "[error] "
	case WarnLevel:
		return "[warn] "
	case NoticeLevel:
		return "[notice] "
	case InfoLevel:
		return "[info] "
	case DebugLevel:
		return "[debug] "
	case TraceLevel:
		return "[trace] "
	}
	return ""
}

// ParseLevel 配置文件里的级别名, 未知名字按 info 处理
func ParseLevel(name string) Level {
	switch name {
	case "fatal":
		return FatalLevel
	case "error":
		return ErrorLevel
	case "warn":
		return WarnLevel
	case "notice":
		return NoticeLevel
	case "debug":
		return DebugLevel
	case "trace":
		return TraceLevel
	}
	return InfoLevel
}

func Trace(a ...any) {
	if l := current(); l != nil {
		l.Trace(a...)
	}
}

func Tracef(format string, a ...any) {
	if l := current(); l != nil {
		l.Tracef(format, a...)
	}
}

func Debug(a ...any) {
	if l := current(); l != nil {
		l.Debug(a...)
	}
}

func Debugf(format string, a ...any) {
	if l := current(); l != nil {
		l.Debugf(format, a...)
	}
}

func Info(a ...any) {
	if l := current(); l != nil {
		l.Info(a...)
	}
}

func Infof(format string, a ...any) {
	if l := current(); l != nil {
		l.Infof(format, a...)
	}
}

func Notice(a ...any) {
	if l := current(); l != nil {
		l.Notice(a...)
	}
}

func Noticef(format string, a ...any) {
	if l := current(); l != nil {
		l.Noticef(format, a...)
	}
}

func Warn(a ...any) {
	if l := current(); l != nil {
		l.Warn(a...)
	}
}

func Warnf(format string, a ...any) {
	if l := current(); l != nil {
		l.Warnf(format, a...)
	}
}

func Error(a ...any) {
	if l := current(); l != nil {
		l.Error(a...)
	}
}

func Errorf(format string, a ...any) {
	if l := current(); l != nil {
		l.Errorf(format, a...)
	}
}

func Fatal(a ...any) {
	if l := current(); l != nil {
		l.Fatal(a...)
	}
}

func Fatalf(format string, a ...any) {
	if l := current(); l != nil {
		l.Fatalf(format, a...)
	}
}
