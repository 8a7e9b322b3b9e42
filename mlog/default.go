package mlog

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
	defaultBuffSize   = 0x10000
)

type loggerImp struct {
	out    io.WriteCloser
	ll     *log.Logger
	buff   chan string
	level  Level
	stdOut bool
}

func newDefaultLogger(logpath, logName string, level Level, stdOut bool) (*loggerImp, error) {
	if len(logpath) == 0 {
		logpath = "."
	}
	if err := os.MkdirAll(logpath, 0755); err != nil {
		return nil, err
	}
	if logName == "" {
		logName = "mlog"
	}
	out := &lumberjack.Logger{
		Filename:   filepath.Join(logpath, logName+".log"),
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		LocalTime:  true,
	}
	if stdOut {
		log.SetFlags(log.Ldate | log.Lmicroseconds)
	}
	return &loggerImp{
		out:    out,
		ll:     log.New(out, "", log.Ldate|log.Lmicroseconds),
		buff:   make(chan string, defaultBuffSize),
		level:  level,
		stdOut: stdOut,
	}, nil
}

func (me *loggerImp) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("log recover error %v\n", r)
			}
			me.out.Close()
			wg.Done()
		}()

		for {
			select {
			case <-ctx.Done():
				// 退出前把缓冲里的日志写完
				for {
					select {
					case str := <-me.buff:
						me.write(str)
					default:
						return
					}
				}
			case str := <-me.buff:
				me.write(str)
			}
		}
	}()
}

func (me *loggerImp) write(str string) {
	if me.stdOut {
		log.Println(str)
	}
	me.ll.Println(str)
}

func (me *loggerImp) push(level Level, msg string) {
	select {
	case me.buff <- level.Tag() + msg:
	default:
		// 缓冲满了直接写, 不丢日志
		me.write(level.Tag() + msg)
	}
}

func (me *loggerImp) IsLevelEnabled(level Level) bool {
	return me.level >= level
}

func (me *loggerImp) Logf(level Level, format string, args ...any) {
	if !me.IsLevelEnabled(level) {
		return
	}
	if len(format) == 0 {
		me.push(level, fmt.Sprint(args...))
	} else {
		me.push(level, fmt.Sprintf(format, args...))
	}
}

func (me *loggerImp) Trace(args ...any)                 { me.Logf(TraceLevel, "", args...) }
func (me *loggerImp) Tracef(format string, args ...any) { me.Logf(TraceLevel, format, args...) }
func (me *loggerImp) Debug(args ...any)                 { me.Logf(DebugLevel, "", args...) }
func (me *loggerImp) Debugf(format string, args ...any) { me.Logf(DebugLevel, format, args...) }
func (me *loggerImp) Info(args ...any)                  { me.Logf(InfoLevel, "", args...) }
func (me *loggerImp) Infof(format string, args ...any)  { me.Logf(InfoLevel, format, args...) }
func (me *loggerImp) Notice(args ...any)                { me.Logf(NoticeLevel, "", args...) }
func (me *loggerImp) Noticef(format string, args ...any) {
	me.Logf(NoticeLevel, format, args...)
}
func (me *loggerImp) Warn(args ...any)                  { me.Logf(WarnLevel, "", args...) }
func (me *loggerImp) Warnf(format string, args ...any)  { me.Logf(WarnLevel, format, args...) }
func (me *loggerImp) Error(args ...any)                 { me.Logf(ErrorLevel, "", args...) }
func (me *loggerImp) Errorf(format string, args ...any) { me.Logf(ErrorLevel, format, args...) }

func (me *loggerImp) Fatal(args ...any) {
	me.Logf(FatalLevel, "", args...)
	time.Sleep(time.Second)
	os.Exit(1)
}

func (me *loggerImp) Fatalf(format string, args ...any) {
	me.Logf(FatalLevel, format, args...)
	time.Sleep(time.Second)
	os.Exit(1)
}
