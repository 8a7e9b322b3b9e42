package main

import (
	"context"
	"flag"
	"log"
	"sync"

	"github.com/fixkme/wintimer/framework/app"
	"github.com/fixkme/wintimer/framework/config"
	"github.com/fixkme/wintimer/framework/core"
	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/msgq"
	"github.com/fixkme/wintimer/timer"
	_ "go.uber.org/automaxprocs"
)

var configFile = flag.String("config", "", "config file (.json or .toml)")

// demoModule runs one window goroutine with two periodic timers: a
// heartbeat with a callback and a countdown delivered as messages.
type demoModule struct {
	q         *msgq.MsgQueue
	countdown int
}

const (
	idHeartbeat int64 = 1
	idCountdown int64 = 2
)

func (m *demoModule) OnInit() error {
	m.q = msgq.New()
	m.countdown = 5
	return m.q.Post(m.setup)
}

func (m *demoModule) setup() {
	w := m.q.CreateWindow()
	err := timer.Register(w, idHeartbeat, 100, func(w timer.Window, id int64, tick uint64) bool {
		mlog.Infof("heartbeat window %#x tick %d", w, tick)
		return true
	})
	if err != nil {
		mlog.Errorf("register heartbeat: %v", err)
	}
	if err = timer.Register(w, idCountdown, 30, nil); err != nil {
		mlog.Errorf("register countdown: %v", err)
	}
}

func (m *demoModule) handle(q *msgq.MsgQueue, msg msgq.Msg) {
	if msg.Kind != msgq.MsgTimer || msg.ID != idCountdown {
		return
	}
	m.countdown--
	mlog.Infof("countdown %d at tick %d", m.countdown, msg.Tick)
	if m.countdown > 0 {
		return
	}
	// 倒计时结束后放慢心跳
	if err := timer.ModifyKeepProc(msg.Window, idHeartbeat, 300); err != nil {
		mlog.Warnf("slow heartbeat: %v", err)
	}
	timer.Cancel(msg.Window, idCountdown)
}

func (m *demoModule) Run() {
	if err := m.q.Run(msgq.HandlerFunc(m.handle)); err != nil {
		mlog.Errorf("demo queue: %v", err)
	}
}

func (m *demoModule) Destroy() {
	m.q.Close()
	<-m.q.Done()
}

func (m *demoModule) Name() string { return "demo" }

func main() {
	flag.Parse()
	if err := config.LoadConfig(*configFile, config.LoadFromEnv); err != nil {
		log.Fatalf("load config: %v", err)
	}
	conf := config.Config

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	level := mlog.ParseLevel(conf.LogLevel)
	var err error
	if conf.LogZap {
		err = mlog.UseZapLogger(level)
	} else {
		err = mlog.UseDefaultLogger(ctx, wg, conf.LogPath, conf.LogName, level, conf.LogStdOut)
	}
	if err != nil {
		log.Fatalf("init log: %v", err)
	}
	mlog.Debugf("config:\n%s", conf.JsonFormat())

	if conf.MultiProcess && conf.SharedBackend == config.BackendRedis {
		if err = core.InitRedis(ctx, &conf.RedisConfig); err != nil {
			log.Fatalf("init redis: %v", err)
		}
		defer core.CloseRedis()
	}
	if err = core.InitTimerModule("timer", &conf.TimerConfig, nil); err != nil {
		log.Fatalf("init timer module: %v", err)
	}

	if err = app.DefaultApp().Run(core.Timer, &demoModule{}); err != nil {
		mlog.Errorf("app: %v", err)
	}
	cancel()
	wg.Wait()
}
