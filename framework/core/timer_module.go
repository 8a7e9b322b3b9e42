package core

import (
	"context"

	"github.com/fixkme/wintimer/framework/config"
	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/msgq"
)

var Timer *TimerModule

// TimerModule owns the timer subsystem and a desktop queue: the queue the
// tick source flags on every tick.
type TimerModule struct {
	conf    *config.TimerConfig
	handler msgq.Handler
	desktop *msgq.MsgQueue
	name    string
}

func InitTimerModule(name string, conf *config.TimerConfig, handler msgq.Handler, opts ...msgq.Option) error {
	Timer = &TimerModule{
		conf:    conf,
		handler: handler,
		desktop: msgq.New(opts...),
		name:    name,
	}
	return nil
}

func (m *TimerModule) Desktop() *msgq.MsgQueue { return m.desktop }

func (m *TimerModule) OnInit() error {
	if err := InitTimerSubsystem(context.Background(), m.conf); err != nil {
		return err
	}
	src := TimerSource()
	src.SetTarget(m.desktop)
	// read-only and pull-mode sources never advance, so the desktop polls
	m.desktop.SetTickDriven(src.DriverKind() != "")
	return nil
}

func (m *TimerModule) Run() {
	if err := m.desktop.Run(m.handler); err != nil {
		mlog.Errorf("%s desktop queue exited: %v", m.name, err)
	}
}

func (m *TimerModule) Destroy() {
	m.desktop.Close()
	<-m.desktop.Done()
	if src := TimerSource(); src != nil {
		src.SetTarget(nil)
	}
	if err := TerminateTimerSubsystem(m.conf.UseSystemClock); err != nil {
		mlog.Errorf("%v module stop error: %v", m.name, err)
	}
}

func (m *TimerModule) Name() string {
	return m.name
}
