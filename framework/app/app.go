package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/fixkme/wintimer/mlog"
)

// 节点全局状态
const (
	AppStateNone = iota // 未开始或已停止
	AppStateInit        // 正在初始化中
	AppStateRun         // 正在运行中
	AppStateStop        // 正在停止中
)

var ErrStartTwice = errors.New("app mods cannot start twice")

// 单例
var defaultApp = NewApp()

type Module interface {
	OnInit() error // 初始化
	Destroy()      // 销毁
	Run()          // 启动
	Name() string  // 名字
}

// DefaultApp 默认单例
func DefaultApp() *App {
	return defaultApp
}

// App 中的 modules 在初始化(通过 Run) 之后不能变更
type App struct {
	mods   []Module
	inited int // 已成功初始化的模块数
	state  atomic.Int32
	sig    chan os.Signal
	wg     sync.WaitGroup
}

func NewApp() *App {
	return &App{sig: make(chan os.Signal, 1)}
}

func (app *App) GetState() int32 {
	return app.state.Load()
}

func (app *App) start(mods ...Module) error {
	// 单个app不能启动两次
	if !app.state.CompareAndSwap(AppStateNone, AppStateInit) || len(app.mods) != 0 {
		return ErrStartTwice
	}
	mlog.Info("app starting up")
	app.mods = append(app.mods, mods...)
	// 模块初始化, 失败时逆序销毁已初始化的模块
	for _, m := range app.mods {
		if err := m.OnInit(); err != nil {
			app.destroyInited()
			app.state.Store(AppStateNone)
			return fmt.Errorf("module %s init error: %w", m.Name(), err)
		}
		app.inited++
	}
	// 模块启动
	for _, m := range app.mods {
		app.wg.Add(1)
		go run(m, &app.wg)
	}
	app.state.Store(AppStateRun)
	mlog.Info("app started")
	return nil
}

func (app *App) destroyInited() {
	for i := app.inited - 1; i >= 0; i-- {
		destroy(app.mods[i])
	}
	app.inited = 0
}

func (app *App) stop() {
	if !app.state.CompareAndSwap(AppStateRun, AppStateStop) {
		return
	}
	mlog.Info("app stop begin")
	// 先进后出
	for i := len(app.mods) - 1; i >= 0; i-- {
		m := app.mods[i]
		mlog.Infof("app stop module %s", m.Name())
		destroy(m)
	}
	app.wg.Wait()
	app.inited = 0
	app.state.Store(AppStateNone)
	mlog.Info("app stopped")
}

func run(m Module, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module run panic: %v\n%s", m.Name(), r, debug.Stack())
		}
	}()
	m.Run()
}

func destroy(m Module) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module destroy panic: %v\n%s", m.Name(), r, debug.Stack())
		}
	}()

	m.Destroy()
}

// Run 初始化并启动模块, 阻塞到收到退出信号后逆序销毁
func (app *App) Run(mods ...Module) error {
	if err := app.start(mods...); err != nil {
		return err
	}
	signal.Notify(app.sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(app.sig)
	for {
		sig := <-app.sig
		mlog.Infof("server closing down (signal: %v)", sig)
		if sig != syscall.SIGHUP {
			break
		}
	}

	app.stop()
	return nil
}

func (app *App) Stop() {
	select {
	case app.sig <- syscall.SIGTERM:
	default:
	}
}
