package msgq

import (
	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/util/errs"
)

var (
	ErrTaskChanFull = errs.CreateCodeError(errs.ErrCode_Exhausted, "task chan is full")
	ErrQueueClosed  = errs.CreateCodeError(errs.ErrCode_NoQueue, "message queue is closed")

	errNoGoroutine    = errs.QueueBinding.Print("goroutine id unavailable")
	errAlreadyBound   = errs.QueueBinding.Print("goroutine already owns a message queue")
	errOwnedElsewhere = errs.QueueBinding.Print("message queue bound to another goroutine")
)

// tasks runs closures submitted from other goroutines on the queue's
// goroutine.
type tasks struct {
	ch           chan func()
	panicHandler func(r any)
}

func newTasks(size int) *tasks {
	if size < 64 {
		size = 64
	} else if size > 102400 {
		size = 102400
	}
	return &tasks{
		ch: make(chan func(), size),
		panicHandler: func(r any) {
			mlog.Errorf("message queue callback panic: %v", r)
		},
	}
}

func (t *tasks) submitWithResult(f func()) (errCh chan error) {
	errCh = make(chan error, 1)
	call := func() {
		defer close(errCh)
		f()
	}
	select {
	case t.ch <- call:
	default:
		errCh <- ErrTaskChanFull
	}
	return
}

func (t *tasks) trySubmit(f func()) bool {
	select {
	case t.ch <- f:
		return true
	default:
		return false
	}
}

func (t *tasks) exec(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			t.panicHandler(r)
		}
	}()
	cb()
}

// drain runs whatever is still queued. The channel must already be closed.
func (t *tasks) drain() {
	for cb := range t.ch {
		t.exec(cb)
	}
}
