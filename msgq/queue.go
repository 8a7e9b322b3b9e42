package msgq

import (
	"context"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/fixkme/wintimer/clock"
	"github.com/fixkme/wintimer/lock"
	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/timer"
)

const (
	qsTick uint32 = 1 << iota // a tick elapsed since the last timer pass
)

var nextWindow atomic.Uintptr

func init() {
	nextWindow.Store(0x10000)
}

// MsgQueue is a per-goroutine message queue. Its slot table and window set
// belong to the goroutine running Run; other goroutines reach it through
// PostMessage, Post and Call.
type MsgQueue struct {
	tasks    *tasks
	slots    *timer.SlotTable
	pending  atomic.Uint64
	state    atomic.Uint32
	wake     atomic.Int64
	owner    atomic.Int64
	reg      *timer.Registry
	tick     time.Duration
	lastScan uint64
	// set for the queue a tick source flags: its timer pass then waits for
	// the tick-pending bit instead of polling the counter
	tickDriven atomic.Bool

	winMu   sync.RWMutex
	windows map[timer.Window]struct{}

	postLock *lock.SpinLock
	posted   *queue.Queue
	notify   chan struct{}

	closeSig chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	mutex    sync.RWMutex
	isClosed bool
}

type Option func(*MsgQueue)

// WithSlots limits the slot table to n records.
func WithSlots(n int) Option {
	return func(q *MsgQueue) { q.slots = timer.NewSlotTable(n) }
}

// WithRegistry binds the queue to r instead of the default registry.
func WithRegistry(r *timer.Registry) Option {
	return func(q *MsgQueue) { q.reg = r }
}

func WithTaskSize(n int) Option {
	return func(q *MsgQueue) { q.tasks = newTasks(n) }
}

// WithTickDuration sets the poll period used while timers are live.
func WithTickDuration(d time.Duration) Option {
	return func(q *MsgQueue) {
		if d > 0 {
			q.tick = d
		}
	}
}

func New(opts ...Option) *MsgQueue {
	q := &MsgQueue{
		slots:    timer.NewSlotTable(timer.NumSlots),
		tick:     clock.TickInterval,
		windows:  make(map[timer.Window]struct{}),
		postLock: lock.NewSpinLock(),
		posted:   queue.New(),
		notify:   make(chan struct{}, 1),
		closeSig: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.tasks == nil {
		q.tasks = newTasks(1024)
	}
	return q
}

func (q *MsgQueue) registry() *timer.Registry {
	if q.reg != nil {
		return q.reg
	}
	return timer.Default()
}

// timer.Queue

func (q *MsgQueue) TimerSlots() *timer.SlotTable { return q.slots }

func (q *MsgQueue) SetTimerPending(slot int) {
	bit := uint64(1) << uint(slot)
	for {
		old := q.pending.Load()
		if old&bit != 0 || q.pending.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

func (q *MsgQueue) ClearTimerPending(slot int) {
	bit := uint64(1) << uint(slot)
	for {
		old := q.pending.Load()
		if old&bit == 0 || q.pending.CompareAndSwap(old, old&^bit) {
			return
		}
	}
}

func (q *MsgQueue) TimerPending(slot int) bool {
	return q.pending.Load()&(uint64(1)<<uint(slot)) != 0
}

func (q *MsgQueue) TimerCount() int { return q.slots.Count() }

func (q *MsgQueue) OwnsWindow(w timer.Window) bool {
	q.winMu.RLock()
	_, ok := q.windows[w]
	q.winMu.RUnlock()
	return ok
}

func (q *MsgQueue) SetWakeTimeout(d time.Duration) { q.wake.Store(int64(d)) }
func (q *MsgQueue) WakeTimeout() time.Duration     { return time.Duration(q.wake.Load()) }

// SetTickDriven makes the timer pass wait for SetTickPending. Set it on the
// queue passed to clock.Source.SetTarget while that source has a driver.
func (q *MsgQueue) SetTickDriven(on bool) { q.tickDriven.Store(on) }

// SetTickPending is called from the tick path.
func (q *MsgQueue) SetTickPending() {
	for {
		old := q.state.Load()
		if old&qsTick != 0 || q.state.CompareAndSwap(old, old|qsTick) {
			return
		}
	}
}

func (q *MsgQueue) takeTickPending() bool {
	for {
		old := q.state.Load()
		if old&qsTick == 0 {
			return false
		}
		if q.state.CompareAndSwap(old, old&^qsTick) {
			return true
		}
	}
}

// CreateWindow allocates a window owned by q.
func (q *MsgQueue) CreateWindow() timer.Window {
	w := timer.Window(nextWindow.Add(1))
	q.winMu.Lock()
	q.windows[w] = struct{}{}
	q.winMu.Unlock()
	return w
}

// DestroyWindow drops w and cancels its timers. It must run on the queue's
// goroutine.
func (q *MsgQueue) DestroyWindow(w timer.Window) bool {
	q.winMu.Lock()
	_, ok := q.windows[w]
	delete(q.windows, w)
	q.winMu.Unlock()
	if !ok {
		return false
	}
	if r := q.registry(); r != nil {
		if n, _ := r.CancelOn(q, w, 0); n > 0 {
			mlog.Debugf("window %#x destroyed with %d timers", w, n)
		}
	}
	return true
}

// PostMessage appends m to the posted FIFO. Safe from any goroutine.
func (q *MsgQueue) PostMessage(m Msg) error {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	if q.isClosed {
		return ErrQueueClosed
	}
	q.postLock.Lock()
	q.posted.Add(m)
	q.postLock.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Post runs f on the queue's goroutine without waiting.
func (q *MsgQueue) Post(f func()) error {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	if q.isClosed {
		return ErrQueueClosed
	}
	if !q.tasks.trySubmit(f) {
		return ErrTaskChanFull
	}
	return nil
}

// Call runs f on the queue's goroutine and waits for it to finish.
func (q *MsgQueue) Call(ctx context.Context, f func()) error {
	if q.owner.Load() != 0 && Current() == q {
		q.tasks.exec(f)
		return nil
	}
	q.mutex.RLock()
	if q.isClosed {
		q.mutex.RUnlock()
		return ErrQueueClosed
	}
	errCh := q.tasks.submitWithResult(f)
	q.mutex.RUnlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Run binds q to the calling goroutine and dispatches until Close.
func (q *MsgQueue) Run(h Handler) error {
	if err := q.Attach(); err != nil {
		// a queue already running elsewhere stays up; any other failure
		// means q never ran and will not
		if err != errOwnedElsewhere {
			q.Close()
			q.closeDone()
		}
		return err
	}
	defer q.onClose()
	if h == nil {
		h = HandlerFunc(func(*MsgQueue, Msg) {})
	}
	if r := q.registry(); r != nil {
		q.lastScan = r.CurrentTick()
	}

	tm := time.NewTimer(time.Hour)
	stopTimer(tm)
	for {
		q.dispatchPosted(h)
		q.pollTimers(h)

		var expire <-chan time.Time
		if wait := q.waitPeriod(); wait > 0 {
			tm.Reset(wait)
			expire = tm.C
		}
		fired := false
		select {
		case <-q.closeSig:
			stopTimer(tm)
			return nil
		case cb := <-q.tasks.ch:
			q.tasks.exec(cb)
		case <-q.notify:
		case <-expire:
			fired = true
		}
		if expire != nil && !fired {
			stopTimer(tm)
		}
	}
}

func stopTimer(tm *time.Timer) {
	if !tm.Stop() {
		select {
		case <-tm.C:
		default:
		}
	}
}

// waitPeriod: the wake timeout when set, a tick while timers are live,
// otherwise 0 (block).
func (q *MsgQueue) waitPeriod() time.Duration {
	if d := q.WakeTimeout(); d > 0 {
		return d
	}
	if q.slots.Count() > 0 {
		return q.tick
	}
	return 0
}

func (q *MsgQueue) dispatchPosted(h Handler) {
	for {
		q.postLock.Lock()
		if q.posted.Length() == 0 {
			q.postLock.Unlock()
			return
		}
		m := q.posted.Remove().(Msg)
		q.postLock.Unlock()
		q.tasks.exec(func() { h.Handle(q, m) })
	}
}

func (q *MsgQueue) pollTimers(h Handler) {
	r := q.registry()
	if r == nil {
		return
	}
	due := q.takeTickPending() || !q.tickDriven.Load()
	now := r.CurrentTick()
	if q.slots.Count() == 0 {
		q.lastScan = now
		return
	}
	if due && now > q.lastScan {
		if _, err := r.ScanExpired(q, now-q.lastScan); err != nil {
			mlog.Errorf("scan expired timers: %v", err)
		}
		q.lastScan = now
	}
	q.deliverTimers(r, h)
}

func (q *MsgQueue) deliverTimers(r *timer.Registry, h Handler) {
	for {
		pending := q.pending.Load()
		if pending == 0 {
			return
		}
		slot := bits.TrailingZeros64(pending)
		q.ClearTimerPending(slot)
		rec, ok := r.Lookup(q, slot)
		if !ok {
			continue
		}
		if !q.OwnsWindow(rec.Owner) {
			r.RemoveSlot(q, slot)
			continue
		}
		if rec.Proc == nil {
			m := Msg{Kind: MsgTimer, Window: rec.Owner, ID: rec.ID, Tick: rec.LastFired}
			q.tasks.exec(func() { h.Handle(q, m) })
			continue
		}
		keep := true
		q.tasks.exec(func() { keep = rec.Proc(rec.Owner, rec.ID, rec.LastFired) })
		if !keep {
			r.CancelOn(q, rec.Owner, rec.ID)
		}
	}
}

// Close stops Run. Safe to call more than once.
func (q *MsgQueue) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.isClosed {
		return
	}
	q.isClosed = true
	close(q.closeSig)
}

// Done is closed once Run has returned and the queue is torn down.
func (q *MsgQueue) Done() <-chan struct{} { return q.done }

func (q *MsgQueue) onClose() {
	q.Close()
	q.mutex.Lock()
	close(q.tasks.ch)
	q.mutex.Unlock()
	q.tasks.drain()
	if n := timer.TeardownAll(q); n > 0 {
		mlog.Debugf("message queue closed with %d live timers", n)
	}
	q.Detach()
	q.closeDone()
}

func (q *MsgQueue) closeDone() {
	q.doneOnce.Do(func() { close(q.done) })
}
