package timer

import (
	"time"

	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/util/errs"
)

// Queue is the message queue a slot table belongs to.
type Queue interface {
	TimerSlots() *SlotTable
	SetTimerPending(slot int)
	ClearTimerPending(slot int)
	OwnsWindow(w Window) bool
	SetWakeTimeout(d time.Duration)
}

// Ticker reads the shared tick counter.
type Ticker interface {
	Current() uint64
}

// Registry validates and applies timer mutations against the slot table of
// the calling goroutine's queue.
type Registry struct {
	ticks   Ticker
	resolve func() Queue
	client  bool
	tick    time.Duration
}

type Option func(*Registry)

// AsClient keeps each queue's wake timeout in step with its table, for
// client processes of a multi-process deployment.
func AsClient() Option {
	return func(r *Registry) { r.client = true }
}

func WithTickDuration(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.tick = d
		}
	}
}

// NewRegistry creates a registry reading ticks from ticks. resolve returns
// the calling goroutine's queue, or nil when it has none.
func NewRegistry(ticks Ticker, resolve func() Queue, opts ...Option) *Registry {
	r := &Registry{
		ticks:   ticks,
		resolve: resolve,
		tick:    10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) CurrentTick() uint64 { return r.ticks.Current() }
func (r *Registry) IsClient() bool      { return r.client }

func (r *Registry) current() Queue {
	if r.resolve == nil {
		return nil
	}
	return r.resolve()
}

// Register adds a periodic timer for (w, id) to the calling goroutine's queue.
func (r *Registry) Register(w Window, id int64, interval uint64, proc Proc) error {
	return r.RegisterOn(r.current(), w, id, interval, proc)
}

func (r *Registry) RegisterOn(q Queue, w Window, id int64, interval uint64, proc Proc) error {
	if id == 0 {
		mlog.Warnf("register timer: bad identifier (%d)", id)
		return errs.InvalidArgument.Print("zero timer id")
	}
	if interval == 0 {
		interval = 1
	}
	if q == nil {
		mlog.Warnf("register timer: called for non message goroutine")
		return errs.NoQueue
	}
	if !q.OwnsWindow(w) {
		mlog.Warnf("register timer: window %#x not owned by current queue", w)
		return errs.Permission.Printf("window %#x", w)
	}

	table := q.TimerSlots()
	dup, slot := table.lookup(w, id)
	if dup >= 0 {
		mlog.Warnf("register timer: duplicated call (%#x, %d)", w, id)
		return errs.Duplicate.Printf("window %#x id %d slot %d", w, id, dup)
	}
	if slot < 0 {
		mlog.Warnf("register timer: no more slot for new timer (total: %d)", table.Cap())
		return errs.Exhausted.Printf("capacity %d", table.Cap())
	}

	table.put(slot, &Record{
		Owner:    w,
		ID:       id,
		Interval: interval,
		NextFire: r.ticks.Current() + interval,
		Proc:     proc,
	})
	r.adjustWake(q)
	return nil
}

// Modify restarts (w, id) with a new interval and callback.
func (r *Registry) Modify(w Window, id int64, interval uint64, proc Proc) error {
	return r.modify(r.current(), w, id, interval, proc, false)
}

// ModifyKeepProc restarts (w, id) with a new interval, keeping its callback.
func (r *Registry) ModifyKeepProc(w Window, id int64, interval uint64) error {
	return r.modify(r.current(), w, id, interval, nil, true)
}

func (r *Registry) ModifyOn(q Queue, w Window, id int64, interval uint64, proc Proc, keepProc bool) error {
	return r.modify(q, w, id, interval, proc, keepProc)
}

func (r *Registry) modify(q Queue, w Window, id int64, interval uint64, proc Proc, keepProc bool) error {
	if id == 0 {
		mlog.Warnf("modify timer: bad identifier (%d)", id)
		return errs.InvalidArgument.Print("zero timer id")
	}
	if q == nil {
		mlog.Warnf("modify timer: called for non message goroutine")
		return errs.NoQueue
	}
	if interval == 0 {
		interval = 1
	}
	table := q.TimerSlots()
	slot := table.Find(w, id)
	if slot < 0 {
		mlog.Warnf("modify timer: no timer (%#x, %d)", w, id)
		return errs.NotFound.Printf("window %#x id %d", w, id)
	}
	// a stale expiry must not be delivered with the new interval
	q.ClearTimerPending(slot)
	rec := table.slots[slot]
	rec.Interval = interval
	rec.NextFire = r.ticks.Current() + interval
	rec.LastFired = 0
	if !keepProc {
		rec.Proc = proc
	}
	r.adjustWake(q)
	return nil
}

// Cancel removes (w, id), or every timer of w when id is 0, and returns the
// number removed.
func (r *Registry) Cancel(w Window, id int64) (int, error) {
	return r.CancelOn(r.current(), w, id)
}

func (r *Registry) CancelOn(q Queue, w Window, id int64) (int, error) {
	if q == nil {
		mlog.Warnf("cancel timer: called for non message goroutine")
		return 0, errs.NoQueue
	}
	table := q.TimerSlots()
	killed := 0
	for i := 0; i < table.cap; i++ {
		rec := table.slots[i]
		if rec == nil || rec.Owner != w || (id != 0 && rec.ID != id) {
			continue
		}
		q.ClearTimerPending(i)
		table.release(i)
		killed++
		if id != 0 {
			break
		}
	}
	if killed > 0 {
		r.adjustWake(q)
	}
	return killed, nil
}

// RemoveSlot drops whatever record occupies slot.
func (r *Registry) RemoveSlot(q Queue, slot int) bool {
	if q == nil {
		return false
	}
	table := q.TimerSlots()
	if slot < 0 || slot >= table.cap {
		return false
	}
	q.ClearTimerPending(slot)
	if !table.release(slot) {
		return false
	}
	r.adjustWake(q)
	return true
}

// Exists reports whether (w, id) is registered on the calling goroutine's queue.
func (r *Registry) Exists(w Window, id int64) bool {
	if id == 0 {
		return false
	}
	q := r.current()
	if q == nil {
		mlog.Warnf("timer exists: called for non message goroutine")
		return false
	}
	return q.TimerSlots().Find(w, id) >= 0
}

// HasFreeSlot reports whether the calling goroutine's table has room.
func (r *Registry) HasFreeSlot() bool {
	q := r.current()
	if q == nil {
		mlog.Warnf("has free timer: called for non message goroutine")
		return false
	}
	return q.TimerSlots().HasFree()
}

// TeardownAll releases every record of q. The queue is going away, so the
// wake timeout is left alone.
func TeardownAll(q Queue) int {
	t := q.TimerSlots()
	for i := 0; i < t.cap; i++ {
		if t.slots[i] != nil {
			q.ClearTimerPending(i)
		}
	}
	return t.teardown()
}

func (r *Registry) adjustWake(q Queue) {
	if r.client {
		q.SetWakeTimeout(Recompute(q.TimerSlots(), r.tick))
	}
}

// Lookup returns a copy of the record in slot of q.
func (r *Registry) Lookup(q Queue, slot int) (Record, bool) {
	if q == nil {
		return Record{}, false
	}
	return q.TimerSlots().Record(slot)
}
