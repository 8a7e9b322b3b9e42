package timer

import "time"

// NumSlots is the slot count of every queue's table. Pending flags for a
// table fit in one 64 bit word.
const NumSlots = 64

// Window is an opaque window handle.
type Window uintptr

// Proc is called on the owning goroutine when a timer fires. tick is the
// tick at which the expiry was detected. Returning false cancels the timer.
type Proc func(w Window, id int64, tick uint64) bool

// Record is one registered periodic timer.
type Record struct {
	Owner     Window
	ID        int64
	Interval  uint64
	NextFire  uint64
	LastFired uint64
	Proc      Proc
}

// SlotTable is a fixed array of optional records owned by one queue. It is
// not safe for concurrent use; only the owning goroutine touches it.
type SlotTable struct {
	slots [NumSlots]*Record
	cap   int
	count int
}

// NewSlotTable creates a table with capacity clamped to [1, NumSlots].
func NewSlotTable(capacity int) *SlotTable {
	if capacity <= 0 || capacity > NumSlots {
		capacity = NumSlots
	}
	return &SlotTable{cap: capacity}
}

func (t *SlotTable) Cap() int   { return t.cap }
func (t *SlotTable) Count() int { return t.count }

func (t *SlotTable) HasFree() bool {
	return t.count < t.cap
}

// Record returns a copy of the record in slot.
func (t *SlotTable) Record(slot int) (Record, bool) {
	if slot < 0 || slot >= t.cap || t.slots[slot] == nil {
		return Record{}, false
	}
	return *t.slots[slot], true
}

// Find returns the slot holding (w, id), or -1.
func (t *SlotTable) Find(w Window, id int64) int {
	for i := 0; i < t.cap; i++ {
		if r := t.slots[i]; r != nil && r.Owner == w && r.ID == id {
			return i
		}
	}
	return -1
}

// Range calls fn for each live slot from low to high until fn returns false.
func (t *SlotTable) Range(fn func(slot int, r Record) bool) {
	for i := 0; i < t.cap; i++ {
		if r := t.slots[i]; r != nil && !fn(i, *r) {
			return
		}
	}
}

// lookup scans once for a duplicate of (w, id) and the lowest free slot.
func (t *SlotTable) lookup(w Window, id int64) (dup, free int) {
	dup, free = -1, -1
	for i := 0; i < t.cap; i++ {
		r := t.slots[i]
		if r == nil {
			if free < 0 {
				free = i
			}
		} else if r.Owner == w && r.ID == id {
			dup = i
			return
		}
	}
	return
}

func (t *SlotTable) put(slot int, r *Record) {
	t.slots[slot] = r
	t.count++
}

func (t *SlotTable) release(slot int) bool {
	if t.slots[slot] == nil {
		return false
	}
	t.slots[slot] = nil
	t.count--
	return true
}

func (t *SlotTable) teardown() int {
	n := 0
	for i := 0; i < t.cap; i++ {
		if t.slots[i] != nil {
			t.slots[i] = nil
			n++
		}
	}
	t.count = 0
	return n
}

// MinInterval returns the smallest interval among live records.
func (t *SlotTable) MinInterval() (uint64, bool) {
	var least uint64
	for i := 0; i < t.cap; i++ {
		if r := t.slots[i]; r != nil && (least == 0 || r.Interval < least) {
			least = r.Interval
		}
	}
	return least, least != 0
}

// Recompute returns the wait bound for a dispatch loop serving t: the
// shortest registered interval, or 0 (unset) for an empty table.
func Recompute(t *SlotTable, tick time.Duration) time.Duration {
	least, ok := t.MinInterval()
	if !ok {
		return 0
	}
	return time.Duration(least) * tick
}
