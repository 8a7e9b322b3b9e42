package clock

import "sync/atomic"

// Counter is the backing store of the tick counter. Implementations must
// make Load/Store/Inc atomic at the word level: Inc runs on the tick path
// and never takes a lock.
type Counter interface {
	Load() uint64
	Store(v uint64)
	Inc() uint64
	Close() error
}

// LocalCounter keeps the tick count in process memory.
type LocalCounter struct {
	v atomic.Uint64
}

func NewLocalCounter() *LocalCounter {
	return &LocalCounter{}
}

func (c *LocalCounter) Load() uint64   { return c.v.Load() }
func (c *LocalCounter) Store(v uint64) { c.v.Store(v) }
func (c *LocalCounter) Inc() uint64    { return c.v.Add(1) }
func (c *LocalCounter) Close() error   { return nil }
