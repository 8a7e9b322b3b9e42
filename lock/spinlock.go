package lock

import (
	"runtime"
	"sync/atomic"
)

const (
	spinTries  = 4  // 先空转几次再让出
	maxBackoff = 16 // 让出次数上限
)

// SpinLock guards critical sections that only touch memory: a map lookup,
// a FIFO push or pop. Holders must never block or call out while locked.
// The zero value is unlocked.
type SpinLock struct {
	state atomic.Uint32
}

func NewSpinLock() *SpinLock {
	return new(SpinLock)
}

func (sl *SpinLock) TryLock() bool {
	return sl.state.CompareAndSwap(0, 1)
}

func (sl *SpinLock) Lock() {
	for i := 0; i < spinTries; i++ {
		if sl.TryLock() {
			return
		}
	}
	backoff := 1
	for !sl.TryLock() {
		// 指数退避, 持有者可能被抢占
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
}

func (sl *SpinLock) Unlock() {
	if sl.state.Swap(0) == 0 {
		panic("lock: unlock of unlocked SpinLock")
	}
}
