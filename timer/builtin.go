package timer

import (
	"sync/atomic"

	"github.com/fixkme/wintimer/util/errs"
)

var builtinRegistry atomic.Pointer[Registry]

// SetDefault installs the registry behind the package level functions.
func SetDefault(r *Registry) {
	builtinRegistry.Store(r)
}

func Default() *Registry {
	return builtinRegistry.Load()
}

var errNotInitialized = errs.NoQueue.Print("timer subsystem not initialized")

func Register(w Window, id int64, interval uint64, proc Proc) error {
	r := Default()
	if r == nil {
		return errNotInitialized
	}
	return r.Register(w, id, interval, proc)
}

func Modify(w Window, id int64, interval uint64, proc Proc) error {
	r := Default()
	if r == nil {
		return errNotInitialized
	}
	return r.Modify(w, id, interval, proc)
}

func ModifyKeepProc(w Window, id int64, interval uint64) error {
	r := Default()
	if r == nil {
		return errNotInitialized
	}
	return r.ModifyKeepProc(w, id, interval)
}

func Cancel(w Window, id int64) (int, error) {
	r := Default()
	if r == nil {
		return 0, errNotInitialized
	}
	return r.Cancel(w, id)
}

func Exists(w Window, id int64) bool {
	if r := Default(); r != nil {
		return r.Exists(w, id)
	}
	return false
}

func HasFreeSlot() bool {
	if r := Default(); r != nil {
		return r.HasFreeSlot()
	}
	return false
}

func ScanExpired(q Queue, delta uint64) (int, error) {
	r := Default()
	if r == nil {
		return 0, errNotInitialized
	}
	return r.ScanExpired(q, delta)
}

func CurrentTick() uint64 {
	if r := Default(); r != nil {
		return r.CurrentTick()
	}
	return 0
}
