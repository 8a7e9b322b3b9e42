package clock

import "sync/atomic"

var builtinSource atomic.Pointer[Source]

// SetDefault installs the process tick source read by TickCount.
func SetDefault(s *Source) {
	builtinSource.Store(s)
}

func Default() *Source {
	return builtinSource.Load()
}

// TickCount returns the current tick of the default source, 0 before one is
// installed.
func TickCount() uint64 {
	if s := builtinSource.Load(); s != nil {
		return s.Current()
	}
	return 0
}
