package msgq

import "github.com/fixkme/wintimer/timer"

type MsgKind int

const (
	MsgUser MsgKind = iota
	// MsgTimer is delivered for an expired timer registered without a Proc.
	MsgTimer
)

func (k MsgKind) String() string {
	switch k {
	case MsgTimer:
		return "timer"
	case MsgUser:
		return "user"
	}
	return "unknown"
}

type Msg struct {
	Kind   MsgKind
	Window timer.Window
	ID     int64  // timer id for MsgTimer
	Tick   uint64 // tick the expiry was detected at
	Data   any
}

// Handler receives posted messages and timer messages on the queue's goroutine.
type Handler interface {
	Handle(q *MsgQueue, m Msg)
}

type HandlerFunc func(q *MsgQueue, m Msg)

func (f HandlerFunc) Handle(q *MsgQueue, m Msg) { f(q, m) }
