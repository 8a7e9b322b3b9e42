package errs

const (
	ErrCode_OK      = 0
	ErrCode_Unknown = 1

	// timer registry
	ErrCode_InvalidArgument = 100
	ErrCode_NoQueue         = 101
	ErrCode_Permission      = 102
	ErrCode_Duplicate       = 103
	ErrCode_Exhausted       = 104
	ErrCode_NotFound        = 105

	// tick source
	ErrCode_ClockUnsupported = 200
	ErrCode_ClockState       = 201
	ErrCode_WriterLocked     = 202

	// message queue
	ErrCode_QueueBinding = 300
)

var (
	Unknown = CreateCodeError(ErrCode_Unknown, "UNKNOWN")

	InvalidArgument = CreateCodeError(ErrCode_InvalidArgument, "INVALID_ARGUMENT")
	NoQueue         = CreateCodeError(ErrCode_NoQueue, "NO_MESSAGE_QUEUE")
	Permission      = CreateCodeError(ErrCode_Permission, "WINDOW_NOT_OWNED")
	Duplicate       = CreateCodeError(ErrCode_Duplicate, "DUPLICATE_TIMER")
	Exhausted       = CreateCodeError(ErrCode_Exhausted, "NO_FREE_SLOT")
	NotFound        = CreateCodeError(ErrCode_NotFound, "TIMER_NOT_FOUND")

	ClockUnsupported = CreateCodeError(ErrCode_ClockUnsupported, "CLOCK_UNSUPPORTED")
	ClockState       = CreateCodeError(ErrCode_ClockState, "CLOCK_STATE")
	WriterLocked     = CreateCodeError(ErrCode_WriterLocked, "TICK_WRITER_LOCKED")

	QueueBinding = CreateCodeError(ErrCode_QueueBinding, "QUEUE_BINDING")
)
