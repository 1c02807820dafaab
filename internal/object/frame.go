package object

// Handler is one entry in a frame's exception-handler stack (§4.2.4):
// "explicit per-frame handler stacks, not host-language exceptions". Each
// Throw walks frames from the top, looking for the nearest still-valid
// Handler, unwinding the value stack back to StackDepth before resuming at
// CatchOffset.
type Handler struct {
	CatchOffset   int
	StackDepth    int
}

// Frame is one call's activation record (§4.1.1, generalizing the teacher's
// runtime.frame{fn, ip, base}): which closure is executing, the next
// instruction to fetch, where its locals begin on the value stack, and its
// live exception handlers. Frame is plain data -- not a Value -- so it can
// be reused verbatim by both internal/vm's live call stack and a suspended
// Coroutine's saved one.
type Frame struct {
	Closure  *Closure
	IP       int
	Base     int
	Handlers []Handler
}

func NewFrame(closure *Closure, base int) *Frame {
	return &Frame{Closure: closure, Base: base}
}

func (f *Frame) PushHandler(catchOffset, stackDepth int) {
	f.Handlers = append(f.Handlers, Handler{CatchOffset: catchOffset, StackDepth: stackDepth})
}

func (f *Frame) PopHandler() {
	if len(f.Handlers) > 0 {
		f.Handlers = f.Handlers[:len(f.Handlers)-1]
	}
}

// TopHandler returns the innermost still-registered handler, if any.
func (f *Frame) TopHandler() (Handler, bool) {
	if len(f.Handlers) == 0 {
		return Handler{}, false
	}
	return f.Handlers[len(f.Handlers)-1], true
}

