// Package debug implements Stratum's stepping debugger (spec §4.4),
// grounded on original_source/stratum-cli/src/dap.rs's naming
// (DebugStepResult, PauseReason) and wired through internal/vm's
// instruction hook the same way the teacher wired evaluation into its
// Environment rather than a separate tracer.
package debug

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"stratum/internal/bytecode"
	"stratum/internal/object"
	"stratum/internal/value"
	"stratum/internal/vm"
)

// PauseReason names why Step/Run returned control to the caller, mirroring
// dap.rs's PauseReason::{Breakpoint, Step, Entry}.
type PauseReason int

const (
	ReasonEntry PauseReason = iota
	ReasonBreakpoint
	ReasonStep
)

func (r PauseReason) String() string {
	switch r {
	case ReasonBreakpoint:
		return "breakpoint"
	case ReasonStep:
		return "step"
	default:
		return "entry"
	}
}

// StepResultKind tags a DebugStepResult's variant, mirroring dap.rs's
// DebugStepResult::{Paused, Completed, Stopped, Error}.
type StepResultKind int

const (
	Paused StepResultKind = iota
	Completed
	Stopped
	Error
)

// DebugStepResult is what one Step/Continue call reports back.
type DebugStepResult struct {
	Kind   StepResultKind
	Reason PauseReason
	State  *State
	Value  value.Value
	Err    error
}

// Breakpoint is one registered pause point, keyed by source line within a
// chunk's Source file.
type Breakpoint struct {
	ID     string
	File   string
	Line   int
	Hits   int
}

// State is a point-in-time snapshot of the call stack and locals, cloned by
// reference bump (retain), not deep copy, matching §4.4: "DebugState
// snapshots" are cheap to take because containers are shared handles.
type State struct {
	Frames []FrameSnapshot
}

type FrameSnapshot struct {
	Function string
	Line     int
	Locals   map[string]value.Value
}

// String renders a snapshot using go-spew, the same library the pack's
// other debugging-adjacent tools reach for to dump nested structures
// legibly (SPEC_FULL §A.2).
func (s *State) String() string {
	return spew.Sdump(s)
}

// stepMode tracks what kind of single-step is currently armed.
type stepMode int

const (
	stepNone stepMode = iota
	stepInto
	stepOver
	stepOut
)

// Session drives a vm.VM under stepping control. It installs an instruction
// hook (vm.SetInstructionHook) rather than re-implementing fetch-decode-
// dispatch, the same way internal/coverage observes execution without
// touching internal/vm's opcode switch.
type Session struct {
	ID          string
	VM          *vm.VM
	breakpoints map[string]*Breakpoint

	mode     stepMode
	armDepth int // frame-stack depth at the moment a step was armed

	stopOnEntry bool // launch-time opt-in, mirroring dap.rs's stop_on_entry
	entered     bool // true once the entry pause has been consumed (or skipped)

	lastReason PauseReason // the reason the instruction hook most recently paused for

	// pausedFrame/pausedLine record where the last pause stopped; the hook
	// does not pause again until execution leaves that line of that frame.
	pausedFrame *object.Frame
	pausedLine  int
}

func NewSession(v *vm.VM) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		VM:          v,
		breakpoints: map[string]*Breakpoint{},
	}
	return s
}

// AddBreakpoint registers a pause point at file:line, returning its id.
func (s *Session) AddBreakpoint(file string, line int) string {
	bp := &Breakpoint{ID: uuid.NewString(), File: file, Line: line}
	s.breakpoints[bp.ID] = bp
	return bp.ID
}

func (s *Session) ClearBreakpoints() {
	s.breakpoints = map[string]*Breakpoint{}
}

func (s *Session) RemoveBreakpoint(id string) {
	delete(s.breakpoints, id)
}

// hitBreakpoint reports the Breakpoint (if any) registered at file:line,
// bumping its hit counter.
func (s *Session) hitBreakpoint(file string, line int) (*Breakpoint, bool) {
	for _, bp := range s.breakpoints {
		if bp.File == file && bp.Line == line {
			bp.Hits++
			return bp, true
		}
	}
	return nil, false
}

// snapshot walks the live VM's frame stack via reflection-free accessors
// exposed on object.Frame, producing a State without copying container
// interiors (§4.4).
func snapshot(frames []*object.Frame, stack []value.Value) *State {
	out := &State{}
	for _, f := range frames {
		locals := map[string]value.Value{}
		for i := f.Base; i < len(stack); i++ {
			value.Retain(stack[i])
			locals[fmt.Sprintf("slot%d", i-f.Base)] = stack[i]
		}
		out.Frames = append(out.Frames, FrameSnapshot{
			Function: f.Closure.Fn.Name,
			Line:     f.Closure.Fn.Chunk.GetLine(f.IP),
			Locals:   locals,
		})
	}
	return out
}

// --- stepping entry points ------------------------------------------------

// StepInto arms a single-step that pauses at the next executed instruction
// that is on another source line or in another frame than the paused one,
// regardless of call depth.
func (s *Session) StepInto() { s.mode = stepInto }

// StepOver arms a pause at the next instruction executed at the same (or
// shallower) frame depth as the one current when Step is called, once
// execution has left the source line it paused on.
func (s *Session) StepOver(currentDepth int) {
	s.mode = stepOver
	s.armDepth = currentDepth
}

// StepOut arms a pause at the next instruction executed once the current
// frame has returned (frame depth strictly less than currentDepth).
func (s *Session) StepOut(currentDepth int) {
	s.mode = stepOut
	s.armDepth = currentDepth
}

func (s *Session) clearStep() { s.mode = stepNone }

// pauseReason evaluates the installed instruction hook's contract: does the
// about-to-execute instruction at frame warrant a pause, and why.
func (s *Session) pauseReason(frame *object.Frame) (PauseReason, bool) {
	if s.stopOnEntry && !s.entered {
		return ReasonEntry, true
	}
	file := frame.Closure.Fn.Chunk.Source
	line := frame.Closure.Fn.Chunk.GetLine(frame.IP)
	if frame == s.pausedFrame && line == s.pausedLine {
		return ReasonEntry, false
	}
	s.pausedFrame = nil
	if _, hit := s.hitBreakpoint(file, line); hit {
		return ReasonBreakpoint, true
	}
	depth := len(s.VM.Frames())
	switch s.mode {
	case stepInto:
		return ReasonStep, true
	case stepOver:
		if depth <= s.armDepth {
			return ReasonStep, true
		}
	case stepOut:
		if depth < s.armDepth {
			return ReasonStep, true
		}
	}
	return ReasonEntry, false
}

// install wires this session's breakpoint/step logic into the VM's
// instruction hook.
func (s *Session) install() {
	s.VM.SetInstructionHook(func(frame *object.Frame, op bytecode.OpCode) bool {
		reason, pause := s.pauseReason(frame)
		if pause {
			s.lastReason = reason
			s.pausedFrame, s.pausedLine = frame, frame.Closure.Fn.Chunk.GetLine(frame.IP)
			if reason == ReasonEntry {
				s.entered = true
			}
		}
		return pause
	})
}

// Start runs fn from the entry, mirroring a DAP launch request: by default
// it runs straight to the first breakpoint (or completion) with no pause on
// the entry instruction, matching dap.rs's stop_on_entry defaulting to
// false. Pass stopOnEntry=true to arm an explicit PauseReason::Entry pause
// first, the opt-in dap.rs exposes as a launch argument.
func (s *Session) Start(fn *object.Function, stopOnEntry bool) DebugStepResult {
	s.install()
	s.mode = stepNone
	s.stopOnEntry = stopOnEntry
	s.entered = !stopOnEntry
	return s.drive(func() (value.Value, error) { return s.VM.Run(fn) })
}

// Continue resumes execution until the next breakpoint/step pause or
// program completion.
func (s *Session) Continue() DebugStepResult {
	return s.drive(s.VM.Continue)
}

func (s *Session) drive(step func() (value.Value, error)) DebugStepResult {
	result, err := step()
	if err == vm.ErrPaused {
		reason := s.lastReason
		s.clearStep()
		return DebugStepResult{
			Kind:   Paused,
			Reason: reason,
			State:  snapshot(s.VM.Frames(), s.VM.Stack()),
		}
	}
	if err != nil {
		return DebugStepResult{Kind: Error, Err: err}
	}
	return DebugStepResult{Kind: Completed, Value: result}
}

// StepOverNow arms a step-over from the currently paused frame and resumes.
func (s *Session) StepOverNow() DebugStepResult {
	s.StepOver(len(s.VM.Frames()))
	return s.Continue()
}

// StepIntoNow arms a step-into and resumes.
func (s *Session) StepIntoNow() DebugStepResult {
	s.StepInto()
	return s.Continue()
}

// StepOutNow arms a step-out from the currently paused frame and resumes.
func (s *Session) StepOutNow() DebugStepResult {
	s.StepOut(len(s.VM.Frames()))
	return s.Continue()
}
