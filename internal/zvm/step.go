package zvm

import "fmt"

// StepResult is the value a VM yields to its host. Exactly one of the
// concrete types below is returned from each call to Step.
type StepResult interface{ isStepResult() }

// Done reports that the story has finished (quit, or a fatal error).
type Done struct {
	Err  *Fatal
	Quit bool
}

// NeedLine asks the host to read a line of input, optionally under a
// countdown timer (TimeTenths == 0 means no timer), and resume with it.
type NeedLine struct {
	TimeTenths uint16
	TextAddr   uint32
	ParseAddr  uint32
	MaxChars   uint8
}

// NeedChar asks the host for a single ZSCII character code.
type NeedChar struct {
	TimeTenths uint16
}

// Save asks the host to persist Bytes somewhere the player can name,
// and resume with whether it succeeded.
type Save struct {
	Bytes []uint8
}

// Restore asks the host to retrieve a previously saved blob and
// resume with it (nil Data means the player cancelled or it failed).
type Restore struct{}

// Output is emitted zero or more times before every Need* result,
// carrying screen text and the stream mask active when it was
// produced.
type Output struct {
	Text       string
	StreamMask uint8
}

// StatusLine is requested before each NeedLine on version 3 stories,
// which have no means to query the object tree for the room name
// themselves within the host's rendering loop.
type StatusLine struct {
	RoomName   string
	Score      int16
	Turns      uint16
	IsTimeGame bool
}

func (Done) isStepResult()       {}
func (NeedLine) isStepResult()   {}
func (NeedChar) isStepResult()   {}
func (Save) isStepResult()       {}
func (Restore) isStepResult()    {}
func (Output) isStepResult()     {}
func (StatusLine) isStepResult() {}

// Resume carries the host's answer to whichever request Step last
// returned. Only the field matching that request is read.
type Resume struct {
	Line        string
	Char        uint8
	SaveOK      bool
	RestoreData []uint8

	// TimedOut answers a NeedLine/NeedChar whose TimeTenths was nonzero:
	// the host's countdown elapsed before the player supplied input.
	// The VM runs the story's timer routine and, unless it aborts the
	// read, re-suspends with the same request.
	TimedOut bool
}

type suspendKind int

const (
	suspendNone suspendKind = iota
	suspendLine
	suspendChar
	suspendSave
	suspendRestore
	suspendStatusLine
	suspendDone
)

// suspend records what the VM is waiting on, and enough context to
// apply the host's eventual answer and continue execution.
type suspend struct {
	kind             suspendKind
	timeTenths       uint16
	textAddr         uint32
	parseAddr        uint32
	maxChars         uint8
	hasStore         bool // v5+ read/read_char store the terminating character
	storeVar         uint8
	interruptRoutine uint16 // packed routine address for a read/read_char timer, 0 if none
	useBranch        bool   // save/restore in v1-3 branch on success instead of storing
	branchOnTrue     bool
	branchOffset     int32
	done             Done
	status           StatusLine
	next             *suspend // chained suspend to deliver once this one resolves, e.g. v3's StatusLine before NeedLine
}

var zeroSuspend suspend

// Step runs the VM until it has something to report. Call it in a
// loop: any number of Output results may precede a Need*/Save/Restore/
// StatusLine/Done result. Pass the zero Resume except when answering
// the immediately preceding Need*/Save/Restore request.
func (v *VM) Step(resume Resume) StepResult {
	if len(v.outputBuf) > 0 {
		return v.drainOutput()
	}

	if v.pending.kind != suspendNone {
		if !v.pendingDelivered {
			v.pendingDelivered = true
			return v.deliverPending()
		}
		if v.pending.kind == suspendStatusLine && v.pending.next != nil {
			v.pending = *v.pending.next
			v.pendingDelivered = true
			return v.deliverPending()
		}
		v.applyResume(resume)
		v.pending = zeroSuspend
		v.pendingDelivered = false
	}

	return v.run()
}

func (v *VM) drainOutput() StepResult {
	ev := v.outputBuf[0]
	v.outputBuf = v.outputBuf[1:]
	return Output{Text: ev.text, StreamMask: ev.streamMask}
}

func (v *VM) deliverPending() StepResult {
	s := v.pending
	switch s.kind {
	case suspendDone:
		return s.done
	case suspendLine:
		return NeedLine{TimeTenths: s.timeTenths, TextAddr: s.textAddr, ParseAddr: s.parseAddr, MaxChars: s.maxChars}
	case suspendChar:
		return NeedChar{TimeTenths: s.timeTenths}
	case suspendSave:
		return Save{Bytes: v.exportSave()}
	case suspendRestore:
		return Restore{}
	case suspendStatusLine:
		return s.status
	default:
		return Done{Quit: true}
	}
}

// applyResume installs the host's answer into memory/variables for
// the request that was just delivered. Execution resumes via run()
// immediately afterwards in Step.
func (v *VM) applyResume(resume Resume) {
	s := v.pending
	switch s.kind {
	case suspendStatusLine:
		return // nothing to apply; the following NeedLine is separately requested
	case suspendLine:
		if resume.TimedOut {
			v.fireTimerInterrupt(s)
			return
		}
		v.completeLine(s, resume.Line)
	case suspendChar:
		if resume.TimedOut {
			v.fireTimerInterrupt(s)
			return
		}
		v.completeChar(s, resume.Char)
	case suspendSave:
		v.reportSaveOutcome(s, resume.SaveOK)
	case suspendRestore:
		v.completeRestore(s, resume.RestoreData)
	}
}

func fatalf(pc uint32, format string, args ...interface{}) *Fatal {
	return &Fatal{PC: pc, Message: fmt.Sprintf(format, args...)}
}

// run executes instructions until a suspend condition arises, then
// stashes it for Step to deliver.
func (v *VM) run() StepResult {
	for {
		if v.quit {
			return Done{Quit: true}
		}

		f := v.stack.top()
		pc := f.pc
		v.currentPC = pc

		inst := v.decode(&pc)
		f.pc = pc

		v.execute(&inst)

		if v.pending.kind != suspendNone {
			if len(v.outputBuf) > 0 {
				return v.drainOutput()
			}
			v.pendingDelivered = true
			return v.deliverPending()
		}
		if len(v.outputBuf) > 0 {
			return v.drainOutput()
		}
	}
}

// fail records a fatal error as a pending Done result, to be returned
// once any buffered output has drained.
func (v *VM) fail(err *Fatal) {
	v.pending = suspend{kind: suspendDone, done: Done{Err: err}}
}
