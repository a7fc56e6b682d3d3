package zvm

import (
	"fmt"
	"strings"

	"github.com/haldane-ifs/zengine/internal/quetzal"
	"github.com/haldane-ifs/zengine/internal/zobject"
)

// requestLine suspends for sread/read (VAR:4), optionally preceded by
// a status-line request on v3 stories, which carry no timer and have
// no other way to learn the room name/score/turns before a prompt.
// routineValue is the packed timer-interrupt routine address (0 if
// the story gave none), per §4.J/§9.
func (v *VM) requestLine(textAddr, parseAddr uint32, timeTenths uint16, routineValue uint16, hasStore bool) {
	maxChars := v.img.ReadByte(textAddr)
	line := suspend{
		kind:             suspendLine,
		timeTenths:       timeTenths,
		textAddr:         textAddr,
		parseAddr:        parseAddr,
		maxChars:         maxChars,
		hasStore:         hasStore,
		interruptRoutine: routineValue,
	}
	if hasStore {
		f := v.frame()
		line.storeVar = v.img.ReadByte(f.pc)
		f.pc++
	}

	if v.img.Version <= 3 {
		v.pending = suspend{kind: suspendStatusLine, status: v.statusLineResult(), next: &line}
		return
	}
	v.pending = line
}

// statusLineResult builds the StatusLine value for a v3 story; the
// status line is delivered as its own suspend ahead of the NeedLine
// it precedes, per §4.J.
func (v *VM) statusLineResult() StatusLine {
	locationVar, _ := v.readVariable(16, false)
	score, _ := v.readVariable(17, false)
	turns, _ := v.readVariable(18, false)
	var room string
	if locationVar != 0 {
		room = v.object(locationVar).ShortName(v.alphabets)
	}
	return StatusLine{
		RoomName:   room,
		Score:      int16(score),
		Turns:      turns,
		IsTimeGame: v.img.Flags1&0b0000_0010 != 0,
	}
}

// completeLine installs the host-supplied input line into the text
// buffer (and tokenises it), mirroring the teacher's read but against
// real dictionary/tokeniser types and without a channel round trip.
func (v *VM) completeLine(s suspend, line string) {
	lower := strings.ToLower(line)
	textAddr := s.textAddr

	bufferSize := v.img.ReadByte(textAddr)
	writePtr := textAddr + 1
	var existing uint32
	if v.img.Version >= 5 {
		existing = uint32(v.img.ReadByte(writePtr))
		writePtr += 1 + existing
	}

	ix := 0
	for ix <= int(bufferSize) && ix < len(lower) {
		chr := lower[ix]
		if (chr >= 32 && chr <= 126) || (chr >= 155 && chr <= 251) {
			v.img.WriteByte(writePtr+uint32(ix), chr)
		} else {
			v.img.WriteByte(writePtr+uint32(ix), ' ')
		}
		ix++
	}
	v.img.WriteByte(writePtr+uint32(ix), 0)

	if v.img.Version >= 5 {
		v.img.WriteByte(textAddr+1, uint8(existing+uint32(ix)))
	}

	if s.parseAddr != 0 {
		v.tokenise(textAddr, s.parseAddr, v.dictionary, false)
	}

	if s.hasStore {
		if err := v.writeVariable(s.storeVar, 13, false); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	}
}

func (v *VM) requestChar(timeTenths uint16, routineValue uint16) {
	f := v.frame()
	storeVar := v.img.ReadByte(f.pc)
	f.pc++
	v.pending = suspend{kind: suspendChar, timeTenths: timeTenths, storeVar: storeVar, interruptRoutine: routineValue}
}

func (v *VM) completeChar(s suspend, char uint8) {
	if err := v.writeVariable(s.storeVar, uint16(char), false); err != nil {
		v.fail(fatalf(v.currentPC, "%s", err.Error()))
	}
}

// fireTimerInterrupt runs a read/read_char's timer routine as an
// ordinary call, stashing s so resolveTimerInterrupt can either abort
// the read (routine returned nonzero) or re-suspend it (returned
// zero) once that call returns, per the Standard's timed-input rule.
// A routine address of 0 means the story set a timeout with no
// routine to run; there the read simply re-suspends immediately.
func (v *VM) fireTimerInterrupt(s suspend) {
	if s.interruptRoutine == 0 {
		v.pending = s
		v.pendingDelivered = false
		return
	}

	addr := v.img.PackedAddress(s.interruptRoutine, false)
	if addr == 0 {
		v.pending = s
		v.pendingDelivered = false
		return
	}

	saved := s
	v.interrupted = &saved

	localCount := int(v.img.ReadByte(addr))
	ptr := addr + 1
	locals := make([]uint16, localCount)
	for i := 0; i < localCount; i++ {
		if v.img.Version < 5 {
			locals[i] = v.img.ReadWord(ptr)
			ptr += 2
		}
	}
	v.stack.push(frame{pc: ptr, locals: locals, isTimerInterrupt: true})
}

// resolveTimerInterrupt is doReturn's continuation for a frame marked
// isTimerInterrupt: value nonzero aborts the pending read entirely
// (completed as if the player had typed nothing); zero resumes
// waiting for the same request.
func (v *VM) resolveTimerInterrupt(value uint16) {
	s := v.interrupted
	v.interrupted = nil
	if s == nil {
		return
	}
	if value != 0 {
		if s.kind == suspendChar {
			v.completeChar(*s, 0)
		} else {
			v.completeLine(*s, "")
		}
		return
	}
	v.pending = *s
	v.pendingDelivered = false
}

// requestSave suspends for the save opcode, handing the host a
// complete Quetzal IFZS blob to persist. Versions 1-3 report the
// outcome via the branch convention; v4+ stores it (0 fail, 1 ok).
func (v *VM) requestSave() {
	s := suspend{kind: suspendSave}
	if v.img.Version <= 3 {
		onTrue, offset := v.parseBranch()
		s.useBranch, s.branchOnTrue, s.branchOffset = true, onTrue, offset
	} else {
		f := v.frame()
		s.storeVar = v.img.ReadByte(f.pc)
		f.pc++
	}
	v.pending = s
}

func (v *VM) exportSave() []uint8 {
	header := quetzal.Header{
		Release:  v.img.ReleaseNumber,
		Serial:   v.img.SerialNumber,
		Checksum: v.img.FileChecksum,
		PC:       v.currentPC,
	}
	return quetzal.Encode(header, v.original[:v.img.StaticMemoryBase], v.img.DynamicMemory(), v.exportFrames(), true)
}

func (v *VM) exportFrames() []quetzal.StackFrame {
	frames := make([]quetzal.StackFrame, len(v.stack.frames))
	for i, f := range v.stack.frames {
		frames[i] = quetzal.StackFrame{
			ReturnPC:      f.returnPC,
			HasStore:      f.hasStore,
			StoreVariable: f.storeVariable,
			ArgumentMask:  f.argumentMask,
			Locals:        append([]uint16(nil), f.locals...),
			EvalStack:     append([]uint16(nil), f.evalStack...),
		}
	}
	return frames
}

func (v *VM) requestRestore() {
	s := suspend{kind: suspendRestore}
	if v.img.Version <= 3 {
		onTrue, offset := v.parseBranch()
		s.useBranch, s.branchOnTrue, s.branchOffset = true, onTrue, offset
	} else {
		f := v.frame()
		s.storeVar = v.img.ReadByte(f.pc)
		f.pc++
	}
	v.pending = s
}

// completeRestore installs the restored state on success. On success
// the restored call-stack's own PC (taken from the moment of the
// matching save) supersedes any branch/store convention at the
// restore instruction entirely, per the Standard: only a failed
// restore reports outcome at the restore site itself.
func (v *VM) completeRestore(s suspend, data []uint8) {
	file, err := func() (*quetzal.File, error) {
		if data == nil {
			return nil, fmt.Errorf("no save data supplied")
		}
		return quetzal.Decode(data, v.original[:v.img.StaticMemoryBase])
	}()
	if err != nil || file.Header.Release != v.img.ReleaseNumber || file.Header.Serial != v.img.SerialNumber {
		v.reportSaveOutcome(s, false)
		return
	}

	v.img.SetDynamicMemory(file.Memory)
	v.img.StampInterpreterBytes(v.options.ScreenCols, v.options.ScreenRows, v.options.DefaultFG, v.options.DefaultBG, v.options.StatusCapable, v.options.UndoSupported)

	v.stack = callStack{}
	for _, qf := range file.Frames {
		v.stack.push(frame{
			returnPC:      qf.ReturnPC,
			hasStore:      qf.HasStore,
			storeVariable: qf.StoreVariable,
			argumentMask:  qf.ArgumentMask,
			locals:        qf.Locals,
			evalStack:     qf.EvalStack,
		})
	}
	if top := v.stack.top(); top != nil {
		top.pc = file.Header.PC
	}
	// A successful restore resumes exactly the suspended state; the
	// restored frame's own store/branch (captured at save time, before
	// its outcome was written) is left untouched rather than re-applied.
}

// reportSaveOutcome reports a save/restore result at the instruction
// that requested it: branch form for v1-3, store form for v4+. ok is
// whether the operation succeeded (restore always fails into this path
// only on failure; save reports either way).
func (v *VM) reportSaveOutcome(s suspend, ok bool) {
	if s.useBranch {
		v.applyBranch(ok, s.branchOnTrue, s.branchOffset, v.frame().pc)
		return
	}
	result := uint16(0)
	if ok {
		result = 1
	}
	v.writeVariable(s.storeVar, result, false)
}

// saveUndo/restoreUndo keep a single in-memory snapshot, per §4.I.
func (v *VM) saveUndo() uint16 {
	header := quetzal.Header{Release: v.img.ReleaseNumber, Serial: v.img.SerialNumber, Checksum: v.img.FileChecksum, PC: v.currentPC}
	data := quetzal.Encode(header, v.original[:v.img.StaticMemoryBase], v.img.DynamicMemory(), v.exportFrames(), false)
	file, _ := quetzal.Decode(data, v.original[:v.img.StaticMemoryBase])
	v.undo = file
	return 1
}

func (v *VM) restoreUndo() uint16 {
	if v.undo == nil {
		return 0
	}
	file := v.undo
	v.img.SetDynamicMemory(file.Memory)
	v.img.StampInterpreterBytes(v.options.ScreenCols, v.options.ScreenRows, v.options.DefaultFG, v.options.DefaultBG, v.options.StatusCapable, v.options.UndoSupported)

	v.stack = callStack{}
	for _, qf := range file.Frames {
		v.stack.push(frame{
			returnPC:      qf.ReturnPC,
			hasStore:      qf.HasStore,
			storeVariable: qf.StoreVariable,
			argumentMask:  qf.ArgumentMask,
			locals:        qf.Locals,
			evalStack:     qf.EvalStack,
		})
	}
	if top := v.stack.top(); top != nil {
		top.pc = file.Header.PC
	}
	return 2
}

func (v *VM) restart() {
	fresh := New(v.storyBytes, v.options)
	*v = *fresh
}

func (v *VM) verify() bool {
	return v.img.Checksum() == v.img.FileChecksum
}

func (v *VM) removeObject(id uint16) {
	if id == 0 {
		return
	}
	zobject.Remove(v.img, id)
}

func (v *VM) insertObject(id, dest uint16) {
	if id == 0 {
		return
	}
	zobject.Insert(v.img, id, dest)
}
