package zvm

import (
	"github.com/haldane-ifs/zengine/internal/dictionary"
	"github.com/haldane-ifs/zengine/internal/zobject"
	"github.com/haldane-ifs/zengine/internal/zstring"
)

// execute dispatches one decoded instruction. Any fatal condition is
// recorded via v.fail; any host-bound suspend is recorded in v.pending.
// Both are checked by run() after this returns.
func (v *VM) execute(inst *instruction) {
	values, err := v.operandValues(inst.operands)
	if err != nil {
		v.fail(fatalf(v.currentPC, "%s", err.Error()))
		return
	}

	switch inst.count {
	case op0:
		v.exec0(inst, values)
	case op1:
		v.exec1(inst, values)
	case op2:
		v.exec2(inst, values)
	case opVar:
		v.execVar(inst, values)
	case opExt:
		v.execExt(inst, values)
	}
}

func (v *VM) frame() *frame { return v.stack.top() }

// store reads the trailing store-variable byte at the current frame's
// PC and writes result to it.
func (v *VM) store(result uint16) {
	f := v.frame()
	dest := v.img.ReadByte(f.pc)
	f.pc++
	if err := v.writeVariable(dest, result, false); err != nil {
		v.fail(fatalf(v.currentPC, "%s", err.Error()))
	}
}

// parseBranch reads the trailing branch byte(s) at the current frame's
// PC, advancing past them, and returns the branch polarity and target
// offset without acting on them yet. Used both by branch() and by the
// v1-3 save/restore opcodes, which decide their polarity from a result
// that is only known after a host round trip.
func (v *VM) parseBranch() (onTrue bool, offset int32) {
	f := v.frame()
	b1 := v.img.ReadByte(f.pc)
	f.pc++

	onTrue = b1&0b1000_0000 != 0
	if b1&0b0100_0000 != 0 {
		offset = int32(b1 & 0b0011_1111)
	} else {
		b2 := v.img.ReadByte(f.pc)
		f.pc++
		raw := (uint16(b1&0b0011_1111) << 8) | uint16(b2)
		offset = int32(int16(raw<<2) >> 2)
	}
	return onTrue, offset
}

// applyBranch transfers control if test matches the branch's recorded
// polarity, per §4.F. pc is the instruction-end address the offset is
// relative to (the frame's PC immediately after parseBranch returned).
func (v *VM) applyBranch(test, onTrue bool, offset int32, pc uint32) {
	if test != onTrue {
		return
	}
	switch offset {
	case 0:
		v.doReturn(0)
	case 1:
		v.doReturn(1)
	default:
		v.frame().pc = uint32(int64(pc) + int64(offset) - 2)
	}
}

// branch reads the trailing branch byte(s) and transfers control if
// test matches the branch's polarity, per §4.F.
func (v *VM) branch(test bool) {
	onTrue, offset := v.parseBranch()
	v.applyBranch(test, onTrue, offset, v.frame().pc)
}

func (v *VM) printText(s string) { v.emit(s) }

// printZstring decodes and prints a Z-string located at addr,
// returning the address just past it.
func (v *VM) printZstring(addr uint32) uint32 {
	text, next, err := zstring.Decode(v.img, v.alphabets, addr)
	if err != nil {
		v.fail(fatalf(v.currentPC, "%s", err.Error()))
		return addr + next
	}
	v.printText(text)
	return addr + next
}

func (v *VM) doCall(routineValue uint16, args []uint16, hasStore bool) {
	routineAddr := v.img.PackedAddress(routineValue, false)
	f := v.frame()

	if routineAddr == 0 {
		if hasStore {
			v.store(0)
		}
		return
	}

	localCount := int(v.img.ReadByte(routineAddr))
	ptr := routineAddr + 1
	locals := make([]uint16, localCount)

	for i := 0; i < localCount; i++ {
		switch {
		case i < len(args):
			locals[i] = args[i]
		case v.img.Version < 5:
			locals[i] = v.img.ReadWord(ptr)
		}
		if v.img.Version < 5 {
			ptr += 2
		}
	}

	var storeVar uint8
	if hasStore {
		storeVar = v.img.ReadByte(f.pc)
		f.pc++
	}

	var argMask uint8
	for i := 0; i < len(args) && i < 8; i++ {
		argMask |= 1 << uint(i)
	}

	v.stack.push(frame{
		pc:            ptr,
		locals:        locals,
		hasStore:      hasStore,
		storeVariable: storeVar,
		argumentMask:  argMask,
		returnPC:      f.pc,
	})
}

func (v *VM) doReturn(value uint16) {
	returned, err := v.stack.pop()
	if err != nil {
		v.fail(fatalf(v.currentPC, "%s", err.Error()))
		return
	}
	if returned.isTimerInterrupt {
		v.resolveTimerInterrupt(value)
		return
	}
	if v.stack.depth() == 0 {
		v.pending = suspend{kind: suspendDone, done: Done{Quit: true}}
		return
	}
	caller := v.stack.top()
	caller.pc = returned.returnPC
	if returned.hasStore {
		if err := v.writeVariable(returned.storeVariable, value, false); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	}
}

// doThrow implements the v5 throw opcode: a non-local jump that
// discards every frame created since the matching catch, then returns
// value from the frame catch was called in, as if that frame had
// itself just executed "return value".
func (v *VM) doThrow(value uint16, token uint16) {
	depth := int(token)
	if depth < 1 || depth > v.stack.depth() {
		v.fail(fatalf(v.currentPC, "invalid catch token %d", token))
		return
	}
	v.stack.frames = v.stack.frames[:depth]
	f, err := v.stack.pop()
	if err != nil {
		v.fail(fatalf(v.currentPC, "%s", err.Error()))
		return
	}
	if v.stack.depth() == 0 {
		v.pending = suspend{kind: suspendDone, done: Done{Quit: true}}
		return
	}
	caller := v.stack.top()
	caller.pc = f.returnPC
	if f.hasStore {
		if err := v.writeVariable(f.storeVariable, value, false); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	}
}

func (v *VM) checkArgCount(argNum uint16) bool {
	f := v.frame()
	if argNum == 0 || argNum > 8 {
		return false
	}
	return f.argumentMask&(1<<uint(argNum-1)) != 0
}

func asSigned(v uint16) int16 { return int16(v) }

func (v *VM) object(id uint16) *zobject.Object {
	return zobject.Get(v.img, id)
}

func (v *VM) tokenise(textAddr, parseAddr uint32, dict *dictionary.Dictionary, skipUnknown bool) {
	maxChars := v.img.ReadByte(textAddr)
	start := textAddr + 1
	if v.img.Version >= 5 {
		charCount := uint32(v.img.ReadByte(start))
		start++
		runes := []rune(string(v.img.ReadSlice(start, start+charCount)))
		v.tokeniseRunes(runes, start-textAddr, parseAddr, dict, skipUnknown)
		return
	}
	_ = maxChars
	end := start
	for v.img.ReadByte(end) != 0 {
		end++
	}
	runes := []rune(string(v.img.ReadSlice(start, end)))
	v.tokeniseRunes(runes, start-textAddr, parseAddr, dict, skipUnknown)
}

// tokeniseRunes tokenises an already-extracted slice of input
// characters. baseOffset is the distance from the start of the text
// buffer (the byte holding the max-length count) to the first
// character in runes -- 1 for v3/v4's single header byte, 2 for v5's
// length-prefixed buffer -- so each token's parse-buffer start_offset
// is counted from the buffer's true first byte, per §4.E.
func (v *VM) tokeniseRunes(runes []rune, baseOffset uint32, parseAddr uint32, dict *dictionary.Dictionary, skipUnknown bool) {
	tokens := dictionary.Tokenise(string(runes), dict, v.img, v.alphabets)

	maxSlots := int(v.img.ReadByte(parseAddr))
	if len(tokens) > maxSlots {
		tokens = tokens[:maxSlots]
	}
	if !skipUnknown || v.img.ReadByte(parseAddr+1) == 0 {
		v.img.WriteByte(parseAddr+1, uint8(len(tokens)))
	}

	ptr := parseAddr + 2
	for _, tok := range tokens {
		if skipUnknown && tok.DictionaryEntry == 0 {
			ptr += 4
			continue
		}
		v.img.WriteWord(ptr, tok.DictionaryEntry)
		v.img.WriteByte(ptr+2, uint8(len(tok.Text)))
		v.img.WriteByte(ptr+3, uint8(baseOffset+uint32(tok.StartOffset)))
		ptr += 4
	}
}
