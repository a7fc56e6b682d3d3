package zvm

import (
	"testing"

	"github.com/haldane-ifs/zengine/internal/memory"
)

// newTestVM builds a minimal, internally-consistent story image -- just
// enough header plumbing for New() to succeed -- with no real game
// content, so individual opcode helpers can be exercised directly
// against known memory layouts. Mirrors the zstring package's
// newTestImage helper, which serves the same purpose there.
func newTestVM(t *testing.T, version uint8) *VM {
	t.Helper()
	const size = 0x400
	raw := make([]uint8, size)

	raw[0x00] = version
	raw[0x06], raw[0x07] = 0x02, 0x00 // initial PC: 0x200
	raw[0x08], raw[0x09] = 0x02, 0x10 // dictionary base: 0x210
	raw[0x0a], raw[0x0b] = 0x00, 0x50 // object table base: 0x050
	raw[0x0c], raw[0x0d] = 0x01, 0x00 // global variable base: 0x100
	raw[0x0e], raw[0x0f] = 0x03, 0x00 // static memory base: 0x300 (rest is dynamic)
	raw[0x18], raw[0x19] = 0x01, 0xf0 // abbreviation table base: 0x1f0

	// Dictionary: 0 separators, entry length 6, 0 entries.
	raw[0x210] = 0
	raw[0x211] = 6
	raw[0x212], raw[0x213] = 0, 0

	return New(raw, Options{ScreenCols: 80, ScreenRows: 24})
}

func writeBranchByte1(img *memory.Image, addr uint32, onTrue bool, offset uint8) {
	b := offset & 0b0011_1111
	b |= 0b0100_0000 // single-byte form
	if onTrue {
		b |= 0b1000_0000
	}
	_ = img.WriteByte(addr, b)
}

func TestParseBranchSingleByteForm(t *testing.T) {
	v := newTestVM(t, 5)
	f := v.frame()
	f.pc = 0x200
	writeBranchByte1(v.img, 0x200, true, 10)

	onTrue, offset := v.parseBranch()
	if !onTrue {
		t.Fatalf("expected onTrue branch polarity")
	}
	if offset != 10 {
		t.Fatalf("expected offset 10, got %d", offset)
	}
	if f.pc != 0x201 {
		t.Fatalf("expected pc advanced by 1 byte, got %#x", f.pc)
	}
}

func TestParseBranchTwoByteForm(t *testing.T) {
	v := newTestVM(t, 5)
	f := v.frame()
	f.pc = 0x200

	// Two-byte form, negative offset: polarity false, raw 14-bit value
	// for -5 is 0x3FFB under the sign-extension the Standard specifies.
	neg := int16(-5)
	raw := uint16(neg) & 0x3fff
	b1 := uint8(raw>>8) & 0b0011_1111 // top bit (polarity) clear, bit 6 (form) clear
	b2 := uint8(raw)
	_ = v.img.WriteByte(0x200, b1)
	_ = v.img.WriteByte(0x201, b2)

	onTrue, offset := v.parseBranch()
	if onTrue {
		t.Fatalf("expected onFalse branch polarity")
	}
	if offset != -5 {
		t.Fatalf("expected offset -5, got %d", offset)
	}
	if f.pc != 0x202 {
		t.Fatalf("expected pc advanced by 2 bytes, got %#x", f.pc)
	}
}

func TestApplyBranchJumpsToComputedAddress(t *testing.T) {
	v := newTestVM(t, 5)
	f := v.frame()
	f.pc = 0x300 // irrelevant; applyBranch takes pc explicitly

	v.applyBranch(true, true, 20, 0x300)
	if f.pc != 0x300+20-2 {
		t.Fatalf("expected pc %#x, got %#x", 0x300+20-2, f.pc)
	}
}

func TestApplyBranchNoOpWhenPolarityMismatches(t *testing.T) {
	v := newTestVM(t, 5)
	f := v.frame()
	f.pc = 0x300

	v.applyBranch(false, true, 20, 0x300)
	if f.pc != 0x300 {
		t.Fatalf("expected no branch taken, pc stayed %#x, got %#x", 0x300, f.pc)
	}
}

// TestSaveConventionV3UsesBranch verifies §4.F/Standard §15: a v1-3
// story's save/restore opcodes report outcome via the trailing branch
// bytes, not a store byte -- the bug this exercise found and fixed.
func TestSaveConventionV3UsesBranch(t *testing.T) {
	v := newTestVM(t, 3)
	f := v.frame()
	f.pc = 0x200
	writeBranchByte1(v.img, 0x200, true, 8)

	v.requestSave()
	if !v.pending.useBranch {
		t.Fatalf("expected v1-3 save to use the branch convention")
	}
	if f.pc != 0x201 {
		t.Fatalf("expected branch byte consumed, pc at %#x", f.pc)
	}

	v.reportSaveOutcome(v.pending, true)
	if f.pc != 0x201+8-2 {
		t.Fatalf("expected successful save to take the branch, pc at %#x want %#x", f.pc, 0x201+8-2)
	}
}

// TestSaveConventionV5UsesStore verifies v4+ save reports outcome via
// a trailing store-variable byte instead.
func TestSaveConventionV5UsesStore(t *testing.T) {
	v := newTestVM(t, 5)
	f := v.frame()
	f.pc = 0x200
	_ = v.img.WriteByte(0x200, 16) // store into global 16

	v.requestSave()
	if v.pending.useBranch {
		t.Fatalf("expected v4+ save to use the store convention")
	}

	v.reportSaveOutcome(v.pending, true)
	got, err := v.readVariable(16, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected stored result 1, got %d", got)
	}
}

// TestThrowUnwindsToMatchingCatchDepth exercises the non-local jump
// this session implemented for 2OP:28 (throw was previously a
// permanent "unimplemented opcode" stub).
func TestThrowUnwindsToMatchingCatchDepth(t *testing.T) {
	v := newTestVM(t, 5)
	// Frame 0 is already on the stack from New(); push two more so
	// depth is 3, with the store target on frame 1 (the catch caller).
	v.stack.push(frame{pc: 0x210, hasStore: true, storeVariable: 16, returnPC: 0x205})
	v.stack.push(frame{pc: 0x220})

	if v.stack.depth() != 3 {
		t.Fatalf("expected depth 3, got %d", v.stack.depth())
	}

	v.doThrow(42, 2) // catch token 2 == the depth recorded after pushing frame at 0x210
	if v.stack.depth() != 1 {
		t.Fatalf("expected depth 1 after throw, got %d", v.stack.depth())
	}
	if v.frame().pc != 0x205 {
		t.Fatalf("expected pc restored to 0x205, got %#x", v.frame().pc)
	}
	got, err := v.readVariable(16, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected thrown value 42 stored, got %d", got)
	}
}

func TestThrowRejectsInvalidToken(t *testing.T) {
	v := newTestVM(t, 5)
	v.doThrow(1, 99)
	if v.pending.kind != suspendDone || v.pending.done.Err == nil {
		t.Fatalf("expected an invalid catch token to be fatal")
	}
}

// TestTokeniseV5StartOffsetAccountsForLengthByte verifies the fix for
// an off-by-one: v5's text buffer has a 2-byte header (max length +
// existing length), so counted from byte 0 of the buffer a token's
// start_offset begins at 2, not at 1 as with v3/v4's 1-byte header.
func TestTokeniseV5StartOffsetAccountsForLengthByte(t *testing.T) {
	v := newTestVM(t, 5)

	textAddr := uint32(0x220)
	parseAddr := uint32(0x240)
	_ = v.img.WriteByte(textAddr, 20)   // max length
	_ = v.img.WriteByte(textAddr+1, 2)  // existing length
	_ = v.img.WriteByte(textAddr+2, 'h')
	_ = v.img.WriteByte(textAddr+3, 'i')

	_ = v.img.WriteByte(parseAddr, 4) // max parse slots

	v.tokenise(textAddr, parseAddr, v.dictionary, false)

	wordCount := v.img.ReadByte(parseAddr + 1)
	if wordCount != 1 {
		t.Fatalf("expected 1 token, got %d", wordCount)
	}
	startOffset := v.img.ReadByte(parseAddr + 2 + 3)
	if startOffset != 2 {
		t.Fatalf("expected start_offset 2 (past the 2-byte v5 header), got %d", startOffset)
	}
}

// TestTimerInterruptAbortReturnsEmptyRead verifies a timer routine
// that returns nonzero aborts the pending read, per the Standard.
func TestTimerInterruptAbortReturnsEmptyRead(t *testing.T) {
	v := newTestVM(t, 5)
	textAddr := uint32(0x220)
	_ = v.img.WriteByte(textAddr, 20)
	_ = v.img.WriteByte(textAddr+1, 0)

	v.requestLine(textAddr, 0, 50, 0x80, true)
	if v.pending.kind != suspendLine {
		t.Fatalf("expected a pending line request")
	}

	v.fireTimerInterrupt(v.pending)
	if !v.frame().isTimerInterrupt {
		t.Fatalf("expected a synthetic timer-interrupt frame on top")
	}

	v.doReturn(1) // routine returns true: abort the read
	if v.interrupted != nil {
		t.Fatalf("expected interrupted suspend to be cleared")
	}
	existingLen := v.img.ReadByte(textAddr + 1)
	if existingLen != 0 {
		t.Fatalf("expected an aborted read to leave an empty buffer, got length %d", existingLen)
	}
}

// TestTimerInterruptContinueResuspendsRead verifies a timer routine
// returning zero leaves the read pending rather than completing it.
func TestTimerInterruptContinueResuspendsRead(t *testing.T) {
	v := newTestVM(t, 5)
	textAddr := uint32(0x220)
	_ = v.img.WriteByte(textAddr, 20)
	_ = v.img.WriteByte(textAddr+1, 0)

	v.requestLine(textAddr, 0, 50, 0x80, true)
	v.fireTimerInterrupt(v.pending)
	v.doReturn(0) // routine returns false: keep waiting

	if v.pending.kind != suspendLine {
		t.Fatalf("expected the line request to still be pending, got kind %d", v.pending.kind)
	}
	if v.pendingDelivered {
		t.Fatalf("expected pendingDelivered to be reset so Step re-delivers the request")
	}
}

func TestVerifyChecksumComparesRealValue(t *testing.T) {
	v := newTestVM(t, 5)
	if v.verify() {
		t.Fatalf("expected verify to fail against a zeroed, unset checksum mismatch")
	}
	v.img.FileChecksum = v.img.Checksum()
	if !v.verify() {
		t.Fatalf("expected verify to succeed once FileChecksum matches the real checksum")
	}
}
