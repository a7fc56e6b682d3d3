// Package zvm is the Z-machine CPU: instruction decode, the call-frame
// stack, the full opcode dispatch table, and the Step-based façade a
// host drives to run a story file.
package zvm

import (
	"fmt"
	"time"

	"github.com/haldane-ifs/zengine/internal/dictionary"
	"github.com/haldane-ifs/zengine/internal/memory"
	"github.com/haldane-ifs/zengine/internal/quetzal"
	"github.com/haldane-ifs/zengine/internal/zrandom"
	"github.com/haldane-ifs/zengine/internal/zstring"
)

// Options configures a VM at load time, populating the interpreter
// capability header bytes and host behaviour the engine itself has no
// way to infer.
type Options struct {
	RandSeed       *int64
	StatusCapable  bool
	UndoSupported  bool
	ScreenCols     uint8
	ScreenRows     uint8
	DefaultFG      uint8
	DefaultBG      uint8
}

// Fatal is a halting VM error: a malformed program or an engine-level
// contract violation (stack underflow, illegal opcode, write into
// read-only memory, division by zero). It always carries the PC of
// the offending instruction so a host can report it usefully.
type Fatal struct {
	PC      uint32
	Message string
}

func (f *Fatal) Error() string {
	return fmt.Sprintf("fatal error at PC %06x: %s", f.PC, f.Message)
}

// VM is one running Z-machine instance. Nothing here is global; a
// process may host many VMs concurrently.
type VM struct {
	img        *memory.Image
	alphabets  *zstring.Alphabets
	dictionary *dictionary.Dictionary
	rand       *zrandom.Source
	options    Options

	stack callStack

	original []uint8 // pristine load image, for Quetzal's CMem diff
	undo     *quetzal.File

	outputBuf     []outputEvent
	activeStreams uint8 // bit 0 = screen, 1 = transcript, 2 = memory, 3 = command script
	memoryStream  []memoryRedirect

	pending          suspend // set when execution must yield to the host
	pendingDelivered bool    // true once the suspend's own result has been handed out
	currentPC        uint32  // PC of the instruction currently executing, for Fatal reporting
	quit             bool

	interrupted *suspend // the read/read_char suspend a timer routine was called for

	storyBytes []uint8 // original load bytes, kept for restart
}

type outputEvent struct {
	text       string
	streamMask uint8
}

type memoryRedirect struct {
	addr uint32
	buf  []uint8
}

// New loads a story image and returns a ready-to-run VM. The PC starts
// at the story's initial instruction (or, for a v6 main routine, just
// past its locals count byte).
func New(storyBytes []uint8, opts Options) *VM {
	img := memory.Load(append([]uint8(nil), storyBytes...))
	original := append([]uint8(nil), storyBytes...)

	img.StampInterpreterBytes(opts.ScreenCols, opts.ScreenRows, opts.DefaultFG, opts.DefaultBG, opts.StatusCapable, opts.UndoSupported)

	seed := time.Now().UnixNano()
	if opts.RandSeed != nil {
		seed = *opts.RandSeed
	}

	v := &VM{
		img:           img,
		alphabets:     zstring.Load(img),
		rand:          zrandom.New(seed),
		options:       opts,
		original:      original,
		storyBytes:    append([]uint8(nil), storyBytes...),
		activeStreams: 0b0001,
	}
	v.dictionary = dictionary.Parse(img, uint32(img.DictionaryBase))

	initialPC := uint32(img.InitialPC)
	if img.Version == 6 {
		packed := img.PackedAddress(img.InitialPC, false)
		locals := img.ReadByte(packed)
		v.stack.push(frame{pc: packed + 1, locals: make([]uint16, locals)})
	} else {
		v.stack.push(frame{pc: initialPC})
	}

	return v
}

// readVariable reads the unified variable space (§3): 0 is the active
// frame's data stack, 1-15 are locals, 16-255 are globals. indirect
// distinguishes the seven opcodes (inc, dec, inc_chk, dec_chk, load,
// store, pull) that access variable 0 in place rather than popping it.
func (v *VM) readVariable(variable uint8, indirect bool) (uint16, error) {
	f := v.stack.top()
	switch {
	case variable == 0:
		if indirect {
			return f.peek()
		}
		return f.pop()
	case variable < 16:
		ix := int(variable) - 1
		if ix >= len(f.locals) {
			return 0, fmt.Errorf("read of undeclared local variable %d", variable)
		}
		return f.locals[ix], nil
	default:
		addr := uint32(v.img.GlobalVariableBase) + 2*(uint32(variable)-16)
		return v.img.ReadWord(addr), nil
	}
}

func (v *VM) writeVariable(variable uint8, value uint16, indirect bool) error {
	f := v.stack.top()
	switch {
	case variable == 0:
		if indirect {
			if _, err := f.pop(); err != nil {
				return err
			}
		}
		f.push(value)
		return nil
	case variable < 16:
		ix := int(variable) - 1
		if ix >= len(f.locals) {
			return fmt.Errorf("write to undeclared local variable %d", variable)
		}
		f.locals[ix] = value
		return nil
	default:
		addr := uint32(v.img.GlobalVariableBase) + 2*(uint32(variable)-16)
		return v.img.WriteWord(addr, value)
	}
}

func (v *VM) emit(text string) {
	if text == "" {
		return
	}
	if v.activeStreams&0b0100 != 0 && len(v.memoryStream) > 0 {
		v.writeToMemoryStream(text)
		return
	}
	if v.activeStreams&0b0001 == 0 {
		return
	}
	v.outputBuf = append(v.outputBuf, outputEvent{text: text, streamMask: v.activeStreams})
}

// writeToMemoryStream appends to output stream 3's innermost redirect,
// per §4.H/§4.J: while stream 3 is active, screen output is suppressed
// and text accumulates in the story-supplied table instead.
func (v *VM) writeToMemoryStream(text string) {
	top := &v.memoryStream[len(v.memoryStream)-1]
	top.buf = append(top.buf, []uint8(text)...)
}

// openMemoryStream starts redirecting output into the table at addr.
func (v *VM) openMemoryStream(addr uint32) {
	v.memoryStream = append(v.memoryStream, memoryRedirect{addr: addr})
	v.activeStreams |= 0b0100
}

// closeMemoryStream pops the innermost redirect, writing its length
// and bytes into the table the story gave it.
func (v *VM) closeMemoryStream() error {
	if len(v.memoryStream) == 0 {
		return nil
	}
	top := v.memoryStream[len(v.memoryStream)-1]
	v.memoryStream = v.memoryStream[:len(v.memoryStream)-1]
	if len(v.memoryStream) == 0 {
		v.activeStreams &^= 0b0100
	}
	if err := v.img.WriteWord(top.addr, uint16(len(top.buf))); err != nil {
		return err
	}
	for i, b := range top.buf {
		if err := v.img.WriteByte(top.addr+2+uint32(i), b); err != nil {
			return err
		}
	}
	return nil
}
