package zvm

import (
	"strconv"
	"time"

	"github.com/haldane-ifs/zengine/internal/dictionary"
	"github.com/haldane-ifs/zengine/internal/zstring"
	"github.com/haldane-ifs/zengine/internal/ztable"
)

// execVar dispatches the variable-operand-count (VAR) opcodes.
func (v *VM) execVar(inst *instruction, values []uint16) {
	switch inst.number {
	case 0: // call
		v.doCall(values[0], values[1:], true)
	case 1: // storew
		if err := v.img.WriteWord(uint32(values[0])+2*uint32(values[1]), values[2]); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 2: // storeb
		if err := v.img.WriteByte(uint32(values[0])+uint32(values[1]), uint8(values[2])); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 3: // put_prop
		if values[0] == 0 {
			return
		}
		prop := v.object(values[0])
		if err := prop.PutProperty(uint8(values[1]), values[2]); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 4: // sread / read
		var timeTenths, routine uint16
		if len(values) > 2 {
			timeTenths = values[2]
		}
		if len(values) > 3 {
			routine = values[3]
		}
		hasStore := v.img.Version >= 5
		v.requestLine(uint32(values[0]), uint32(values[1]), timeTenths, routine, hasStore)
	case 5: // print_char
		chr := uint8(values[0])
		if chr != 0 {
			v.printText(string(rune(chr)))
		}
	case 6: // print_num
		v.printText(strconv.Itoa(int(int16(values[0]))))
	case 7: // random
		n := int16(values[0])
		result := v.rand.Draw(n, func() int64 { return time.Now().UnixNano() })
		v.store(result)
	case 8: // push
		v.frame().push(values[0])
	case 9: // pull
		val, err := v.frame().pop()
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		if err := v.writeVariable(uint8(values[0]), val, true); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 10: // split_window
		// the upper window is not rendered as a product surface here
	case 11: // set_window
		// lower/upper window selection has no effect without a screen model
	case 12: // call_vs2
		v.doCall(values[0], values[1:], true)
	case 13: // erase_window
		// no screen buffer to erase
	case 14: // erase_line
		// no screen buffer to erase
	case 15: // set_cursor
		// cursor positioning has no effect without a screen model
	case 16: // get_cursor
		if err := v.img.WriteWord(uint32(values[0]), 1); err == nil {
			v.img.WriteWord(uint32(values[0])+2, 1)
		}
	case 17: // set_text_style
		// style bits have no effect without a screen model
	case 18: // buffer_mode
		// output is never paginated by this engine
	case 19: // output_stream
		v.outputStream(int16(values[0]), values)
	case 20: // input_stream
		// only keyboard input is supported; requesting another is a no-op
	case 21: // sound_effect
		// no audio device
	case 22: // read_char: operands are (device 1, time, routine)
		var timeTenths, routine uint16
		if len(values) > 1 {
			timeTenths = values[1]
		}
		if len(values) > 2 {
			routine = values[2]
		}
		v.requestChar(timeTenths, routine)
	case 23: // scan_table
		form := uint16(0x82)
		if len(values) > 3 {
			form = values[3]
		}
		addr := ztable.ScanTable(v.img, values[0], uint32(values[1]), values[2], form)
		v.store(uint16(addr))
		v.branch(addr != 0)
	case 24: // not
		v.store(^values[0])
	case 25: // call_vn
		v.doCall(values[0], values[1:], false)
	case 26: // call_vn2
		v.doCall(values[0], values[1:], false)
	case 28: // encode_text
		length := uint32(values[1])
		from := uint32(values[2])
		start := uint32(values[0]) + from
		runes := []rune(string(v.img.ReadSlice(start, start+length)))
		encoded := zstring.Encode(runes, v.img, v.alphabets)
		for i, b := range encoded {
			v.img.WriteByte(uint32(values[3])+uint32(i), b)
		}
	case 27: // tokenise
		dict := v.dictionary
		skipUnknown := false
		if len(values) > 2 && values[2] != 0 {
			dict = dictionary.Parse(v.img, uint32(values[2]))
		}
		if len(values) > 3 {
			skipUnknown = values[3] != 0
		}
		v.tokenise(uint32(values[0]), uint32(values[1]), dict, skipUnknown)
	case 29: // copy_table
		ztable.CopyTable(v.img, uint32(values[0]), uint32(values[1]), int16(values[2]))
	case 30: // print_table
		height, skip := uint16(1), uint16(0)
		if len(values) > 2 {
			height = values[2]
		}
		if len(values) > 3 {
			skip = values[3]
		}
		v.printText(ztable.PrintTable(v.img, uint32(values[0]), values[1], height, skip))
	case 31: // check_arg_count
		v.branch(v.checkArgCount(values[0]))
	default:
		v.fail(fatalf(v.currentPC, "unimplemented VAR opcode %d", inst.number))
	}
}

// outputStream implements the eight nonzero operand values of output_stream,
// per §4.H: 1/2/4 toggle the screen, transcript and command-script stream
// bits; 3 opens a nested memory redirect and -3 closes the innermost one.
func (v *VM) outputStream(stream int16, values []uint16) {
	switch stream {
	case 1:
		v.activeStreams |= 0b0001
	case -1:
		v.activeStreams &^= 0b0001
	case 2:
		v.activeStreams |= 0b0010
	case -2:
		v.activeStreams &^= 0b0010
	case 3:
		v.openMemoryStream(uint32(values[1]))
	case -3:
		if err := v.closeMemoryStream(); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 4:
		v.activeStreams |= 0b1000
	case -4:
		v.activeStreams &^= 0b1000
	}
}
