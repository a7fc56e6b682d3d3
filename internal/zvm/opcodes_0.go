package zvm

// exec0 dispatches the zero-operand (0OP) opcodes.
func (v *VM) exec0(inst *instruction, _ []uint16) {
	f := v.frame()

	switch inst.number {
	case 0: // rtrue
		v.doReturn(1)
	case 1: // rfalse
		v.doReturn(0)
	case 2: // print
		f.pc = v.printZstring(f.pc)
	case 3: // print_ret
		f.pc = v.printZstring(f.pc)
		v.printText("\n")
		v.doReturn(1)
	case 4: // nop
	case 5: // save (branch form in v1-3, store form in v4; v5+ stories use EXT:0 save)
		v.requestSave()
	case 6: // restore (v1-3 branch form)
		v.requestRestore()
	case 7: // restart
		v.restart()
	case 8: // ret_popped
		val, err := f.pop()
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		v.doReturn(val)
	case 9: // pop (v1-4): discards top of stack; catch (v5+): stores a
		// token identifying the current frame depth
		if v.img.Version < 5 {
			if _, err := f.pop(); err != nil {
				v.fail(fatalf(v.currentPC, "%s", err.Error()))
				return
			}
		} else {
			v.store(uint16(v.stack.depth()))
		}
	case 10: // quit
		v.pending = suspend{kind: suspendDone, done: Done{Quit: true}}
	case 11: // new_line
		v.printText("\n")
	case 12: // show_status (v3): a no-op here since requestLine already
		// delivers a StatusLine result ahead of every NeedLine
	case 13: // verify
		v.branch(v.verify())
	case 15: // piracy -- interpreters are asked to be unconditionally gullible
		v.branch(true)
	default:
		v.fail(fatalf(v.currentPC, "unimplemented 0OP opcode %d", inst.number))
	}
}
