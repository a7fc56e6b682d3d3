package zvm

// execExt dispatches the v5+ extended (EXT) opcodes.
func (v *VM) execExt(inst *instruction, values []uint16) {
	switch inst.number {
	case 0: // save
		v.requestSave()
	case 1: // restore
		v.requestRestore()
	case 2: // log_shift
		num := values[0]
		places := int16(values[1])
		var result uint16
		if places >= 0 {
			result = num << uint16(places)
		} else {
			result = num >> uint16(-places)
		}
		v.store(result)
	case 3: // art_shift
		num := int16(values[0])
		places := int16(values[1])
		var result int16
		if places >= 0 {
			result = num << uint16(places)
		} else {
			result = num >> uint16(-places)
		}
		v.store(uint16(result))
	case 4: // set_font
		v.store(0) // no alternate fonts are available
	case 9: // save_undo
		v.store(v.saveUndo())
	case 10: // restore_undo
		v.store(v.restoreUndo())
	case 11: // print_unicode
		v.printText(string(rune(values[0])))
	case 12: // check_unicode
		result := uint16(0)
		if values[0] != 0 {
			result = 0b11
		}
		v.store(result)
	case 13: // set_true_colour
		// colour is a no-op in a text-only host
	default:
		v.fail(fatalf(v.currentPC, "unimplemented EXT opcode %d", inst.number))
	}
}
