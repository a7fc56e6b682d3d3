package zvm

// exec2 dispatches the two-operand (2OP) opcodes. Most take exactly two
// operands, but je may arrive with up to four when encoded in variable
// form.
func (v *VM) exec2(inst *instruction, values []uint16) {
	a := values[0]
	var b uint16
	if len(values) > 1 {
		b = values[1]
	}

	switch inst.number {
	case 1: // je
		match := false
		for _, other := range values[1:] {
			if other == a {
				match = true
				break
			}
		}
		v.branch(match)
	case 2: // jl
		v.branch(int16(a) < int16(b))
	case 3: // jg
		v.branch(int16(a) > int16(b))
	case 4: // dec_chk
		variable := uint8(a)
		old, err := v.readVariable(variable, true)
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		newValue := int16(old) - 1
		if err := v.writeVariable(variable, uint16(newValue), true); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		v.branch(newValue < int16(b))
	case 5: // inc_chk
		variable := uint8(a)
		old, err := v.readVariable(variable, true)
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		newValue := int16(old) + 1
		if err := v.writeVariable(variable, uint16(newValue), true); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		v.branch(newValue > int16(b))
	case 6: // jin
		var parent uint16
		if a != 0 {
			parent = v.object(a).Parent
		}
		v.branch(parent == b)
	case 7: // test
		v.branch(a&b == b)
	case 8: // or
		v.store(a | b)
	case 9: // and
		v.store(a & b)
	case 10: // test_attr
		if a == 0 {
			v.branch(false)
			return
		}
		v.branch(v.object(a).TestAttribute(b))
	case 11: // set_attr
		if a != 0 {
			v.object(a).SetAttribute(b)
		}
	case 12: // clear_attr
		if a != 0 {
			v.object(a).ClearAttribute(b)
		}
	case 13: // store
		if err := v.writeVariable(uint8(a), b, true); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 14: // insert_obj
		v.insertObject(a, b)
	case 15: // loadw
		v.store(v.img.ReadWord(uint32(a) + 2*uint32(b)))
	case 16: // loadb
		v.store(uint16(v.img.ReadByte(uint32(a) + uint32(b))))
	case 17: // get_prop
		if a == 0 {
			v.store(0)
			return
		}
		value, err := v.object(a).GetProperty(uint8(b))
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		v.store(value)
	case 18: // get_prop_addr
		var addr uint32
		if a != 0 {
			addr = v.object(a).PropertyAddress(uint8(b))
		}
		v.store(uint16(addr))
	case 19: // get_next_prop
		var next uint8
		if a != 0 {
			next = v.object(a).NextProperty(uint8(b))
		}
		v.store(uint16(next))
	case 20: // add
		v.store(uint16(int16(a) + int16(b)))
	case 21: // sub
		v.store(uint16(int16(a) - int16(b)))
	case 22: // mul
		v.store(uint16(int16(a) * int16(b)))
	case 23: // div
		if b == 0 {
			v.fail(fatalf(v.currentPC, "division by zero"))
			return
		}
		v.store(uint16(int16(a) / int16(b)))
	case 24: // mod
		if b == 0 {
			v.fail(fatalf(v.currentPC, "division by zero"))
			return
		}
		v.store(uint16(int16(a) % int16(b)))
	case 25: // call_2s
		v.doCall(a, values[1:2], true)
	case 26: // call_2n
		v.doCall(a, values[1:2], false)
	case 27: // set_colour
		// colour is a no-op in a text-only host
	case 28: // throw
		v.doThrow(a, b)
	default:
		v.fail(fatalf(v.currentPC, "unimplemented 2OP opcode %d", inst.number))
	}
}
