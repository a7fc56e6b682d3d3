package zvm

import "github.com/haldane-ifs/zengine/internal/zobject"

// exec1 dispatches the one-operand (1OP) opcodes.
func (v *VM) exec1(inst *instruction, values []uint16) {
	f := v.frame()
	a := values[0]

	switch inst.number {
	case 0: // jz
		v.branch(a == 0)
	case 1: // get_sibling
		var sibling uint16
		if a != 0 {
			sibling = v.object(a).Sibling
		}
		v.store(sibling)
		v.branch(sibling != 0)
	case 2: // get_child
		var child uint16
		if a != 0 {
			child = v.object(a).Child
		}
		v.store(child)
		v.branch(child != 0)
	case 3: // get_parent
		var parent uint16
		if a != 0 {
			parent = v.object(a).Parent
		}
		v.store(parent)
	case 4: // get_prop_len
		v.store(zobject.PropertyLengthAt(v.img, uint32(a)))
	case 5: // inc
		variable := uint8(a)
		old, err := v.readVariable(variable, true)
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		if err := v.writeVariable(variable, old+1, true); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 6: // dec
		variable := uint8(a)
		old, err := v.readVariable(variable, true)
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		if err := v.writeVariable(variable, old-1, true); err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
		}
	case 7: // print_addr
		v.printZstring(uint32(a))
	case 8: // call_1s
		v.doCall(a, nil, true)
	case 9: // remove_obj
		v.removeObject(a)
	case 10: // print_obj
		if a != 0 {
			v.printText(v.object(a).ShortName(v.alphabets))
		}
	case 11: // ret
		v.doReturn(a)
	case 12: // jump
		offset := int16(a)
		f.pc = uint32(int64(f.pc) + int64(offset) - 2)
	case 13: // print_paddr
		v.printZstring(v.img.PackedAddress(a, true))
	case 14: // load
		val, err := v.readVariable(uint8(a), true)
		if err != nil {
			v.fail(fatalf(v.currentPC, "%s", err.Error()))
			return
		}
		v.store(val)
	case 15: // not (v1-4) / call_1n (v5+)
		if v.img.Version < 5 {
			v.store(^a)
		} else {
			v.doCall(a, nil, false)
		}
	default:
		v.fail(fatalf(v.currentPC, "unimplemented 1OP opcode %d", inst.number))
	}
}
