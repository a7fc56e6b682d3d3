package zobject

import (
	"fmt"

	"github.com/haldane-ifs/zengine/internal/memory"
)

// Property is a single decoded entry from an object's property table.
type Property struct {
	Id          uint8
	Length      uint8
	DataAddress uint32
	HeaderLen   uint8
}

func (o *Object) propertyTableStart() uint32 {
	nameLengthWords := uint32(o.img.ReadByte(uint32(o.PropertyPointer)))
	return uint32(o.PropertyPointer) + 1 + nameLengthWords*2
}

func (o *Object) propertyAt(addr uint32) Property {
	sizeByte := o.img.ReadByte(addr)
	version := o.img.Version

	if version <= 3 {
		length := (sizeByte >> 5) + 1
		id := sizeByte & 0b1_1111
		return Property{Id: id, Length: length, DataAddress: addr + 1, HeaderLen: 1}
	}

	if sizeByte&0b1000_0000 != 0 {
		length := o.img.ReadByte(addr+1) & 0b0011_1111
		if length == 0 {
			length = 64
		}
		id := sizeByte & 0b0011_1111
		return Property{Id: id, Length: length, DataAddress: addr + 2, HeaderLen: 2}
	}

	length := uint8(1)
	if (sizeByte>>6)&1 == 1 {
		length = 2
	}
	id := sizeByte & 0b0011_1111
	return Property{Id: id, Length: length, DataAddress: addr + 1, HeaderLen: 1}
}

// find walks the descending property list looking for id, returning
// the zero Property (Id 0) if absent.
func (o *Object) find(id uint8) Property {
	ptr := o.propertyTableStart()
	for {
		sizeByte := o.img.ReadByte(ptr)
		if sizeByte == 0 {
			return Property{}
		}
		prop := o.propertyAt(ptr)
		if prop.Id == id {
			return prop
		}
		ptr = prop.DataAddress + uint32(prop.Length)
	}
}

// GetProperty returns the stored property value if present, zero
// extending a 1-byte property and reading a 2-byte property as a word;
// otherwise it returns the table default. Sizes above 2 bytes are an
// invalid operand to get_prop and are reported as an error by the
// caller, which has the PC needed for a proper fatal report.
func (o *Object) GetProperty(id uint8) (value uint16, err error) {
	prop := o.find(id)
	if prop.Id == 0 {
		return o.defaultPropertyValue(id), nil
	}

	switch prop.Length {
	case 1:
		return uint16(o.img.ReadByte(prop.DataAddress)), nil
	case 2:
		return o.img.ReadWord(prop.DataAddress), nil
	default:
		return 0, fmt.Errorf("get_prop on property %d of object %d has length %d > 2", id, o.Id, prop.Length)
	}
}

func (o *Object) defaultPropertyValue(id uint8) uint16 {
	if id == 0 || uint16(id) > defaultsCount(o.img.Version) {
		return 0
	}
	addr := uint32(o.img.ObjectTableBase) + uint32(id-1)*2
	return o.img.ReadWord(addr)
}

// PutProperty requires the property to already exist on the object
// with a size of 1 or 2 bytes, per §4.C.
func (o *Object) PutProperty(id uint8, value uint16) error {
	prop := o.find(id)
	if prop.Id == 0 {
		return fmt.Errorf("put_prop on object %d: property %d does not exist", o.Id, id)
	}

	switch prop.Length {
	case 1:
		return o.img.WriteByte(prop.DataAddress, uint8(value))
	case 2:
		return o.img.WriteWord(prop.DataAddress, value)
	default:
		return fmt.Errorf("put_prop on property %d of object %d has length %d, must be 1 or 2", id, o.Id, prop.Length)
	}
}

// PropertyAddress returns the byte address of property id's data, or
// 0 if the object has no such property -- the contract get_prop_addr
// and get_prop_len both rely on.
func (o *Object) PropertyAddress(id uint8) uint32 {
	prop := o.find(id)
	if prop.Id == 0 {
		return 0
	}
	return prop.DataAddress
}

// PropertyLength returns the length of the property whose data starts
// at addr. addr == 0 is a defined no-op returning 0, per §7.2.
func (o *Object) PropertyLength(addr uint32) uint16 {
	return PropertyLengthAt(o.img, addr)
}

// PropertyLengthAt is the object-free form get_prop_len needs: the
// size byte immediately preceding a property's data encodes its
// length the same way regardless of which object it belongs to.
func PropertyLengthAt(img *memory.Image, addr uint32) uint16 {
	if addr == 0 {
		return 0
	}
	prevByte := img.ReadByte(addr - 1)
	if img.Version <= 3 {
		return uint16(prevByte>>5) + 1
	}
	if prevByte&0b1000_0000 != 0 {
		length := prevByte & 0b0011_1111
		if length == 0 {
			return 64
		}
		return uint16(length)
	}
	return uint16((prevByte>>6)&1) + 1
}

// NextProperty implements get_next_prop: id 0 asks for the first
// property on the object, otherwise the next one after id in
// descending order. Returns 0 when there is no next property.
func (o *Object) NextProperty(id uint8) uint8 {
	if id == 0 {
		ptr := o.propertyTableStart()
		if o.img.ReadByte(ptr) == 0 {
			return 0
		}
		return o.propertyAt(ptr).Id
	}

	prop := o.find(id)
	if prop.Id == 0 {
		return 0
	}
	nextPtr := prop.DataAddress + uint32(prop.Length)
	if o.img.ReadByte(nextPtr) == 0 {
		return 0
	}
	return o.propertyAt(nextPtr).Id
}
