// Package zobject implements the Z-machine object database: the object
// tree (parent/sibling/child), the 32 or 48 attribute bits, and the
// property tables with their default-value fallback.
package zobject

import (
	"github.com/haldane-ifs/zengine/internal/memory"
	"github.com/haldane-ifs/zengine/internal/zstring"
)

// Object is a view onto one object table entry. It is read fresh from
// memory on every access rather than cached, since sibling/parent/child
// links mutate frequently and a cached copy would go stale.
type Object struct {
	img             *memory.Image
	baseAddress     uint32
	Id              uint16
	Parent          uint16
	Sibling         uint16
	Child           uint16
	PropertyPointer uint16
}

func entrySize(version uint8) uint32 {
	if version >= 4 {
		return 14
	}
	return 9
}

func defaultsCount(version uint8) uint16 {
	if version >= 4 {
		return 63
	}
	return 31
}

func objectTableOrigin(img *memory.Image) uint32 {
	return uint32(img.ObjectTableBase) + uint32(defaultsCount(img.Version))*2
}

// Get returns the object with the given 1-based id. Object 0 is the
// sentinel "no object"; callers must not call Get(0) -- every opcode
// handler checks for 0 up front per §4.C.
func Get(img *memory.Image, id uint16) *Object {
	base := objectTableOrigin(img) + uint32(id-1)*entrySize(img.Version)

	o := &Object{img: img, baseAddress: base, Id: id}
	if img.Version >= 4 {
		o.Parent = img.ReadWord(base + 6)
		o.Sibling = img.ReadWord(base + 8)
		o.Child = img.ReadWord(base + 10)
		o.PropertyPointer = img.ReadWord(base + 12)
	} else {
		o.Parent = uint16(img.ReadByte(base + 4))
		o.Sibling = uint16(img.ReadByte(base + 5))
		o.Child = uint16(img.ReadByte(base + 6))
		o.PropertyPointer = img.ReadWord(base + 7)
	}
	return o
}

// ShortName decodes the object's short-name Z-string, the text label
// used by PRINT_OBJ and by the status line.
func (o *Object) ShortName(alphabets *zstring.Alphabets) string {
	nameLengthWords := o.img.ReadByte(uint32(o.PropertyPointer))
	if nameLengthWords == 0 {
		return ""
	}
	name, _, err := zstring.Decode(o.img, alphabets, uint32(o.PropertyPointer)+1)
	if err != nil {
		return ""
	}
	return name
}

func attributeByteCount(version uint8) int {
	if version >= 4 {
		return 6
	}
	return 4
}

// TestAttribute reports whether the given attribute bit is set. Bits
// are numbered 0 (highest) upward across the 32 (v3) or 48 (v4+)
// attribute bits, most-significant-bit first.
func (o *Object) TestAttribute(attribute uint16) bool {
	byteIx := attribute / 8
	bit := 7 - (attribute % 8)
	if int(byteIx) >= attributeByteCount(o.img.Version) {
		return false
	}
	b := o.img.ReadByte(o.baseAddress + uint32(byteIx))
	return (b>>bit)&1 == 1
}

func (o *Object) setAttributeBit(attribute uint16, value bool) {
	byteIx := attribute / 8
	if int(byteIx) >= attributeByteCount(o.img.Version) {
		return
	}
	addr := o.baseAddress + uint32(byteIx)
	b := o.img.ReadByte(addr)
	bit := uint8(7 - (attribute % 8))
	if value {
		b |= 1 << bit
	} else {
		b &^= 1 << bit
	}
	_ = o.img.WriteByte(addr, b)
}

func (o *Object) SetAttribute(attribute uint16)   { o.setAttributeBit(attribute, true) }
func (o *Object) ClearAttribute(attribute uint16) { o.setAttributeBit(attribute, false) }

func (o *Object) setParent(id uint16) {
	if o.img.Version >= 4 {
		_ = o.img.WriteWord(o.baseAddress+6, id)
	} else {
		_ = o.img.WriteByte(o.baseAddress+4, uint8(id))
	}
	o.Parent = id
}

func (o *Object) setSibling(id uint16) {
	if o.img.Version >= 4 {
		_ = o.img.WriteWord(o.baseAddress+8, id)
	} else {
		_ = o.img.WriteByte(o.baseAddress+5, uint8(id))
	}
	o.Sibling = id
}

func (o *Object) setChild(id uint16) {
	if o.img.Version >= 4 {
		_ = o.img.WriteWord(o.baseAddress+10, id)
	} else {
		_ = o.img.WriteByte(o.baseAddress+6, uint8(id))
	}
	o.Child = id
}

// Remove detaches an object from its parent's sibling chain, leaving
// the chain well-formed for the remaining children. A no-op on the
// sentinel object or an already-parentless object, per §7.2.
func Remove(img *memory.Image, id uint16) {
	if id == 0 {
		return
	}
	obj := Get(img, id)
	if obj.Parent == 0 {
		return
	}

	parent := Get(img, obj.Parent)
	if parent.Child == obj.Id {
		parent.setChild(obj.Sibling)
	} else {
		cur := Get(img, parent.Child)
		for cur.Id != 0 {
			if cur.Sibling == obj.Id {
				cur.setSibling(obj.Sibling)
				break
			}
			if cur.Sibling == 0 {
				break
			}
			cur = Get(img, cur.Sibling)
		}
	}

	obj.setParent(0)
	obj.setSibling(0)
}

// Insert makes obj the first child of dest, unlinking it from any
// prior parent first. A no-op when obj is the sentinel object.
func Insert(img *memory.Image, id uint16, destID uint16) {
	if id == 0 {
		return
	}
	Remove(img, id)

	obj := Get(img, id)
	dest := Get(img, destID)

	obj.setSibling(dest.Child)
	obj.setParent(destID)
	dest.setChild(id)
}
