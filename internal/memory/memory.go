// Package memory implements the Z-machine's byte-addressable memory image:
// the 64 byte header, the dynamic/static/high region split and the
// version-specific packed address scaling.
package memory

import "encoding/binary"

// Image is the story file loaded into memory, plus the header fields
// pulled out of it for convenient access. All addresses are big-endian,
// matching the Z-machine Standard.
type Image struct {
	bytes []uint8

	Version                uint8
	Flags1                 uint8
	ReleaseNumber          uint16
	HighMemoryBase         uint16
	InitialPC              uint16
	DictionaryBase         uint16
	ObjectTableBase        uint16
	GlobalVariableBase     uint16
	StaticMemoryBase       uint16
	SerialNumber           [6]uint8
	AbbreviationTableBase  uint16
	FileChecksum           uint16
	RoutinesOffset         uint16 // v6+ only, unused below v6
	StringOffset           uint16 // v6+ only, unused below v6
	TerminatingCharTableBase uint16
	AlphabetTableBase      uint16 // v5+ custom alphabets, 0 = default
	ExtensionTableBase     uint16
}

// IllegalWrite is returned when a store targets static or high memory.
type IllegalWrite struct {
	Address uint32
}

func (e *IllegalWrite) Error() string {
	return "illegal write to read-only memory"
}

// Load parses the header out of a raw story file image. The returned
// Image shares storage with storyBytes; callers must not reuse that
// slice afterwards.
func Load(storyBytes []uint8) *Image {
	b := storyBytes
	img := &Image{
		bytes:                 b,
		Version:               b[0x00],
		Flags1:                b[0x01],
		ReleaseNumber:         binary.BigEndian.Uint16(b[0x02:0x04]),
		HighMemoryBase:        binary.BigEndian.Uint16(b[0x04:0x06]),
		InitialPC:             binary.BigEndian.Uint16(b[0x06:0x08]),
		DictionaryBase:        binary.BigEndian.Uint16(b[0x08:0x0a]),
		ObjectTableBase:       binary.BigEndian.Uint16(b[0x0a:0x0c]),
		GlobalVariableBase:    binary.BigEndian.Uint16(b[0x0c:0x0e]),
		StaticMemoryBase:      binary.BigEndian.Uint16(b[0x0e:0x10]),
		AbbreviationTableBase: binary.BigEndian.Uint16(b[0x18:0x1a]),
		FileChecksum:          binary.BigEndian.Uint16(b[0x1c:0x1e]),
		RoutinesOffset:        binary.BigEndian.Uint16(b[0x28:0x2a]),
		StringOffset:          binary.BigEndian.Uint16(b[0x2a:0x2c]),
		TerminatingCharTableBase: binary.BigEndian.Uint16(b[0x2e:0x30]),
		AlphabetTableBase:     binary.BigEndian.Uint16(b[0x34:0x36]),
		ExtensionTableBase:    binary.BigEndian.Uint16(b[0x36:0x38]),
	}
	copy(img.SerialNumber[:], b[0x12:0x18])
	return img
}

// StampInterpreterBytes overwrites the header fields the interpreter owns:
// its capability flags, screen geometry, and interpreter id/version. It is
// called once at load and again after every restore, per spec.md §3
// ("the story must not clobber these itself"). statusCapable and
// undoSupported come from the host's Options and gate the Flags1 status-line
// bit and the Flags2 "undo available" bit respectively, per spec.md §6
// ("these settings populate the interpreter-capability header bytes").
func (m *Image) StampInterpreterBytes(cols, rows, fg, bg uint8, statusCapable, undoSupported bool) {
	b := m.bytes

	b[0x1e] = 6 // interpreter number: IBM PC, closest published match
	b[0x1f] = 1 // interpreter version

	b[0x20] = rows
	b[0x21] = cols
	b[0x22], b[0x23] = 0, cols // screen width units == chars for text-only display
	b[0x24], b[0x25] = 0, rows
	b[0x26] = 1 // font height units
	b[0x27] = 1 // font width units

	b[0x2c] = bg
	b[0x2d] = fg

	b[0x32], b[0x33] = 1, 1 // standard revision 1.1

	if m.Version <= 3 {
		b[0x01] |= 0b0010_0000 // screen splitting always available
		if statusCapable {
			b[0x01] &^= 0b0001_0000 // clear "status line not available"
		} else {
			b[0x01] |= 0b0001_0000 // status line not available
		}
	} else {
		// colours(0x01), bold(0x04), italic(0x08), split screen(0x20); not
		// claiming pictures(0x02), fixed-width-default(0x10), timed input(0x80)
		b[0x01] |= 0b0010_1101
	}
	m.Flags1 = b[0x01]

	if m.Version >= 5 {
		if undoSupported {
			b[0x11] |= 0b0001_0000 // Flags2 bit 4: undo available
		} else {
			b[0x11] &^= 0b0001_0000
		}
	}
}

// FileLength returns the story file's declared length in bytes, scaled
// by the version-specific unit (2/4/8 bytes).
func (m *Image) FileLength() uint32 {
	raw := uint32(binary.BigEndian.Uint16(m.bytes[0x1a:0x1c]))
	return raw * uint32(m.lengthScale())
}

func (m *Image) lengthScale() uint32 {
	switch {
	case m.Version <= 3:
		return 2
	case m.Version <= 5:
		return 4
	default:
		return 8
	}
}

// PackedAddress expands a packed routine or string address per §3.
// isString only matters on v6/v7, which are out of scope here but the
// offset fields are still threaded through for completeness.
func (m *Image) PackedAddress(packed uint16, isString bool) uint32 {
	switch {
	case m.Version <= 3:
		return 2 * uint32(packed)
	case m.Version <= 5:
		return 4 * uint32(packed)
	case m.Version == 8:
		return 8 * uint32(packed)
	default:
		offset := m.RoutinesOffset
		if isString {
			offset = m.StringOffset
		}
		return 4*uint32(packed) + 8*uint32(offset)
	}
}

// Size returns the length of the underlying buffer.
func (m *Image) Size() uint32 { return uint32(len(m.bytes)) }

// Bytes exposes the raw backing array. Quetzal save/restore goes through
// DynamicMemory and SetDynamicMemory instead, and zstring/zobject read
// through ReadByte/ReadWord/ReadSlice.
func (m *Image) Bytes() []uint8 { return m.bytes }

func (m *Image) checkWritable(address uint32) error {
	if address >= uint32(m.StaticMemoryBase) {
		return &IllegalWrite{Address: address}
	}
	return nil
}

// ReadByte reads an unsigned byte with no bounds enforcement beyond the
// slice itself; static/high memory is readable everywhere.
func (m *Image) ReadByte(address uint32) uint8 {
	return m.bytes[address]
}

// ReadWord reads a big-endian 16 bit value.
func (m *Image) ReadWord(address uint32) uint16 {
	return binary.BigEndian.Uint16(m.bytes[address : address+2])
}

// ReadSlice returns a read-only view between two addresses.
func (m *Image) ReadSlice(start, end uint32) []uint8 {
	return m.bytes[start:end]
}

// WriteByte writes a byte, enforcing the dynamic-memory boundary.
func (m *Image) WriteByte(address uint32, value uint8) error {
	if err := m.checkWritable(address); err != nil {
		return err
	}
	m.bytes[address] = value
	return nil
}

// WriteWord writes a big-endian 16 bit value, enforcing the boundary.
func (m *Image) WriteWord(address uint32, value uint16) error {
	if err := m.checkWritable(address); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(m.bytes[address:address+2], value)
	return nil
}

// Checksum sums every byte from 0x40 to FileLength as an unsigned
// 16 bit accumulator, per §4.A, for comparison against FileChecksum by
// the verify opcode.
func (m *Image) Checksum() uint16 {
	length := m.FileLength()
	if length == 0 || length > m.Size() {
		length = m.Size()
	}
	var sum uint16
	for ix := uint32(0x40); ix < length; ix++ {
		sum += uint16(m.bytes[ix])
	}
	return sum
}

// DynamicMemory returns the mutable prefix of the image, the only
// region Quetzal save/restore preserves.
func (m *Image) DynamicMemory() []uint8 {
	return m.bytes[:m.StaticMemoryBase]
}

// SetDynamicMemory overwrites the dynamic region wholesale, used by
// restore. It does not touch static/high memory.
func (m *Image) SetDynamicMemory(data []uint8) {
	copy(m.bytes[:m.StaticMemoryBase], data)
}
