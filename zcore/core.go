// Package zcore is the address-space and header layer of the interpreter: a single
// mutable byte buffer (the story image) plus the fixed 64-byte header Infocom v1-3
// z-machine files carry at offset 0.
package zcore

import "encoding/binary"

// Core owns the story image bytes and the decoded header fields. It is the sole
// owner of the byte buffer; every other package is handed a *Core (or a narrower
// view over one) and never keeps its own copy of the bytes.
type Core struct {
	bytes    []uint8
	original []uint8 // untouched copy of the freshly loaded image, for restart

	Version               uint8
	Flags1                uint8
	StatusBarTimeBased    bool
	HighMemoryBase        uint16
	FirstInstruction      uint16
	DictionaryBase        uint16
	ObjectTableBase       uint16
	GlobalVariableBase    uint16
	StaticMemoryBase      uint16
	AbbreviationTableBase uint16
	FileChecksum          uint16
	FileLength            uint32 // declared length in bytes (header field is in words, scaled by 2 for v1-3)
}

// MaxImageSize is the largest story file this interpreter accepts (128 KiB, the v1-3 ceiling).
const MaxImageSize = 128 * 1024

// LoadError reports a fatal problem found while parsing the header.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string { return "malformed story image: " + e.Reason }

// LoadCore parses the 64-byte header out of a freshly read story file. It rejects
// version > 3 and truncated images as fatal; it does not validate the rest of the
// image beyond the header.
func LoadCore(bytes []uint8) (*Core, error) {
	if len(bytes) < 0x40 {
		return nil, &LoadError{Reason: "file shorter than the 64-byte header"}
	}
	if len(bytes) > MaxImageSize {
		return nil, &LoadError{Reason: "file exceeds the 128KiB v1-3 image ceiling"}
	}

	version := bytes[0x00]
	if version == 0 || version > 3 {
		return nil, &LoadError{Reason: "unsupported version (only v1-3 are implemented)"}
	}

	original := make([]uint8, len(bytes))
	copy(original, bytes)

	core := &Core{
		bytes:                 bytes,
		original:              original,
		Version:               version,
		Flags1:                bytes[0x01],
		StatusBarTimeBased:    bytes[0x01]&0b0000_0010 != 0,
		HighMemoryBase:        binary.BigEndian.Uint16(bytes[0x04:0x06]),
		FirstInstruction:      binary.BigEndian.Uint16(bytes[0x06:0x08]),
		DictionaryBase:        binary.BigEndian.Uint16(bytes[0x08:0x0a]),
		ObjectTableBase:       binary.BigEndian.Uint16(bytes[0x0a:0x0c]),
		GlobalVariableBase:    binary.BigEndian.Uint16(bytes[0x0c:0x0e]),
		StaticMemoryBase:      binary.BigEndian.Uint16(bytes[0x0e:0x10]),
		FileChecksum:          binary.BigEndian.Uint16(bytes[0x1c:0x1e]),
		AbbreviationTableBase: binary.BigEndian.Uint16(bytes[0x18:0x1a]),
		FileLength:            2 * uint32(binary.BigEndian.Uint16(bytes[0x1a:0x1c])),
	}

	if core.ObjectTableBase == 0 || core.GlobalVariableBase == 0 || core.DictionaryBase == 0 {
		return nil, &LoadError{Reason: "missing a mandatory table pointer in the header"}
	}

	return core, nil
}

// Reset overwrites the image with the bytes LoadCore originally parsed,
// discarding every mutation made since (the restart opcode's effect).
func (c *Core) Reset() {
	copy(c.bytes, c.original)
}

// VerifyChecksum sums every byte from the end of the header to the header's
// declared file length and compares it to the header's stored checksum — the
// verify opcode's definition of "this looks like the same file".
func (c *Core) VerifyChecksum() bool {
	var sum uint16
	limit := c.FileLength
	if limit == 0 || limit > uint32(len(c.bytes)) {
		limit = uint32(len(c.bytes))
	}
	for i := uint32(0x40); i < limit; i++ {
		sum += uint16(c.bytes[i])
	}
	return sum == c.FileChecksum
}

// Transcripting reports the interpreter-writable "transcript on" bit (flags2, bit 0).
func (c *Core) Transcripting() bool {
	return c.ReadHalfWord(0x10)&0x0001 != 0
}

// SetTranscripting writes the "transcript on" bit without touching the rest of flags2.
func (c *Core) SetTranscripting(on bool) {
	v := c.ReadHalfWord(0x10)
	if on {
		v |= 0x0001
	} else {
		v &^= 0x0001
	}
	c.WriteHalfWord(0x10, v)
}

// FixedPitch reports the interpreter-writable "fixed pitch font" bit (flags2, bit 1).
func (c *Core) FixedPitch() bool {
	return c.ReadHalfWord(0x10)&0x0002 != 0
}

// SetFixedPitch writes the "fixed pitch font" bit without touching the rest of flags2.
func (c *Core) SetFixedPitch(on bool) {
	v := c.ReadHalfWord(0x10)
	if on {
		v |= 0x0002
	} else {
		v &^= 0x0002
	}
	c.WriteHalfWord(0x10, v)
}

// ReadByte reads a single byte at an absolute address. There is no bounds checking
// beyond what a Go slice index panics on — out-of-range access is a fatal condition.
func (c *Core) ReadByte(address uint32) uint8 {
	return c.bytes[address]
}

// WriteByte writes a single byte at an absolute address.
func (c *Core) WriteByte(address uint32, value uint8) {
	c.bytes[address] = value
}

// ReadHalfWord reads a big-endian 16-bit word at an absolute address.
func (c *Core) ReadHalfWord(address uint32) uint16 {
	return binary.BigEndian.Uint16(c.bytes[address : address+2])
}

// WriteHalfWord writes a big-endian 16-bit word at an absolute address.
func (c *Core) WriteHalfWord(address uint32, value uint16) {
	binary.BigEndian.PutUint16(c.bytes[address:address+2], value)
}

// ReadSlice returns a borrowed view of the image between two absolute addresses.
// Callers must not retain it past the next mutation of the image.
func (c *Core) ReadSlice(start, end uint32) []uint8 {
	return c.bytes[start:end]
}

// Len returns the image length in bytes.
func (c *Core) Len() uint32 {
	return uint32(len(c.bytes))
}

// Snapshot returns a deep copy of the image bytes as they are now, including every
// mutation made since load (restart uses Reset, not Snapshot).
func (c *Core) Snapshot() []uint8 {
	cp := make([]uint8, len(c.bytes))
	copy(cp, c.bytes)
	return cp
}

// View is a (Core, base-offset) pair: reads and writes relative to base, for callers
// that work within one region of the image (a property table, a dictionary entry, a
// globals table) and would otherwise have to keep adding the same base repeatedly.
type View struct {
	Core *Core
	Base uint32
}

// NewView returns a view rooted at the given absolute address.
func NewView(core *Core, base uint32) View {
	return View{Core: core, Base: base}
}

func (v View) ReadByteAt(offset uint32) uint8            { return v.Core.ReadByte(v.Base + offset) }
func (v View) WriteByteAt(offset uint32, val uint8)      { v.Core.WriteByte(v.Base+offset, val) }
func (v View) ReadHalfWordAt(offset uint32) uint16       { return v.Core.ReadHalfWord(v.Base + offset) }
func (v View) WriteHalfWordAt(offset uint32, val uint16) { v.Core.WriteHalfWord(v.Base+offset, val) }
