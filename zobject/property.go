package zobject

import (
	"fmt"

	"github.com/wry-frost/zm3/zcore"
)

// PropertyTable is the variable-length property list attached to one object: a
// size byte S = 32*(L-1)+N (length L in [1,8], number N in [1,31]) followed by L
// data bytes, descending by N, terminated by a size byte of 0.
type PropertyTable struct {
	core     *zcore.Core
	obj      Object
	defaults Table
	listBase uint32 // address of the first size byte
}

// PropertyError reports a bad property access: get_next_prop on an absent
// property, put_prop on an absent or over-long property, or a width other
// than 1/2 passed to get_property.
type PropertyError struct {
	Detail string
}

func (e *PropertyError) Error() string { return "bad property access: " + e.Detail }

func decodeSizeByte(s uint8) (length uint8, number uint8) {
	return s/32 + 1, s % 32
}

// find walks the list looking for property n, returning its size-byte address
// and decoded length, or ok=false if absent.
func (p PropertyTable) find(n uint8) (addr uint32, length uint8, ok bool) {
	addr = p.listBase
	for {
		size := p.core.ReadByte(addr)
		if size == 0 {
			return 0, 0, false
		}
		l, num := decodeSizeByte(size)
		if num == n {
			return addr, l, true
		}
		if num < n {
			return 0, 0, false // descending order: we've passed where n would be
		}
		addr += 1 + uint32(l)
	}
}

// Get returns the 1- or 2-byte value of property n as a 16-bit word, or the
// table default when the object has no entry for n. Widths other than 1 or 2
// are fatal (BadProperty) — get_property never deals with longer properties.
func (p PropertyTable) Get(n uint8) uint16 {
	addr, length, ok := p.find(n)
	if !ok {
		return p.defaults.Default(n)
	}
	data := addr + 1
	switch length {
	case 1:
		return uint16(p.core.ReadByte(data))
	case 2:
		return p.core.ReadHalfWord(data)
	default:
		panic(&PropertyError{Detail: fmt.Sprintf("get_property on object %d property %d has width %d", p.obj.ID(), n, length)})
	}
}

// Addr returns the absolute address of property n's data bytes, or 0 if absent.
func (p PropertyTable) Addr(n uint8) uint32 {
	addr, _, ok := p.find(n)
	if !ok {
		return 0
	}
	return addr + 1
}

// Next returns the property number of the entry after n, or the first entry
// when n is 0. Asking about a non-existent property (n != 0 and absent) is fatal.
func (p PropertyTable) Next(n uint8) uint8 {
	if n == 0 {
		size := p.core.ReadByte(p.listBase)
		if size == 0 {
			return 0
		}
		_, num := decodeSizeByte(size)
		return num
	}

	addr, length, ok := p.find(n)
	if !ok {
		panic(&PropertyError{Detail: fmt.Sprintf("get_next_prop on object %d: property %d does not exist", p.obj.ID(), n)})
	}
	nextAddr := addr + 1 + uint32(length)
	nextSize := p.core.ReadByte(nextAddr)
	if nextSize == 0 {
		return 0
	}
	_, num := decodeSizeByte(nextSize)
	return num
}

// Write overwrites an existing 1- or 2-byte property entry. Writing to an
// absent property is fatal — put_prop never creates entries.
func (p PropertyTable) Write(n uint8, value uint16) {
	addr, length, ok := p.find(n)
	if !ok {
		panic(&PropertyError{Detail: fmt.Sprintf("put_prop on object %d: property %d does not exist", p.obj.ID(), n)})
	}
	data := addr + 1
	switch length {
	case 1:
		p.core.WriteByte(data, uint8(value))
	case 2:
		p.core.WriteHalfWord(data, value)
	default:
		panic(&PropertyError{Detail: fmt.Sprintf("put_prop on object %d: property %d has width %d", p.obj.ID(), n, length)})
	}
}

// Len decodes a property's length from the size byte one below addr — the form
// get_prop_len is given, since it only ever sees a data address.
func Len(core *zcore.Core, addr uint32) uint8 {
	if addr == 0 {
		return 0
	}
	size := core.ReadByte(addr - 1)
	length, _ := decodeSizeByte(size)
	return length
}
