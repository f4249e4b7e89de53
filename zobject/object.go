// Package zobject is the object-tree and property-table layer: attribute bits,
// parent/sibling/child links, and the variable-length property lists attached to
// each object.
package zobject

import "github.com/wry-frost/zm3/zcore"

const (
	defaultsCount  = 31 // properties 1..31 have defaults
	entrySize      = 9  // v1-3 object entry size in bytes
	defaultsBytes  = defaultsCount * 2
	attributeBytes = 4
)

// Object is a handle onto one entry in the object table. It is not a cached copy:
// every getter reads the image fresh and every setter writes through immediately,
// so a stale Object never diverges from the bytes backing it.
type Object struct {
	core *zcore.Core
	id   uint16
	base uint32 // absolute address of this object's 9-byte entry
}

// Table is the object table as a whole: the property-defaults array followed by
// the object entries.
type Table struct {
	core *zcore.Core
	base uint32
}

// NewTable binds a Table to the header's object-table pointer.
func NewTable(core *zcore.Core, objectTableBase uint16) Table {
	return Table{core: core, base: uint32(objectTableBase)}
}

// Default returns the default value for property n (1-based, n in [1,31]), used
// when an object's own property list has no entry for n.
func (t Table) Default(n uint8) uint16 {
	return t.core.ReadHalfWord(t.base + 2*uint32(n-1))
}

// Get returns a handle for object id. Object 0 ("no object") must never be
// dereferenced except as a parent/sibling/child sentinel (the root's parent, or
// the null destination of insert_obj); callers are trusted not to call Get(0).
func (t Table) Get(id uint16) Object {
	return Object{
		core: t.core,
		id:   id,
		base: t.base + defaultsBytes + uint32(id-1)*entrySize,
	}
}

// ID returns the object's 1-based identifier.
func (o Object) ID() uint16 { return o.id }

func (o Object) Parent() uint16  { return uint16(o.core.ReadByte(o.base + 4)) }
func (o Object) Sibling() uint16 { return uint16(o.core.ReadByte(o.base + 5)) }
func (o Object) Child() uint16   { return uint16(o.core.ReadByte(o.base + 6)) }

func (o Object) SetParent(id uint16)  { o.core.WriteByte(o.base+4, uint8(id)) }
func (o Object) SetSibling(id uint16) { o.core.WriteByte(o.base+5, uint8(id)) }
func (o Object) SetChild(id uint16)   { o.core.WriteByte(o.base+6, uint8(id)) }

// PropertyTableAddr is the absolute address of this object's property table
// (short-name length byte, short name, then the property list).
func (o Object) PropertyTableAddr() uint32 {
	return uint32(o.core.ReadHalfWord(o.base + 7))
}

// attributeBit resolves attribute i (i in [0,31]) to the byte offset within the
// object's 4-byte attribute field and the mask within that byte.
//
// Older drafts of this interpreter used `1 << i` or `i << 1`, both wrong; the
// correct mapping per the z-machine standard is bit i = 1<<(7-(i mod 8)) within
// byte i/8 of the attribute field (byte 0 holds attributes 0-7, MSB first).
func attributeBit(i uint8) (byteOffset uint32, mask uint8) {
	return uint32(i / 8), 1 << (7 - (i % 8))
}

// TestAttribute reports whether attribute i (i in [0,31]) is set.
func (o Object) TestAttribute(i uint8) bool {
	byteOffset, mask := attributeBit(i)
	return o.core.ReadByte(o.base+byteOffset)&mask != 0
}

// SetAttribute sets attribute i.
func (o Object) SetAttribute(i uint8) {
	byteOffset, mask := attributeBit(i)
	o.core.WriteByte(o.base+byteOffset, o.core.ReadByte(o.base+byteOffset)|mask)
}

// ClearAttribute clears attribute i.
func (o Object) ClearAttribute(i uint8) {
	byteOffset, mask := attributeBit(i)
	o.core.WriteByte(o.base+byteOffset, o.core.ReadByte(o.base+byteOffset)&^mask)
}

// Properties returns the property-table view for this object.
func (o Object) Properties(defaults Table) PropertyTable {
	nameLen := uint32(o.core.ReadByte(o.PropertyTableAddr()))
	return PropertyTable{
		core:     o.core,
		obj:      o,
		defaults: defaults,
		listBase: o.PropertyTableAddr() + 1 + nameLen*2,
	}
}

// ShortName decodes the object's short name from its property table header.
// The caller supplies the decode function since that lives in package zstring
// (avoiding an import cycle between zobject and zstring).
func (o Object) ShortName(decode func(addr uint32) string) string {
	addr := o.PropertyTableAddr()
	nameLen := o.core.ReadByte(addr)
	if nameLen == 0 {
		return ""
	}
	return decode(addr + 1)
}

// Insert moves child to become the first child of parent (the insert_obj
// opcode): if child already has a parent, it is first unlinked from that
// parent's sibling chain, then linked as parent's new first child with the
// previous first child becoming its sibling.
func Insert(t Table, child, parent uint16) {
	c := t.Get(child)
	if c.Parent() != 0 {
		Remove(t, child)
	}

	p := t.Get(parent)
	c.SetSibling(p.Child())
	c.SetParent(parent)
	p.SetChild(child)
}

// Remove unlinks obj from its current parent's sibling chain (the remove_obj
// opcode). A detached object has parent 0 and keeps its own children.
func Remove(t Table, obj uint16) {
	o := t.Get(obj)
	parentID := o.Parent()
	if parentID == 0 {
		return
	}

	p := t.Get(parentID)
	if p.Child() == obj {
		p.SetChild(o.Sibling())
	} else {
		cur := t.Get(p.Child())
		for cur.Sibling() != obj {
			cur = t.Get(cur.Sibling())
		}
		cur.SetSibling(o.Sibling())
	}

	o.SetParent(0)
	o.SetSibling(0)
}
