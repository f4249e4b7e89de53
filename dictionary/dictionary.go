// Package dictionary is the word dictionary: the table of known vocabulary
// words an interpreter matches parsed input tokens against.
package dictionary

import (
	"encoding/binary"

	"github.com/wry-frost/zm3/zcore"
)

// encodedWordBytes is the v1-3 dictionary entry key width (6 Z-characters
// packed into two 16-bit words).
const encodedWordBytes = 4

// Header describes the dictionary's input-separator set and entry layout, read
// once from the bytes immediately preceding the entry list.
type Header struct {
	InputCodes []uint8 // ZSCII codes that always end a word during tokenisation
	EntryLen   uint8   // total bytes per entry, including the 4-byte key
	Count      int16   // number of entries; negative means unsorted
}

// Dictionary is a bound view over a story's dictionary table. Entries are
// stored sorted by their encoded key, letting Find binary-search rather than
// scan linearly.
type Dictionary struct {
	core       *zcore.Core
	Header     Header
	entriesPtr uint32
}

// Parse reads the dictionary header at base and binds a Dictionary to it.
func Parse(core *zcore.Core, base uint32) Dictionary {
	n := core.ReadByte(base)
	codes := make([]uint8, n)
	for i := uint8(0); i < n; i++ {
		codes[i] = core.ReadByte(base + 1 + uint32(i))
	}

	entryLen := core.ReadByte(base + 1 + uint32(n))
	count := int16(core.ReadHalfWord(base + 2 + uint32(n)))

	return Dictionary{
		core: core,
		Header: Header{
			InputCodes: codes,
			EntryLen:   entryLen,
			Count:      count,
		},
		entriesPtr: base + 4 + uint32(n),
	}
}

// entryAddr returns the absolute address of entry i (0-based).
func (d Dictionary) entryAddr(i int) uint32 {
	return d.entriesPtr + uint32(i)*uint32(d.Header.EntryLen)
}

// keyAt reads entry i's 4-byte encoded word key as a big-endian unsigned
// integer, letting Find compare keys with plain integer ordering.
func (d Dictionary) keyAt(i int) uint32 {
	addr := d.entryAddr(i)
	return binary.BigEndian.Uint32(d.core.ReadSlice(addr, addr+encodedWordBytes))
}

// Find looks up a 4-byte encoded word (see zstring.EncodeDictionaryWord) and
// returns its entry's absolute address, or 0 if the word is not in the
// dictionary. A negative Header.Count means the entries aren't guaranteed
// sorted, in which case Find falls back to a linear scan.
func (d Dictionary) Find(encoded [4]uint8) uint16 {
	key := binary.BigEndian.Uint32(encoded[:])
	count := int(d.Header.Count)

	if count < 0 {
		count = -count
		for i := 0; i < count; i++ {
			if d.keyAt(i) == key {
				return uint16(d.entryAddr(i))
			}
		}
		return 0
	}

	lo, hi := 0, count-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch v := d.keyAt(mid); {
		case v == key:
			return uint16(d.entryAddr(mid))
		case v < key:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0
}

// EntryData returns the data bytes following entry addr's encoded word key
// (the verb/preposition numbers a game's grammar table indexes by).
func (d Dictionary) EntryData(addr uint32) []uint8 {
	return d.core.ReadSlice(addr+encodedWordBytes, addr+uint32(d.Header.EntryLen))
}
