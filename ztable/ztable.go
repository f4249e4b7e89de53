// Package ztable is generic big-endian array access over a story image: the
// word and byte tables addressed by loadw/storew/loadb/storeb, and the
// fixed-stride parse-buffer records the input tokenizer writes.
package ztable

import "github.com/wry-frost/zm3/zcore"

// Words is a zero-based uint16 array view starting at a base address, with the
// loadw/storew opcodes' addressing (array[n] lives at base + 2*n).
type Words struct {
	core *zcore.Core
	base uint32
}

// NewWords binds a Words view to base.
func NewWords(core *zcore.Core, base uint32) Words {
	return Words{core: core, base: base}
}

func (w Words) Get(n int16) uint16 {
	return w.core.ReadHalfWord(w.base + 2*uint32(uint16(n)))
}

func (w Words) Set(n int16, value uint16) {
	w.core.WriteHalfWord(w.base+2*uint32(uint16(n)), value)
}

// Bytes is a zero-based uint8 array view starting at a base address, with the
// loadb/storeb opcodes' addressing (array[n] lives at base + n).
type Bytes struct {
	core *zcore.Core
	base uint32
}

// NewBytes binds a Bytes view to base.
func NewBytes(core *zcore.Core, base uint32) Bytes {
	return Bytes{core: core, base: base}
}

func (b Bytes) Get(n int16) uint8 {
	return b.core.ReadByte(b.base + uint32(uint16(n)))
}

func (b Bytes) Set(n int16, value uint8) {
	b.core.WriteByte(b.base+uint32(uint16(n)), value)
}

// ParseRecord is one 4-byte entry sread writes into a parse buffer for each
// recognised token: the dictionary entry address (0 if unrecognised), the
// token's length in the input buffer, and its starting column.
type ParseRecord struct {
	DictAddr uint16
	Length   uint8
	Column   uint8
}

// WriteParseBuffer lays out records after a parse buffer's 2-byte header
// (max-tokens byte, then the token-count byte this writes), one 4-byte record
// per token, capped at the buffer's declared max-tokens.
func WriteParseBuffer(core *zcore.Core, parseBufferAddr uint32, records []ParseRecord) {
	maxTokens := core.ReadByte(parseBufferAddr)
	n := len(records)
	if n > int(maxTokens) {
		n = int(maxTokens)
	}
	core.WriteByte(parseBufferAddr+1, uint8(n))

	for i := 0; i < n; i++ {
		addr := parseBufferAddr + 2 + uint32(i)*4
		core.WriteHalfWord(addr, records[i].DictAddr)
		core.WriteByte(addr+2, records[i].Length)
		core.WriteByte(addr+3, records[i].Column)
	}
}
