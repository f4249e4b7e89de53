package zstring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wry-frost/zm3/zcore"
	"github.com/wry-frost/zm3/zstring"
)

func minimalCore(t *testing.T, extra []uint8, extraBase uint32) *zcore.Core {
	t.Helper()
	bytes := make([]uint8, 0x200)
	bytes[0x00] = 3
	bytes[0x08], bytes[0x09] = 0x00, 0x10
	bytes[0x0a], bytes[0x0b] = 0x00, 0x10
	bytes[0x0c], bytes[0x0d] = 0x00, 0x10
	copy(bytes[extraBase:], extra)

	core, err := zcore.LoadCore(bytes)
	require.NoError(t, err)
	return core
}

func packZString(words ...uint16) []uint8 {
	out := make([]uint8, 0, len(words)*2)
	for _, w := range words {
		out = append(out, uint8(w>>8), uint8(w))
	}
	return out
}

func TestDecodeSimpleLowercaseWord(t *testing.T) {
	// zchars 7,8,9 => 'b','c','d' in A0 (index 6 is 'a', so 7='b' etc), final word terminator.
	words := packZString(0x8000 | (7 << 10) | (8 << 5) | 9)
	core := minimalCore(t, words, 0x100)

	dec := zstring.NewDecoder(core)
	text, read := dec.Decode(0x100)

	assert.Equal(t, "bcd", text)
	assert.Equal(t, uint32(2), read)
}

func TestDecodeTerminatesOnHighBit(t *testing.T) {
	// First word has no high bit, second does - decoder must read both.
	first := uint16(6<<10 | 6<<5 | 6) // 'a','a','a'
	second := uint16(0x8000) | uint16(0<<10|0<<5|0)
	core := minimalCore(t, packZString(first, second), 0x100)

	dec := zstring.NewDecoder(core)
	text, read := dec.Decode(0x100)

	assert.Equal(t, "aaa   ", text)
	assert.Equal(t, uint32(4), read)
}

func TestDecodeShiftToUppercase(t *testing.T) {
	// zchar 4 shifts to A1 for one character only: 'A' is index 0 -> zchar 6.
	word := uint16(0x8000) | uint16(4<<10|6<<5|6) // shift, 'A', then back to A0 -> 'a'
	core := minimalCore(t, packZString(word), 0x100)

	dec := zstring.NewDecoder(core)
	text, _ := dec.Decode(0x100)

	assert.Equal(t, "Aa", text)
}

func TestDecodeAbbreviation(t *testing.T) {
	// Abbreviation table at 0x120, holding one entry pointing at a string at 0x140.
	core := minimalCore(t, nil, 0x100)
	core.WriteHalfWord(0x18, 0x0120) // AbbreviationTableBase isn't re-parsed post construction,
	// so build the abbreviation table inside the already-allocated image directly instead.
	abbrevTableAddr := uint32(0x120)
	stringAddr := uint32(0x140)
	core.WriteHalfWord(abbrevTableAddr, uint16(stringAddr/2))
	greeting := packZString(uint16(0x8000) | uint16(8<<10|9<<5|10)) // 'c','d','e' then stop
	for i, b := range greeting {
		core.WriteByte(stringAddr+uint32(i), b)
	}

	// zchar 1 + index 0 resolves to abbreviation entry 0.
	word := uint16(0x8000) | uint16(1<<10|0<<5|0)
	core2, err := zcore.LoadCore(append(make([]uint8, 0), coreBytesFor(core)...))
	require.NoError(t, err)
	dec := zstring.NewDecoder(core2)

	mainStringAddr := uint32(0x160)
	for i, b := range packZString(word) {
		core2.WriteByte(mainStringAddr+uint32(i), b)
	}

	// The word's last Z-character (0) follows the abbreviation and decodes as a space.
	text, _ := dec.Decode(mainStringAddr)
	assert.Equal(t, "cde ", text)
}

// coreBytesFor extracts the raw bytes backing a Core for rebuilding a second
// handle over the same image in TestDecodeAbbreviation.
func coreBytesFor(core *zcore.Core) []uint8 {
	return core.Snapshot()
}

func TestEncodeDictionaryWordPadsAndTruncates(t *testing.T) {
	short := zstring.EncodeDictionaryWord([]rune("hi"))
	long := zstring.EncodeDictionaryWord([]rune("northwest"))

	assert.NotEqual(t, short, long)
	// High bit of the final byte pair's first byte must be set (word1 terminator).
	assert.NotEqual(t, uint8(0), short[2]&0x80)
	assert.NotEqual(t, uint8(0), long[2]&0x80)
}
