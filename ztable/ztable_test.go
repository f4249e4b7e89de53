package ztable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wry-frost/zm3/zcore"
	"github.com/wry-frost/zm3/ztable"
)

func minimalCore(t *testing.T) *zcore.Core {
	t.Helper()
	bytes := make([]uint8, 0x200)
	bytes[0x00] = 3
	bytes[0x08], bytes[0x09] = 0x01, 0x00
	bytes[0x0a], bytes[0x0b] = 0x01, 0x00
	bytes[0x0c], bytes[0x0d] = 0x01, 0x00
	core, err := zcore.LoadCore(bytes)
	require.NoError(t, err)
	return core
}

func TestWordsGetSetRoundTrip(t *testing.T) {
	core := minimalCore(t)
	words := ztable.NewWords(core, 0x100)

	words.Set(0, 0x1234)
	words.Set(1, 0xbeef)

	assert.Equal(t, uint16(0x1234), words.Get(0))
	assert.Equal(t, uint16(0xbeef), words.Get(1))
}

func TestBytesGetSetRoundTrip(t *testing.T) {
	core := minimalCore(t)
	bytesArr := ztable.NewBytes(core, 0x100)

	bytesArr.Set(5, 0x42)
	assert.Equal(t, uint8(0x42), bytesArr.Get(5))
}

func TestWriteParseBufferCapsAtMaxTokens(t *testing.T) {
	core := minimalCore(t)
	const parseBufferAddr = 0x100
	core.WriteByte(parseBufferAddr, 1) // max-tokens = 1

	ztable.WriteParseBuffer(core, parseBufferAddr, []ztable.ParseRecord{
		{DictAddr: 0x999, Length: 4, Column: 1},
		{DictAddr: 0x888, Length: 3, Column: 6},
	})

	assert.Equal(t, uint8(1), core.ReadByte(parseBufferAddr+1))
	assert.Equal(t, uint16(0x999), core.ReadHalfWord(parseBufferAddr+2))
}
