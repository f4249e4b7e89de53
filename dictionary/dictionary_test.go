package dictionary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wry-frost/zm3/dictionary"
	"github.com/wry-frost/zm3/zcore"
)

// buildDictionaryImage lays out a minimal v3 image whose dictionary table
// starts at 0x40: two input-separator codes, 7-byte entries (4-byte key + 3
// data bytes), sorted by key.
func buildDictionaryImage(t *testing.T, keys [][4]uint8) *zcore.Core {
	t.Helper()
	const base = 0x40
	const entryLen = 7
	size := base + 4 + 2 + len(keys)*entryLen + 32
	bytes := make([]uint8, size)
	bytes[0x00] = 3
	bytes[0x08] = base >> 8
	bytes[0x09] = base & 0xff
	bytes[0x0a], bytes[0x0b] = 0x01, 0x00 // dummy object table pointer
	bytes[0x0c], bytes[0x0d] = 0x01, 0x00 // dummy globals pointer

	bytes[base] = 2       // two input codes
	bytes[base+1] = ' '   // space
	bytes[base+2] = ','   // comma
	bytes[base+3] = entryLen
	bytes[base+4] = uint8(len(keys) >> 8)
	bytes[base+5] = uint8(len(keys))

	entryPtr := base + 6
	for _, key := range keys {
		copy(bytes[entryPtr:entryPtr+4], key[:])
		entryPtr += entryLen
	}

	core, err := zcore.LoadCore(bytes)
	require.NoError(t, err)
	return core
}

func TestFindLocatesEveryEntry(t *testing.T) {
	keys := [][4]uint8{
		{0x01, 0x02, 0x03, 0x04},
		{0x05, 0x06, 0x07, 0x08},
		{0x09, 0x0a, 0x0b, 0x0c},
		{0x0d, 0x0e, 0x0f, 0x10},
	}
	core := buildDictionaryImage(t, keys)
	dict := dictionary.Parse(core, uint32(core.DictionaryBase))

	for _, key := range keys {
		addr := dict.Find(key)
		assert.NotZero(t, addr)
	}
}

func TestFindReturnsZeroForMissingWord(t *testing.T) {
	keys := [][4]uint8{
		{0x01, 0x02, 0x03, 0x04},
		{0x09, 0x0a, 0x0b, 0x0c},
	}
	core := buildDictionaryImage(t, keys)
	dict := dictionary.Parse(core, uint32(core.DictionaryBase))

	assert.Zero(t, dict.Find([4]uint8{0xff, 0xff, 0xff, 0xff}))
}

func TestHeaderParsesInputCodes(t *testing.T) {
	core := buildDictionaryImage(t, nil)
	dict := dictionary.Parse(core, uint32(core.DictionaryBase))

	assert.Equal(t, []uint8{' ', ','}, dict.Header.InputCodes)
	assert.EqualValues(t, 7, dict.Header.EntryLen)
}
