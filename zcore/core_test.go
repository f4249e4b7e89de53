package zcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wry-frost/zm3/zcore"
)

func buildHeader(t *testing.T, size int) []uint8 {
	t.Helper()
	img := make([]uint8, size)
	img[0x00] = 3
	img[0x08], img[0x09] = 0x00, 0x40 // dictionary base
	img[0x0a], img[0x0b] = 0x00, 0x40 // object table base
	img[0x0c], img[0x0d] = 0x00, 0x40 // global variable base
	return img
}

func TestLoadCoreRejectsShortImage(t *testing.T) {
	_, err := zcore.LoadCore(make([]uint8, 10))
	require.Error(t, err)
}

func TestLoadCoreRejectsUnsupportedVersion(t *testing.T) {
	img := buildHeader(t, 0x80)
	img[0x00] = 5
	_, err := zcore.LoadCore(img)
	require.Error(t, err)
}

func TestLoadCoreRejectsOversizedImage(t *testing.T) {
	img := buildHeader(t, zcore.MaxImageSize+1)
	_, err := zcore.LoadCore(img)
	require.Error(t, err)
}

func TestLoadCoreRejectsMissingTablePointer(t *testing.T) {
	img := buildHeader(t, 0x80)
	img[0x0a], img[0x0b] = 0, 0 // zero out object table base
	_, err := zcore.LoadCore(img)
	require.Error(t, err)
}

func TestLoadCoreParsesHeaderFields(t *testing.T) {
	img := buildHeader(t, 0x80)
	img[0x06], img[0x07] = 0x00, 0x50 // first instruction

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	assert.Equal(t, uint8(3), core.Version)
	assert.Equal(t, uint16(0x50), core.FirstInstruction)
	assert.Equal(t, uint16(0x40), core.DictionaryBase)
	assert.Equal(t, uint16(0x40), core.ObjectTableBase)
	assert.Equal(t, uint16(0x40), core.GlobalVariableBase)
}

func TestByteAndHalfWordReadWrite(t *testing.T) {
	img := buildHeader(t, 0x80)
	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	core.WriteByte(0x50, 0xab)
	assert.Equal(t, uint8(0xab), core.ReadByte(0x50))

	core.WriteHalfWord(0x52, 0xbeef)
	assert.Equal(t, uint16(0xbeef), core.ReadHalfWord(0x52))
}

func TestResetDiscardsMutations(t *testing.T) {
	img := buildHeader(t, 0x80)
	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	core.WriteByte(0x50, 0x99)
	core.Reset()

	assert.Equal(t, uint8(0), core.ReadByte(0x50))
}

func TestVerifyChecksum(t *testing.T) {
	img := buildHeader(t, 0x44)
	img[0x1a], img[0x1b] = 0x00, 0x22 // declared length in words -> 0x44 bytes
	img[0x40] = 10
	img[0x41] = 20
	img[0x42] = 30
	img[0x1c], img[0x1d] = 0, 60 // checksum = sum of bytes from 0x40 to end

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	assert.True(t, core.VerifyChecksum())

	core.WriteByte(0x40, 11)
	assert.False(t, core.VerifyChecksum())
}

func TestTranscriptingAndFixedPitchFlags(t *testing.T) {
	img := buildHeader(t, 0x80)
	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	assert.False(t, core.Transcripting())
	core.SetTranscripting(true)
	assert.True(t, core.Transcripting())

	assert.False(t, core.FixedPitch())
	core.SetFixedPitch(true)
	assert.True(t, core.FixedPitch())
	// setting fixed pitch must not disturb the transcripting bit set above
	assert.True(t, core.Transcripting())
}

func TestGlobalsGetSet(t *testing.T) {
	img := buildHeader(t, 0x80)
	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	globals := core.NewGlobals()
	globals.Set(0, 42)
	globals.Set(5, 777)

	assert.Equal(t, uint16(42), globals.Get(0))
	assert.Equal(t, uint16(777), globals.Get(5))
}

func TestViewRelativeAccess(t *testing.T) {
	img := buildHeader(t, 0x80)
	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	v := zcore.NewView(core, 0x50)
	v.WriteByteAt(2, 7)
	assert.Equal(t, uint8(7), core.ReadByte(0x52))

	v.WriteHalfWordAt(4, 0x1234)
	assert.Equal(t, uint16(0x1234), v.ReadHalfWordAt(4))
}
