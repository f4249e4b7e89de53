package zmachine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wry-frost/zm3/zcore"
	"github.com/wry-frost/zm3/zmachine"
)

// scriptedPresentation drives a Machine through Step calls from a
// pre-recorded list of input lines, recording every PrintMain call.
type scriptedPresentation struct {
	lines  []string
	cursor int
	output []string
}

func (p *scriptedPresentation) Clear()                        { p.output = nil }
func (p *scriptedPresentation) PrintMain(text string)          { p.output = append(p.output, text) }
func (p *scriptedPresentation) PrintStatus(left, right string) {}
func (p *scriptedPresentation) Quit()                          {}
func (p *scriptedPresentation) RunLoop(step func() bool)       { for step() { } }

func (p *scriptedPresentation) TryReadLine() (string, bool) {
	if p.cursor >= len(p.lines) {
		return "", false
	}
	line := p.lines[p.cursor]
	p.cursor++
	return line, true
}

// buildImage assembles a minimal v1-3 header with a handful of bytes appended
// at base for callers to fill in a tiny routine or instruction stream.
func buildImage(t *testing.T, totalSize int) (bytes []uint8) {
	t.Helper()
	bytes = make([]uint8, totalSize)
	bytes[0x00] = 3 // version
	// mandatory non-zero table pointers; parked at an unused but valid offset
	bytes[0x08], bytes[0x09] = 0x00, 0x3e // dictionary base
	bytes[0x0a], bytes[0x0b] = 0x00, 0x3e // object table base
	bytes[0x0c], bytes[0x0d] = 0x00, 0x3e // global variable base
	return bytes
}

func putHalfWord(bytes []uint8, addr uint32, v uint16) {
	bytes[addr] = uint8(v >> 8)
	bytes[addr+1] = uint8(v & 0xff)
}

func readHalfWord(bytes []uint8, addr uint32) uint16 {
	return uint16(bytes[addr])<<8 | uint16(bytes[addr+1])
}

func TestStepAddAndStore(t *testing.T) {
	const base = 0x40
	img := buildImage(t, 0x100)
	putHalfWord(img, 0x06, base) // first instruction

	// 2OP:20 (add) long form, two small-constant operands, store to global 16.
	// Opcode byte: form bits 00 (long), operand types bits 6,5 (0=small const
	// for both), opcode number 0b10100 (20).
	img[base+0] = 0b00_10100
	img[base+1] = 2  // operand a
	img[base+2] = 3  // operand b
	img[base+3] = 16 // store destination: global 0 (variable 16)

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	m := zmachine.New(core, 1)
	pres := &scriptedPresentation{}
	more := m.Step(pres)

	assert.True(t, more)
	// global 0 (variable 16) lives at the global-variable base, 0x3e in buildImage.
	assert.Equal(t, uint16(5), readHalfWord(img, 0x3e), "add 2 3 should store 5")
}

func TestStepJzBranchesOnZero(t *testing.T) {
	const base = 0x40
	img := buildImage(t, 0x100)
	putHalfWord(img, 0x06, base)

	// 1OP:0 (jz), short form, small-constant operand 0, branch-on-true with a
	// single-byte offset of 3 (skip the next instruction). Branching correctly
	// lands on a quit opcode at base+4; failing to branch falls through to an
	// illegal opcode byte at base+3, which would panic instead.
	img[base+0] = 0b10_01_0000 // short form, small constant, opcode 0 (jz)
	img[base+1] = 0            // operand: zero
	img[base+2] = 0b1_1_000011 // branch: polarity=true, single byte, offset=3
	img[base+3] = 0xbe         // trap: illegal opcode, reached only on a missed branch
	img[base+4] = 0b10_11_1010 // quit, reached only if the branch was taken

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	m := zmachine.New(core, 1)
	pres := &scriptedPresentation{}

	more := m.Step(pres) // jz: operand is zero, so it must branch
	assert.True(t, more)

	more = m.Step(pres) // lands on quit only if the branch target was correct
	assert.False(t, more, "jz should have branched past the trap byte to the quit opcode")
}

func TestIllegalOpcodePanicsAndClassifies(t *testing.T) {
	const base = 0x40
	img := buildImage(t, 0x100)
	putHalfWord(img, 0x06, base)

	// Extended-form opcode byte (0xbe) is never valid in v1-3 scope.
	img[base+0] = 0xbe

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	m := zmachine.New(core, 1)
	pres := &scriptedPresentation{}

	var fault *zmachine.Fault
	func() {
		defer func() {
			if r := recover(); r != nil {
				fault = m.Recover(r)
			}
		}()
		m.Step(pres)
	}()

	require.NotNil(t, fault)
	assert.Equal(t, zmachine.IllegalOpcode, fault.Kind)
}

func TestCallAndReturnRoundTrip(t *testing.T) {
	const base = 0x40
	const routine = 0x60
	img := buildImage(t, 0x100)
	putHalfWord(img, 0x06, base)

	// VAR:224 (call) variable form: operand type byte says one large-constant
	// operand (the packed routine address), rest omitted.
	img[base+0] = 0b11_100000 // variable form, opcode 0 (call)
	img[base+1] = 0b00_11_11_11 // one large-constant operand, rest omitted
	putHalfWord(img, base+2, uint16(routine/2))
	img[base+4] = 16 // store destination: global 0

	// Routine header: 0 locals, body is just "ret 7" (1OP:11).
	img[routine] = 0               // local count
	img[routine+1] = 0b10_01_1011 // short form, small constant, opcode 11 (ret)
	img[routine+2] = 7

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	m := zmachine.New(core, 1)
	pres := &scriptedPresentation{}

	more := m.Step(pres) // call
	assert.True(t, more)
	more = m.Step(pres) // ret inside the callee
	assert.True(t, more)
}

func TestQuitStopsTheRunLoop(t *testing.T) {
	const base = 0x40
	img := buildImage(t, 0x100)
	putHalfWord(img, 0x06, base)

	img[base+0] = 0b10_11_1010 // short form, small constant omitted (0OP), opcode 10 (quit)

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	m := zmachine.New(core, 1)
	pres := &scriptedPresentation{}

	more := m.Step(pres)
	assert.False(t, more)
}

// bufferString reads back the line sread wrote starting at addr+1.
func bufferString(img []uint8, addr uint32, n int) string {
	b := make([]byte, n)
	copy(b, img[addr+1:addr+1+uint32(n)])
	return string(b)
}

// TestSreadSuspendsUntilInputIsReady exercises the full suspend/resume cycle:
// sread must not block, Step must report the machine as suspended and skip
// rather than spin while no line is ready, and only resume once
// TryReadLine actually has one.
func TestSreadSuspendsUntilInputIsReady(t *testing.T) {
	const (
		dictionaryBase     = 0x30
		objectTableBase    = 0x40
		propTableAddr      = 0xA0
		textBufferAddr     = 0xA8
		globalVariableBase = 0x200
		firstInstruction   = 0xC0
	)

	img := make([]uint8, 0x400)
	img[0x00] = 3 // version
	putHalfWord(img, 0x06, firstInstruction)
	putHalfWord(img, 0x08, dictionaryBase)
	putHalfWord(img, 0x0a, objectTableBase)
	putHalfWord(img, 0x0c, globalVariableBase)

	// One object (id 1) with a zero-length short name and an empty property
	// list, so printStatusBar's location lookup has something valid to read.
	const obj1 = objectTableBase + 31*2 // past the property-defaults array
	img[obj1+7], img[obj1+8] = 0x00, propTableAddr
	img[propTableAddr] = 0   // zero-length short name
	img[propTableAddr+1] = 0 // empty property list terminator

	// Global 0 (variable 16) is the status line's "current location" object.
	putHalfWord(img, globalVariableBase, 1)

	img[textBufferAddr] = 20 // max input length

	// VAR:4 (sread), variable form: two small-constant operands (text buffer,
	// parse buffer — 0 means "don't tokenise"), rest omitted.
	img[firstInstruction+0] = 0xe4 // variable form, true VAR, opcode 4 (sread)
	img[firstInstruction+1] = 0b01_01_11_11
	img[firstInstruction+2] = textBufferAddr
	img[firstInstruction+3] = 0 // parse buffer: skip tokenising

	img[firstInstruction+4] = 0b10_11_1010 // quit, reached only once sread resumes

	core, err := zcore.LoadCore(img)
	require.NoError(t, err)

	m := zmachine.New(core, 1)
	pres := &scriptedPresentation{} // no scripted lines yet

	more := m.Step(pres) // sread suspends rather than blocking
	assert.True(t, more)
	assert.Equal(t, zmachine.StateTakingInput, m.State())

	more = m.Step(pres) // no line ready: the step is skipped, not a busy spin
	assert.True(t, more)
	assert.Equal(t, zmachine.StateTakingInput, m.State())

	pres.lines = append(pres.lines, "look")

	more = m.Step(pres) // TryReadLine now succeeds: the continuation resumes
	assert.True(t, more)
	assert.Equal(t, zmachine.StateRunning, m.State())
	assert.Equal(t, "look", bufferString(img, textBufferAddr, len("look")))
	assert.Equal(t, uint8(0x20), img[textBufferAddr+1+uint32(len("look"))], "terminator must be a space, not NUL")

	more = m.Step(pres) // decodes the quit placed right after sread
	assert.False(t, more)
}
