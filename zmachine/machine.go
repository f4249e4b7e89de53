// Package zmachine is the instruction decoder and opcode dispatcher: the
// piece that actually runs a story, built on top of zcore's address space,
// zobject's object tree, zstring's text codec, dictionary's vocabulary table,
// and callstack's activation frames.
package zmachine

import (
	"io"
	"strconv"
	"strings"

	"github.com/wry-frost/zm3/callstack"
	"github.com/wry-frost/zm3/dictionary"
	"github.com/wry-frost/zm3/zcore"
	"github.com/wry-frost/zm3/zobject"
	"github.com/wry-frost/zm3/zstring"
	"github.com/wry-frost/zm3/ztable"
)

// recentOpcodesCap bounds the ring buffer Fault reports use to show what led
// up to a crash.
const recentOpcodesCap = 32

// Machine holds every piece of mutable interpreter state for one running
// story: the image, the frame stack, decoded table views, and the two output
// streams this interpreter actually implements (screen, transcript).
type Machine struct {
	core    *zcore.Core
	objects zobject.Table
	strings zstring.Decoder
	dict    dictionary.Dictionary
	globals zcore.Globals
	stack   *callstack.Stack
	pc      uint32

	rng *rng

	screenOn     bool
	transcriptOn bool
	transcript   io.Writer

	state        MachineState
	pendingInput func(line string)

	recentOpcodes []uint8
}

// State reports whether the machine is presently runnable, suspended on a
// read continuation, mid-restart, or stopped.
func (m *Machine) State() MachineState {
	return m.state
}

// SetTranscriptWriter binds the destination output_stream 2 appends to. A nil
// writer (the default) means transcripting is tracked but has nowhere to go.
func (m *Machine) SetTranscriptWriter(w io.Writer) {
	m.transcript = w
}

// New binds a Machine to an already-parsed story image, positioning the
// program counter at its first instruction and pushing the implicit
// outermost "main" frame (no locals, nothing to return to).
func New(core *zcore.Core, seed int64) *Machine {
	m := &Machine{
		core:         core,
		objects:      zobject.NewTable(core, core.ObjectTableBase),
		strings:      zstring.NewDecoder(core),
		dict:         dictionary.Parse(core, uint32(core.DictionaryBase)),
		globals:      core.NewGlobals(),
		stack:        callstack.NewStack(),
		pc:           uint32(core.FirstInstruction),
		rng:          newRNG(seed),
		screenOn:     true,
		transcriptOn: core.Transcripting(),
		state:        StateRunning,
	}
	m.stack.EnterFrame(0, 0, nil)
	return m
}

// packedAddress converts a routine or string packed address to a byte
// address. v1-3 stories pack by a factor of 2 (v4+'s 4x/8x scaling and
// routine/string offsets never apply here).
func (m *Machine) packedAddress(addr uint16) uint32 {
	return 2 * uint32(addr)
}

// readVariable resolves variable number v: 0 is the current frame's
// evaluation stack (popped, unless indirect — the seven opcodes with
// indirect variable operands read/write the top of stack in place rather
// than popping/pushing it), 1-15 are locals, 16-255 are globals.
func (m *Machine) readVariable(v uint8, indirect bool) uint16 {
	switch {
	case v == 0:
		if indirect {
			return m.stack.Peek()
		}
		return m.stack.Pop()
	case v < 16:
		return m.stack.GetLocal(v)
	default:
		return m.globals.Get(v - 16)
	}
}

func (m *Machine) writeVariable(v uint8, value uint16, indirect bool) {
	switch {
	case v == 0:
		if indirect {
			m.stack.Pop()
		}
		m.stack.Push(value)
	case v < 16:
		m.stack.SetLocal(v, value)
	default:
		m.globals.Set(v-16, value)
	}
}

// storeResult reads the store-destination byte following an instruction's
// operands and writes value to it — the common tail of every opcode that
// "stores" a result.
func (m *Machine) storeResult(value uint16) {
	m.writeVariable(m.readByte(), value, false)
}

// handleBranch reads a branch trailer and, if result matches the trailer's
// polarity, either returns from the current routine (the special offsets 0
// and 1 meaning rfalse/rtrue) or jumps PC to the branch target.
func (m *Machine) handleBranch(result bool) {
	first := m.readByte()
	reversed := first>>7&1 == 0
	singleByte := first>>6&1 == 1
	offset := int32(first & 0b0011_1111)

	if !singleByte {
		second := m.readByte()
		offset = int32(int16(uint16(first&0b0011_1111)<<8|uint16(second)) << 2 >> 2)
	}

	if result == reversed {
		return
	}

	switch offset {
	case 0:
		m.doReturn(0)
	case 1:
		m.doReturn(1)
	default:
		m.pc = uint32(int64(m.pc) + int64(offset) - 2)
	}
}

// call enters a new routine: address 0 is the standard's "do nothing, store
// false" special case; otherwise the routine header's declared locals are
// seeded from the call's remaining arguments (falling back to the header's
// own defaults) and a new frame is pushed. Every v1-3 call instruction stores
// its result — the "_n"-suffixed no-store call forms are a v5+ feature.
func (m *Machine) call(routine uint16, args []operand) {
	storeDest := m.readByte()

	address := m.packedAddress(routine)
	if address == 0 {
		m.writeVariable(storeDest, 0, false)
		return
	}

	localCount := m.core.ReadByte(address)
	address++

	locals := make([]uint16, localCount)
	for i := uint8(0); i < localCount; i++ {
		locals[i] = m.core.ReadHalfWord(address)
		address += 2
		if int(i) < len(args) {
			locals[i] = args[i].Value(m)
		}
	}

	returnPC := m.pc
	m.stack.EnterFrame(returnPC, storeDest, locals)
	m.pc = address
}

// doReturn pops the current frame and resumes the caller, writing the
// returned value to the caller's store destination if the call opcode that
// created this frame was the storing kind (call_1s/2s/vs/vs2 vs. the
// "_n"-suffixed no-store forms introduced in later versions — in v1-3 every
// call stores, so this is always true here).
func (m *Machine) doReturn(value uint16) {
	returnPC, storeDest := m.stack.LeaveFrame()
	m.pc = returnPC
	m.writeVariable(storeDest, value, false)
}

// appendText sends text to whichever output streams are currently selected:
// the screen (stream 1, via the presentation boundary) and the transcript
// (stream 2, an independent destination — a story can transcript without
// echoing to the screen, or vice versa).
func (m *Machine) appendText(pres Presentation, text string) {
	if m.screenOn {
		pres.PrintMain(text)
	}
	if m.transcriptOn && m.transcript != nil {
		io.WriteString(m.transcript, text)
	}
}

// printStatusBar redraws the status line from the current location object
// and the score/moves (or time, if the header's flag says so) globals — the
// v1-3 status line is always object 16 in globals terms (variable 16), score
// in 17, moves/hours in 18.
func (m *Machine) printStatusBar(pres Presentation) {
	location := m.objects.Get(m.readVariable(16, true))
	name := location.ShortName(func(addr uint32) string {
		text, _ := m.strings.Decode(addr)
		return text
	})

	var right string
	if m.core.StatusBarTimeBased {
		hours := int16(m.readVariable(18, true))
		minutes := int16(m.readVariable(17, true))
		right = strconv.Itoa(int(hours)) + ":" + strconv.Itoa(int(minutes))
	} else {
		score := int16(m.readVariable(17, true))
		moves := int16(m.readVariable(18, true))
		right = "Score: " + strconv.Itoa(int(score)) + "  Moves: " + strconv.Itoa(int(moves))
	}

	pres.PrintStatus(name, right)
}

// tokeniseWord encodes one raw word and looks it up in the bound dictionary.
func (m *Machine) tokeniseWord(word []rune) uint16 {
	return m.dict.Find(zstring.EncodeDictionaryWord(word))
}

// sread implements the sread/read opcode: print the status line, then
// suspend in StateTakingInput with a continuation that finishes the read —
// lowercasing and copying the line into the text buffer and, unless the
// parse-buffer address is 0, tokenising it into dictionary records. sread
// itself never blocks; Step resumes the continuation the moment the bound
// Presentation's TryReadLine reports a line is ready.
func (m *Machine) sread(pres Presentation, textBufferAddr, parseBufferAddr uint32) {
	if m.core.ObjectTableBase != 0 {
		m.printStatusBar(pres)
	}

	m.state = StateTakingInput
	m.pendingInput = func(line string) {
		raw := strings.ToLower(line)

		maxChars := int(m.core.ReadByte(textBufferAddr))
		if len(raw) > maxChars {
			raw = raw[:maxChars]
		}
		for i := 0; i < len(raw); i++ {
			m.core.WriteByte(textBufferAddr+1+uint32(i), raw[i])
		}
		m.core.WriteByte(textBufferAddr+1+uint32(len(raw)), 0x20) // terminating space, not NUL

		if parseBufferAddr == 0 {
			return
		}
		m.tokenise(textBufferAddr, parseBufferAddr, raw)
	}
}

// tokenise splits text on spaces and the dictionary's input-separator codes,
// looks each token up, and writes the parse-buffer records ztable understands.
func (m *Machine) tokenise(textBufferAddr, parseBufferAddr uint32, text string) {
	isSeparator := func(r rune) bool {
		if r == ' ' {
			return true
		}
		for _, code := range m.dict.Header.InputCodes {
			if rune(code) == r {
				return true
			}
		}
		return false
	}

	var records []ztable.ParseRecord
	start := 0
	flush := func(end int) {
		if end <= start {
			return
		}
		word := []rune(text[start:end])
		addr := m.tokeniseWord(word)
		records = append(records, ztable.ParseRecord{
			DictAddr: addr,
			Length:   uint8(end - start),
			Column:   uint8(start + 1),
		})
	}

	for i, r := range text {
		if r == ' ' {
			flush(i)
			start = i + 1
		} else if isSeparator(r) {
			flush(i)
			records = append(records, ztable.ParseRecord{
				DictAddr: m.tokeniseWord([]rune{r}),
				Length:   1,
				Column:   uint8(i + 1),
			})
			start = i + 1
		}
	}
	flush(len(text))

	ztable.WriteParseBuffer(m.core, parseBufferAddr, records)
}

// recordOpcode appends to the ring buffer Fault reports read from.
func (m *Machine) recordOpcode(b uint8) {
	m.recentOpcodes = append(m.recentOpcodes, b)
	if len(m.recentOpcodes) > recentOpcodesCap {
		m.recentOpcodes = m.recentOpcodes[1:]
	}
}
