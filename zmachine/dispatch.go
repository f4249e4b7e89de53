package zmachine

import "strconv"

// Step decodes and executes exactly one instruction, returning false once the
// story has executed quit. Presentation is threaded through explicitly rather
// than stored on Machine so tests can drive a Machine without a full
// terminal; Run below is the convenience wrapper real callers use.
//
// When the machine is suspended in StateTakingInput, Step polls
// Presentation.TryReadLine instead of decoding: if no line is ready yet, the
// step is skipped (more is still true — the machine remains suspended, not
// stopped) and nothing else advances until one is.
func (m *Machine) Step(pres Presentation) (more bool) {
	if m.state == StateStopped {
		return false
	}
	if m.state == StateTakingInput {
		line, ok := pres.TryReadLine()
		if !ok {
			return true
		}
		pending := m.pendingInput
		m.pendingInput = nil
		m.state = StateRunning
		pending(line)
		return true
	}

	startPC := m.pc
	inst := m.decode()
	m.recordOpcode(inst.opcodeByte)

	switch inst.count {
	case op0:
		return m.step0(pres, inst, startPC)
	case op1:
		m.step1(pres, inst, startPC)
	case op2:
		m.step2(pres, inst, startPC)
	case opVar:
		m.stepVar(pres, inst, startPC)
	}
	return true
}

// Run hands control to the presentation layer's run loop, which calls Step
// repeatedly until it returns false (the story executed quit).
func (m *Machine) Run(pres Presentation) {
	pres.RunLoop(func() bool {
		return m.Step(pres)
	})
}

func (m *Machine) step0(pres Presentation, inst instruction, pc uint32) bool {
	switch inst.number {
	case 0: // rtrue
		m.doReturn(1)
	case 1: // rfalse
		m.doReturn(0)
	case 2: // print
		text, n := m.strings.Decode(m.pc)
		m.pc += n
		m.appendText(pres, text)
	case 3: // print_ret
		text, n := m.strings.Decode(m.pc)
		m.pc += n
		m.appendText(pres, text+"\n")
		m.doReturn(1)
	case 4: // nop — reserved, never emitted by any real compiler; no-op.
	case 5: // save — disk persistence is out of scope; always report failure
		m.handleBranch(false)
	case 6: // restore — nothing was ever saved, so always fails
		m.handleBranch(false)
	case 7: // restart
		m.restart(pres)
	case 8: // ret_popped
		m.doReturn(m.stack.Pop())
	case 9: // pop — discard the top of the evaluation stack
		m.stack.Pop()
	case 10: // quit
		m.state = StateStopped
		pres.Quit()
		return false
	case 11: // new_line
		m.appendText(pres, "\n")
	case 12: // show_status — v3 only, a no-op elsewhere but harmless to run
		m.printStatusBar(pres)
	case 13: // verify
		m.handleBranch(m.verifyChecksum())
	case 15: // piracy — interpreters are required to always claim authenticity
		m.handleBranch(true)
	default:
		panic(&illegalOpcodeError{Detail: "0OP:" + strconv.Itoa(int(inst.number))})
	}
	return true
}

func (m *Machine) step1(pres Presentation, inst instruction, pc uint32) {
	a := inst.operands[0]
	switch inst.number {
	case 0: // jz
		m.handleBranch(a.Value(m) == 0)
	case 1: // get_sibling
		sibling := m.objects.Get(a.Value(m)).Sibling()
		m.storeResult(sibling)
		m.handleBranch(sibling != 0)
	case 2: // get_child
		child := m.objects.Get(a.Value(m)).Child()
		m.storeResult(child)
		m.handleBranch(child != 0)
	case 3: // get_parent
		m.storeResult(m.objects.Get(a.Value(m)).Parent())
	case 4: // get_prop_len
		m.storeResult(uint16(propertyLen(m.core, uint32(a.Value(m)))))
	case 5: // inc
		v := uint8(a.Value(m))
		m.writeVariable(v, m.readVariable(v, true)+1, true)
	case 6: // dec
		v := uint8(a.Value(m))
		m.writeVariable(v, m.readVariable(v, true)-1, true)
	case 7: // print_addr
		text, _ := m.strings.Decode(uint32(a.Value(m)))
		m.appendText(pres, text)
	case 8: // call_1s
		m.call(a.Value(m), nil)
	case 9: // remove_obj
		zobjectRemove(m, a.Value(m))
	case 10: // print_obj
		obj := m.objects.Get(a.Value(m))
		text := obj.ShortName(func(addr uint32) string { t, _ := m.strings.Decode(addr); return t })
		m.appendText(pres, text)
	case 11: // ret
		m.doReturn(a.Value(m))
	case 12: // jump — unconditional, not a branch trailer: the operand is a
		// signed offset applied directly to PC.
		offset := int16(a.Value(m))
		m.pc = uint32(int64(m.pc) + int64(offset) - 2)
	case 13: // print_paddr
		text, _ := m.strings.Decode(m.packedAddress(a.Value(m)))
		m.appendText(pres, text)
	case 14: // load
		m.storeResult(m.readVariable(uint8(a.Value(m)), true))
	case 15: // not (v1-4; call_1n is a v5+ reuse of this opcode number)
		m.storeResult(^a.Value(m))
	default:
		panic(&illegalOpcodeError{Detail: "1OP:" + strconv.Itoa(int(inst.number))})
	}
}

func (m *Machine) step2(pres Presentation, inst instruction, pc uint32) {
	a, b := inst.operands[0], inst.operands[1]
	switch inst.number {
	case 1: // je — up to 4 operands, true if a matches any of the rest
		first := a.Value(m)
		branch := false
		for _, o := range inst.operands[1:] {
			if first == o.Value(m) {
				branch = true
			}
		}
		m.handleBranch(branch)
	case 2: // jl
		m.handleBranch(int16(a.Value(m)) < int16(b.Value(m)))
	case 3: // jg
		m.handleBranch(int16(a.Value(m)) > int16(b.Value(m)))
	case 4: // dec_chk
		v := uint8(a.Value(m))
		newVal := int16(m.readVariable(v, true)) - 1
		m.writeVariable(v, uint16(newVal), true)
		m.handleBranch(newVal < int16(b.Value(m)))
	case 5: // inc_chk
		v := uint8(a.Value(m))
		newVal := int16(m.readVariable(v, true)) + 1
		m.writeVariable(v, uint16(newVal), true)
		m.handleBranch(newVal > int16(b.Value(m)))
	case 6: // jin
		m.handleBranch(m.objects.Get(a.Value(m)).Parent() == b.Value(m))
	case 7: // test
		bitmap, flags := a.Value(m), b.Value(m)
		m.handleBranch(bitmap&flags == flags)
	case 8: // or
		m.storeResult(a.Value(m) | b.Value(m))
	case 9: // and
		m.storeResult(a.Value(m) & b.Value(m))
	case 10: // test_attr
		m.handleBranch(m.objects.Get(a.Value(m)).TestAttribute(uint8(b.Value(m))))
	case 11: // set_attr
		m.objects.Get(a.Value(m)).SetAttribute(uint8(b.Value(m)))
	case 12: // clear_attr
		m.objects.Get(a.Value(m)).ClearAttribute(uint8(b.Value(m)))
	case 13: // store — note the target variable is itself an operand, not a
		// trailing store byte.
		m.writeVariable(uint8(a.Value(m)), b.Value(m), true)
	case 14: // insert_obj
		zobjectMove(m, a.Value(m), b.Value(m))
	case 15: // loadw
		m.storeResult(m.core.ReadHalfWord(uint32(a.Value(m)) + 2*uint32(b.Value(m))))
	case 16: // loadb
		m.storeResult(uint16(m.core.ReadByte(uint32(a.Value(m)) + uint32(b.Value(m)))))
	case 17: // get_prop
		m.storeResult(m.objects.Get(a.Value(m)).Properties(m.objects).Get(uint8(b.Value(m))))
	case 18: // get_prop_addr
		m.storeResult(uint16(m.objects.Get(a.Value(m)).Properties(m.objects).Addr(uint8(b.Value(m)))))
	case 19: // get_next_prop
		m.storeResult(uint16(m.objects.Get(a.Value(m)).Properties(m.objects).Next(uint8(b.Value(m)))))
	case 20: // add
		m.storeResult(a.Value(m) + b.Value(m))
	case 21: // sub
		m.storeResult(a.Value(m) - b.Value(m))
	case 22: // mul
		m.storeResult(a.Value(m) * b.Value(m))
	case 23: // div
		den := int16(b.Value(m))
		if den == 0 {
			panic(&arithmeticFaultError{Detail: "division by zero"})
		}
		m.storeResult(uint16(int16(a.Value(m)) / den))
	case 24: // mod
		den := int16(b.Value(m))
		if den == 0 {
			panic(&arithmeticFaultError{Detail: "modulo by zero"})
		}
		m.storeResult(uint16(int16(a.Value(m)) % den))
	default:
		panic(&illegalOpcodeError{Detail: "2OP:" + strconv.Itoa(int(inst.number))})
	}
}

func (m *Machine) stepVar(pres Presentation, inst instruction, pc uint32) {
	ops := inst.operands
	switch inst.number {
	case 0: // call
		m.call(ops[0].Value(m), ops[1:])
	case 1: // storew
		m.core.WriteHalfWord(uint32(ops[0].Value(m))+2*uint32(ops[1].Value(m)), ops[2].Value(m))
	case 2: // storeb
		m.core.WriteByte(uint32(ops[0].Value(m))+uint32(ops[1].Value(m)), uint8(ops[2].Value(m)))
	case 3: // put_prop
		m.objects.Get(ops[0].Value(m)).Properties(m.objects).Write(uint8(ops[1].Value(m)), ops[2].Value(m))
	case 4: // sread
		m.sread(pres, uint32(ops[0].Value(m)), uint32(ops[1].Value(m)))
	case 5: // print_char
		m.appendText(pres, string(rune(ops[0].Value(m))))
	case 6: // print_num
		m.appendText(pres, strconv.Itoa(int(int16(ops[0].Value(m)))))
	case 7: // random
		n := int16(ops[0].Value(m))
		var result uint16
		if n <= 0 {
			m.rng.Seed(n)
		} else {
			result = m.rng.Next(n)
		}
		m.storeResult(result)
	case 8: // push
		m.stack.Push(ops[0].Value(m))
	case 9: // pull — the destination variable is the operand itself
		m.writeVariable(uint8(ops[0].Value(m)), m.stack.Pop(), true)
	case 10: // split_window — only the lower (scrolling) window is modeled; no-op.
	case 11: // set_window
		// Only the lower (scrolling) window is modeled; switching to the
		// upper window is a no-op.
	case 19: // output_stream
		stream := int16(ops[0].Value(m))
		switch stream {
		case 1, -1:
			m.screenOn = stream > 0
		case 2, -2:
			m.transcriptOn = stream > 0
			m.core.SetTranscripting(m.transcriptOn)
		}
	case 20: // input_stream — redirecting input from a command script isn't
		// supported; absorb the operand and continue reading from the
		// presentation layer.
	case 21: // sound_effect — no audio output; absorb the operands.
	default:
		panic(&illegalOpcodeError{Detail: "VAR:" + strconv.Itoa(int(inst.number))})
	}
}

// restart re-parses the story's original image, resetting every data
// structure Machine caches a view over, and jumps to the first instruction.
// The reload is synchronous, so StateRestarting is only ever observable by a
// caller inspecting State() concurrently — it never outlives this call.
func (m *Machine) restart(pres Presentation) {
	m.state = StateRestarting
	m.core.Reset()
	m.objects = zobjectReload(m.core)
	m.dict = dictionaryReload(m.core)
	m.globals = m.core.NewGlobals()
	m.stack = newOutermostStack()
	m.pc = uint32(m.core.FirstInstruction)
	pres.Clear()
	m.state = StateRunning
}

// verifyChecksum sums every byte from the end of the header to the declared
// file length and compares it to the header's checksum field.
func (m *Machine) verifyChecksum() bool {
	return m.core.VerifyChecksum()
}

type arithmeticFaultError struct{ Detail string }

func (e *arithmeticFaultError) Error() string { return "arithmetic fault: " + e.Detail }
