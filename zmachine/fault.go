package zmachine

import (
	"fmt"

	"github.com/wry-frost/zm3/callstack"
	"github.com/wry-frost/zm3/zobject"
)

// FaultKind classifies why the interpreter stopped executing instructions.
type FaultKind int

const (
	// MalformedImage is a story file the header rejects outright (see zcore.LoadError).
	MalformedImage FaultKind = iota
	// IllegalOpcode is an opcode this interpreter does not implement, including any
	// v4+ extended-form opcode — the ceiling this interpreter was built to.
	IllegalOpcode
	// StackFault is a call-stack or local-variable addressing error (see callstack.StackError).
	StackFault
	// PropertyFault is a bad property-table access (see zobject.PropertyError).
	PropertyFault
	// ArithmeticFault covers division and modulo by zero.
	ArithmeticFault
)

func (k FaultKind) String() string {
	switch k {
	case MalformedImage:
		return "malformed image"
	case IllegalOpcode:
		return "illegal opcode"
	case StackFault:
		return "stack fault"
	case PropertyFault:
		return "property fault"
	case ArithmeticFault:
		return "arithmetic fault"
	default:
		return "unknown fault"
	}
}

// Fault is the error the interpreter's run loop surfaces to its caller when a
// step panics: the raw cause, a classification, the program counter at the
// time of the fault, and a short trail of recently executed opcode bytes
// (oldest first) to help diagnose where things went wrong.
type Fault struct {
	Kind    FaultKind
	Cause   error
	PC      uint32
	Opcodes []uint8
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at PC %#05x: %v", f.Kind, f.PC, f.Cause)
}

func (f *Fault) Unwrap() error { return f.Cause }

// classify maps a recovered panic value to a FaultKind, falling through to
// IllegalOpcode for anything this interpreter didn't itself raise (e.g. a
// slice-index-out-of-range from a malformed address).
func classify(cause error) FaultKind {
	switch cause.(type) {
	case *callstack.StackError:
		return StackFault
	case *zobject.PropertyError:
		return PropertyFault
	case *arithmeticFaultError:
		return ArithmeticFault
	case *illegalOpcodeError:
		return IllegalOpcode
	default:
		return IllegalOpcode
	}
}

// Recover turns a panic value captured by a deferred recover() into a Fault,
// tagging it with the machine's current PC and recent-opcode trail. Callers
// that want Run to never panic past their own stack frame should defer this
// around their call to Run.
func (m *Machine) Recover(r any) *Fault {
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	opcodes := make([]uint8, len(m.recentOpcodes))
	copy(opcodes, m.recentOpcodes)
	return &Fault{
		Kind:    classify(cause),
		Cause:   cause,
		PC:      m.pc,
		Opcodes: opcodes,
	}
}
