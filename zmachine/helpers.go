package zmachine

import (
	"github.com/wry-frost/zm3/callstack"
	"github.com/wry-frost/zm3/dictionary"
	"github.com/wry-frost/zm3/zcore"
	"github.com/wry-frost/zm3/zobject"
)

// These thin wrappers exist so dispatch.go reads as a flat opcode table
// without every case needing to know zobject's Table/Object split or
// callstack's construction details.

func zobjectRemove(m *Machine, id uint16) {
	zobject.Remove(m.objects, id)
}

func zobjectMove(m *Machine, child, parent uint16) {
	zobject.Insert(m.objects, child, parent)
}

func propertyLen(core *zcore.Core, dataAddr uint32) uint8 {
	return zobject.Len(core, dataAddr)
}

func zobjectReload(core *zcore.Core) zobject.Table {
	return zobject.NewTable(core, core.ObjectTableBase)
}

func dictionaryReload(core *zcore.Core) dictionary.Dictionary {
	return dictionary.Parse(core, uint32(core.DictionaryBase))
}

func newOutermostStack() *callstack.Stack {
	s := callstack.NewStack()
	s.EnterFrame(0, 0, nil)
	return s
}
