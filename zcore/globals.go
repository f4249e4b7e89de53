package zcore

// Globals is indexed access to the 240-entry, 16-bit global variable table that
// begins at the header's global-variables pointer.
type Globals struct {
	core *Core
	base uint32
}

// NewGlobals binds a Globals view to the table the header points at.
func (c *Core) NewGlobals() Globals {
	return Globals{core: c, base: uint32(c.GlobalVariableBase)}
}

const globalCount = 240

// Get reads global variable i (0-based, i in [0,239]).
func (g Globals) Get(i uint8) uint16 {
	return g.core.ReadHalfWord(g.base + 2*uint32(i))
}

// Set writes global variable i (0-based, i in [0,239]).
func (g Globals) Set(i uint8, value uint16) {
	g.core.WriteHalfWord(g.base+2*uint32(i), value)
}
