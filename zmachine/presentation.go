package zmachine

// Presentation is the narrow boundary between the interpreter and whatever
// renders it: a terminal, a test harness, a batch runner. The interpreter
// never assumes anything about timing or rendering beyond these six calls,
// and Step itself never blocks waiting on input — TryReadLine is polled, not
// awaited, so a caller driving many machines (or none at all, in a batch
// harness) never has to dedicate a goroutine to one that's merely suspended.
type Presentation interface {
	// Clear erases the main output area.
	Clear()
	// PrintMain appends text to the scrolling main window.
	PrintMain(text string)
	// PrintStatus redraws the status line's two halves (v1-3 only: location
	// name and either score/moves or a clock, depending on the header's flag).
	PrintStatus(left, right string)
	// TryReadLine reports whether a line of input is ready yet. While it
	// isn't (ok is false), the machine stays suspended in StateTakingInput
	// and Step is a no-op — the caller decides how hard to poll, including
	// not at all until it has something to offer. A presentation that always
	// has its own dedicated goroutine to spend is free to block here instead;
	// the machine itself never does.
	TryReadLine() (line string, ok bool)
	// Quit is called once, when the story executes the quit opcode.
	Quit()
	// RunLoop hands control to the presentation layer, which calls step
	// repeatedly (as fast or as slow as it likes) until step returns false.
	RunLoop(step func() bool)
}

// MachineState is the interpreter's run state. v1-3 stories only ever
// suspend on line input (sread) — there is no read_char to add a second
// input-state variant.
type MachineState int

const (
	// StateRunning executes instructions normally.
	StateRunning MachineState = iota
	// StateTakingInput means a pending read continuation is waiting on
	// TryReadLine; Step polls it instead of decoding a new instruction.
	StateTakingInput
	// StateRestarting is the brief, synchronous window while the restart
	// opcode reloads the original image and resets every cached view over it.
	StateRestarting
	// StateStopped means quit has executed; Step no longer advances.
	StateStopped
)
