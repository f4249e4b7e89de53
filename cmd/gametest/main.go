package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/wry-frost/zm3/zcore"
	"github.com/wry-frost/zm3/zmachine"
)

// TestResult captures the outcome of running a single story up to its first
// input prompt.
type TestResult struct {
	Filename     string   `json:"filename"`
	Version      uint8    `json:"version"`
	Success      bool     `json:"success"`
	PanicMessage string   `json:"panic_message,omitempty"`
	StackTrace   string   `json:"stack_trace,omitempty"`
	FirstScreen  []string `json:"first_screen,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

func main() {
	storiesDir := flag.String("stories", "stories", "Directory containing Z-machine story files")
	outputDir := flag.String("output", "testdata", "Directory to write results to")
	singleGame := flag.String("game", "", "Test a single game file instead of all games")
	flag.Parse()

	if *singleGame != "" {
		runSingleGame(*singleGame)
		return
	}

	runAllGames(*storiesDir, *outputDir)
}

func runAllGames(storiesDir, outputDir string) {
	if _, err := os.Stat(storiesDir); os.IsNotExist(err) {
		fmt.Printf("Stories directory not found: %s\n", storiesDir)
		fmt.Println("Run 'go run ./cmd/zm3fetch' first to download games.")
		os.Exit(1)
	}

	entries, err := os.ReadDir(storiesDir)
	if err != nil {
		fmt.Printf("Failed to read stories directory: %v\n", err)
		os.Exit(1)
	}

	var games []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".z1") || strings.HasSuffix(name, ".z2") || strings.HasSuffix(name, ".z3") {
			games = append(games, filepath.Join(storiesDir, name))
		}
	}

	if len(games) == 0 {
		fmt.Printf("No v1-3 game files found in %s\n", storiesDir)
		os.Exit(1)
	}

	fmt.Printf("Found %d games to test\n", len(games))

	var results []TestResult
	for i, gamePath := range games {
		filename := filepath.Base(gamePath)
		result := runGameTest(gamePath)
		results = append(results, result)

		status := "PASS"
		if !result.Success {
			status = "FAIL"
		}
		fmt.Printf("[%d/%d] %s %s\n", i+1, len(games), status, filename)
		if !result.Success && result.ErrorMessage != "" {
			fmt.Printf("        Error: %s\n", result.ErrorMessage)
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	resultsPath := filepath.Join(outputDir, "test_results.json")
	resultsJSON, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(resultsPath, resultsJSON, 0644); err != nil {
		fmt.Printf("Failed to write results: %v\n", err)
	} else {
		fmt.Printf("\nResults written to %s\n", resultsPath)
	}

	passed, failed := 0, 0
	byVersion := map[uint8]struct{ passed, failed int }{}
	for _, r := range results {
		entry := byVersion[r.Version]
		if r.Success {
			passed++
			entry.passed++
		} else {
			failed++
			entry.failed++
		}
		byVersion[r.Version] = entry
	}
	fmt.Printf("\n=== SUMMARY ===\nPassed: %d\nFailed: %d\nTotal: %d\n", passed, failed, len(results))
	for _, v := range [3]uint8{1, 2, 3} {
		if entry, ok := byVersion[v]; ok {
			fmt.Printf("  v%d: %d passed, %d failed\n", v, entry.passed, entry.failed)
		}
	}

	screenshotsPath := filepath.Join(outputDir, "screenshots.txt")
	var screenshots strings.Builder
	for _, r := range results {
		fmt.Fprintf(&screenshots, "=== %s (v%d) ===\n", r.Filename, r.Version)
		if r.Success {
			for _, line := range r.FirstScreen {
				screenshots.WriteString(line + "\n")
			}
		} else {
			fmt.Fprintf(&screenshots, "ERROR: %s\n", r.ErrorMessage)
			if r.PanicMessage != "" {
				fmt.Fprintf(&screenshots, "PANIC: %s\n", r.PanicMessage)
			}
		}
		screenshots.WriteString("\n")
	}
	os.WriteFile(screenshotsPath, []byte(screenshots.String()), 0644)
}

func runSingleGame(gamePath string) {
	if _, err := os.Stat(gamePath); os.IsNotExist(err) {
		fmt.Printf("Game file not found: %s\n", gamePath)
		os.Exit(1)
	}

	result := runGameTest(gamePath)

	fmt.Printf("Game: %s\n", result.Filename)
	fmt.Printf("Version: %d\n", result.Version)
	fmt.Printf("Success: %v\n", result.Success)

	if result.PanicMessage != "" {
		fmt.Printf("Panic: %s\n", result.PanicMessage)
		fmt.Printf("Stack: %s\n", result.StackTrace)
	}
	if result.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", result.ErrorMessage)
	}

	fmt.Printf("First Screen:\n%s\n", strings.Join(result.FirstScreen, "\n"))
}

// maxStepsBeforeFirstInput guards against a story that never reaches a read
// prompt (an infinite loop, or a bug in this interpreter) spinning forever.
const maxStepsBeforeFirstInput = 2_000_000

// firstScreenReached unwinds runGameTest's Run call the moment the story
// blocks on its first line read, without having to thread a stop signal
// through every opcode handler.
type firstScreenReached struct{}

// stepLimitExceeded is the same trick for a story that runs away before ever
// reading input.
type stepLimitExceeded struct{}

// captureProbe is a Presentation that records output and stops the machine
// dead at the first read_line instead of blocking on real terminal input.
type captureProbe struct {
	buf   strings.Builder
	steps int
}

func (p *captureProbe) Clear()                       { p.buf.Reset() }
func (p *captureProbe) PrintMain(text string)         { p.buf.WriteString(text) }
func (p *captureProbe) PrintStatus(left, right string) {}
func (p *captureProbe) Quit()                         { panic(firstScreenReached{}) }
func (p *captureProbe) TryReadLine() (string, bool)   { panic(firstScreenReached{}) }

func (p *captureProbe) RunLoop(step func() bool) {
	for step() {
		p.steps++
		if p.steps > maxStepsBeforeFirstInput {
			panic(stepLimitExceeded{})
		}
	}
}

func runGameTest(gamePath string) (result TestResult) {
	filename := filepath.Base(gamePath)
	result.Filename = filename

	var probe captureProbe
	var machine *zmachine.Machine

	defer func() {
		r := recover()
		switch r.(type) {
		case nil:
			return
		case firstScreenReached:
			result.Success = true
			result.FirstScreen = strings.Split(probe.buf.String(), "\n")
			return
		case stepLimitExceeded:
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("exceeded %d instructions without reaching a read prompt", maxStepsBeforeFirstInput)
			return
		}
		result.Success = false
		if machine != nil {
			fault := machine.Recover(r)
			result.ErrorMessage = fault.Error()
		}
		result.PanicMessage = fmt.Sprintf("%v", r)
		result.StackTrace = string(debug.Stack())
	}()

	storyBytes, err := os.ReadFile(gamePath)
	if err != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Failed to read file: %v", err)
		return
	}
	if len(storyBytes) < 64 {
		result.Success = false
		result.ErrorMessage = "File too small to be a valid Z-machine file"
		return
	}
	result.Version = storyBytes[0]

	core, err := zcore.LoadCore(storyBytes)
	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		return
	}

	machine = zmachine.New(core, time.Now().UnixNano())
	machine.Run(&probe)

	result.Success = true
	result.FirstScreen = strings.Split(probe.buf.String(), "\n")
	return
}
