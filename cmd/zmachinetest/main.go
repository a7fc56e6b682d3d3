// Command zmachinetest is a batch regression runner: it loads every
// story file in a directory, steps each one up to its first input
// prompt (or natural exit), and records what it printed. Adapted from
// the teacher's cmd/gametest, which drove the old channel-based
// zmachine.LoadRom/Run API; this version drives the synchronous
// zvm.New/Step façade instead, so no goroutines or timeouts are needed
// -- a runaway story is bounded by a step count, not a wall clock.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haldane-ifs/zengine/internal/zvm"
)

// TestResult captures the outcome of running a single game to its
// first input prompt.
type TestResult struct {
	Filename     string   `json:"filename"`
	Version      uint8    `json:"version"`
	Success      bool     `json:"success"`
	FirstScreen  []string `json:"first_screen,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// maxSteps bounds how many Step calls a single game gets before it's
// declared hung; a real story reaches its first input prompt within a
// few hundred instructions.
const maxSteps = 200000

func main() {
	storiesDir := flag.String("stories", "stories", "directory containing Z-machine story files")
	outputDir := flag.String("output", "testdata", "directory to write results to")
	singleGame := flag.String("game", "", "test a single game file instead of all games")
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
		fmt.Println("Run 'go run ./cmd/storyfetch' first to download games.")
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
		for v := '1'; v <= '8'; v++ {
			if strings.HasSuffix(name, ".z"+string(v)) {
				games = append(games, filepath.Join(storiesDir, name))
				break
			}
		}
	}

	if len(games) == 0 {
		fmt.Printf("No game files found in %s\n", storiesDir)
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
	for _, r := range results {
		if r.Success {
			passed++
		} else {
			failed++
		}
	}
	fmt.Printf("\n=== SUMMARY ===\nPassed: %d\nFailed: %d\nTotal: %d\n", passed, failed, len(results))

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
	if result.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", result.ErrorMessage)
	}
	fmt.Printf("First Screen:\n%s\n", strings.Join(result.FirstScreen, "\n"))
}

func runGameTest(gamePath string) (result TestResult) {
	filename := filepath.Base(gamePath)
	result.Filename = filename

	storyBytes, err := os.ReadFile(gamePath)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to read file: %v", err)
		return
	}
	if len(storyBytes) < 64 {
		result.ErrorMessage = "file too small to be a valid Z-machine file"
		return
	}
	result.Version = storyBytes[0]

	vm := zvm.New(storyBytes, zvm.Options{StatusCapable: true, ScreenCols: 80, ScreenRows: 24})

	var screen strings.Builder
	var resume zvm.Resume

	for step := 0; step < maxSteps; step++ {
		switch r := vm.Step(resume).(type) {
		case zvm.Output:
			screen.WriteString(r.Text)
			resume = zvm.Resume{}
		case zvm.StatusLine:
			resume = zvm.Resume{}
		case zvm.NeedLine, zvm.NeedChar:
			result.Success = true
			result.FirstScreen = strings.Split(screen.String(), "\n")
			return
		case zvm.Save:
			resume = zvm.Resume{SaveOK: false}
		case zvm.Restore:
			resume = zvm.Resume{RestoreData: nil}
		case zvm.Done:
			if r.Err != nil {
				result.ErrorMessage = r.Err.Error()
				return
			}
			result.Success = true
			result.FirstScreen = strings.Split(screen.String(), "\n")
			return
		}
	}

	result.ErrorMessage = fmt.Sprintf("exceeded %d steps without reaching an input prompt", maxSteps)
	return
}
