package tools

import (
	"context"
	"io"
	"strings"
	"sync"
)

// FakeResult is what FakeRunner answers for a matching command.
type FakeResult struct {
	Stdout string
	Stderr string
	Code   int
	Err    error
}

// FakeRunner records every command and answers from Results. The longest key
// contained in "name arg1 arg2 ..." wins.
type FakeRunner struct {
	Results map[string]FakeResult

	mu    sync.Mutex
	Calls []Cmd
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Results: make(map[string]FakeResult)}
}

func (f *FakeRunner) On(match string, result FakeResult) *FakeRunner {
	f.Results[match] = result
	return f
}

func (f *FakeRunner) Run(ctx context.Context, cmd Cmd) (int, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	f.mu.Unlock()

	line := cmd.String()
	best := ""
	found := false
	for match := range f.Results {
		if strings.Contains(line, match) && len(match) >= len(best) {
			best = match
			found = true
		}
	}
	if !found {
		return 0, nil
	}

	result := f.Results[best]
	if cmd.Stdout != nil && result.Stdout != "" {
		_, _ = io.WriteString(cmd.Stdout, result.Stdout)
	}
	if cmd.Stderr != nil && result.Stderr != "" {
		_, _ = io.WriteString(cmd.Stderr, result.Stderr)
	}
	if result.Err != nil {
		return result.Code, result.Err
	}
	if result.Code != 0 {
		return result.Code, &ExitError{Cmd: cmd.Name, Code: result.Code}
	}
	return 0, nil
}

// CallLines returns the recorded commands as strings.
func (f *FakeRunner) CallLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.String())
	}
	return lines
}
