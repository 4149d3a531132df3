package git

import (
	"bytes"
	"os/exec"
	"strings"
)

// CommandRunner abstracts shell command execution so callers can substitute
// a mock in tests. workDir may be empty to run in the current directory.
type CommandRunner interface {
	Run(workDir string, name string, args ...string) (string, error)
}

// CommandError wraps a failed command with its captured output.
type CommandError struct {
	Command string
	Args    []string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "command failed"
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns trimmed stdout.
// On failure the combined output is attached to the returned CommandError.
func (r *ExecRunner) Run(workDir string, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		return output, &CommandError{
			Command: name,
			Args:    args,
			Output:  output,
			Err:     err,
		}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// =============================================================================
// MockRunner
// =============================================================================

// MockResponse is a canned response for MockRunner.
type MockResponse struct {
	Stdout string
	Err    error
}

// Call records a single invocation of MockRunner.Run.
type Call struct {
	WorkDir string
	Command string
	Args    []string
}

// MockRunner is a CommandRunner for tests. Responses are matched in order of
// specificity: exact command+args, command name only, wildcard ("*"), then
// DefaultResponse.
type MockRunner struct {
	Responses       map[string]MockResponse
	DefaultResponse MockResponse
	Calls           []Call
}

// NewMockRunner creates a mock runner with an initialized response map.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]MockResponse),
	}
}

// responseSetter allows fluent response registration.
type responseSetter struct {
	runner *MockRunner
	key    string
}

// Return sets the response for the registered command.
func (s responseSetter) Return(stdout string, err error) {
	s.runner.Responses[s.key] = MockResponse{Stdout: stdout, Err: err}
}

// OnCommand registers a response for an exact command and argument list.
func (m *MockRunner) OnCommand(name string, args ...string) responseSetter {
	return responseSetter{runner: m, key: commandKey(name, args)}
}

// OnAnyCommand registers a wildcard response used when nothing else matches.
func (m *MockRunner) OnAnyCommand() responseSetter {
	return responseSetter{runner: m, key: "*"}
}

// Run records the call and returns the best-matching canned response.
func (m *MockRunner) Run(workDir string, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, Call{WorkDir: workDir, Command: name, Args: args})

	if resp, ok := m.Responses[commandKey(name, args)]; ok {
		return resp.Stdout, resp.Err
	}
	if resp, ok := m.Responses[name]; ok {
		return resp.Stdout, resp.Err
	}
	if resp, ok := m.Responses["*"]; ok {
		return resp.Stdout, resp.Err
	}
	return m.DefaultResponse.Stdout, m.DefaultResponse.Err
}

// WasCalled reports whether a command with the given argument prefix ran.
func (m *MockRunner) WasCalled(name string, args ...string) bool {
	for _, call := range m.Calls {
		if call.Command != name {
			continue
		}
		if len(args) == 0 {
			return true
		}
		if len(call.Args) >= len(args) && argsMatch(call.Args[:len(args)], args) {
			return true
		}
	}
	return false
}

// CallCount returns how many times the named command ran.
func (m *MockRunner) CallCount(name string) int {
	count := 0
	for _, call := range m.Calls {
		if call.Command == name {
			count++
		}
	}
	return count
}

func commandKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

func argsMatch(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}
