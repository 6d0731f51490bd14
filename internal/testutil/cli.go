package testutil

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

var (
	// binaryPath caches the path to the built sulu binary.
	binaryPath string
	buildMu    sync.Mutex
	buildErr   error
)

// CLIResult represents the result of running a CLI command.
type CLIResult struct {
	OK       bool
	Data     map[string]any
	Error    *CLIError
	Meta     *CLIMeta
	RawJSON  string
	ExitCode int
}

// CLIError represents a structured error from the CLI.
type CLIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// CLIMeta contains metadata from the response.
type CLIMeta struct {
	Count       int   `json:"count,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty"`
}

// CLIWorkspace is a temporary directory holding a config file and a
// content database for running the sulu binary against.
type CLIWorkspace struct {
	Dir        string
	ConfigPath string
	DBPath     string
	t          *testing.T
}

// NewCLIWorkspace creates an empty workspace. The config file and the
// database do not exist until WriteConfig or `sulu init` creates them.
func NewCLIWorkspace(t *testing.T) *CLIWorkspace {
	t.Helper()
	dir := t.TempDir()
	return &CLIWorkspace{
		Dir:        dir,
		ConfigPath: filepath.Join(dir, "config.toml"),
		DBPath:     filepath.Join(dir, "content.db"),
		t:          t,
	}
}

// WriteFile writes a file relative to the workspace and returns its path.
func (w *CLIWorkspace) WriteFile(relPath, content string) string {
	w.t.Helper()
	full := filepath.Join(w.Dir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		w.t.Fatalf("failed to create directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		w.t.Fatalf("failed to write %s: %v", relPath, err)
	}
	return full
}

// WriteConfig writes the workspace config file.
func (w *CLIWorkspace) WriteConfig(content string) *CLIWorkspace {
	w.t.Helper()
	w.WriteFile(filepath.Base(w.ConfigPath), content)
	return w
}

// Path returns the absolute path of a workspace file.
func (w *CLIWorkspace) Path(relPath string) string {
	return filepath.Join(w.Dir, relPath)
}

// BuildCLI builds the sulu binary once per test process and returns its path.
func BuildCLI(t *testing.T) string {
	t.Helper()

	buildMu.Lock()
	defer buildMu.Unlock()

	if binaryPath != "" {
		if _, err := os.Stat(binaryPath); err == nil {
			return binaryPath
		}
		binaryPath = ""
		buildErr = nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		buildErr = err
	} else {
		tmpDir, err := os.MkdirTemp("", "sulu-cli-bin-*")
		if err != nil {
			buildErr = err
		} else {
			binName := "sulu"
			if runtime.GOOS == "windows" {
				binName = "sulu.exe"
			}
			binaryPath = filepath.Join(tmpDir, binName)
			cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/sulu")
			cmd.Dir = projectRoot
			if output, err := cmd.CombinedOutput(); err != nil {
				buildErr = &BuildError{Output: string(output), Err: err}
				binaryPath = ""
			}
		}
	}

	if buildErr != nil {
		t.Fatalf("failed to build CLI: %v", buildErr)
	}
	return binaryPath
}

// BuildError represents an error building the CLI binary.
type BuildError struct {
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	return e.Err.Error() + "\n" + e.Output
}

// findProjectRoot walks up the directory tree to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// RunCLI runs sulu against the workspace with --json and parses the envelope.
func (w *CLIWorkspace) RunCLI(args ...string) *CLIResult {
	w.t.Helper()
	binary := BuildCLI(w.t)

	cmdArgs := append([]string{"--config", w.ConfigPath, "--db", w.DBPath, "--json"}, args...)
	cmd := exec.Command(binary, cmdArgs...)
	cmd.Dir = w.Dir
	output, err := cmd.Output()

	result := &CLIResult{RawJSON: string(output)}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	var resp struct {
		OK    bool           `json:"ok"`
		Data  map[string]any `json:"data,omitempty"`
		Error *CLIError      `json:"error,omitempty"`
		Meta  *CLIMeta       `json:"meta,omitempty"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(output, &resp); err != nil {
		result.Error = &CLIError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse JSON output: " + err.Error(),
		}
		return result
	}

	result.OK = resp.OK
	result.Data = resp.Data
	result.Error = resp.Error
	result.Meta = resp.Meta
	return result
}
