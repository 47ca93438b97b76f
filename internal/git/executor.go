// Package git creates and detects the repositories that version each
// identity's storage area, by executing the git binary.
package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrGitNotFound indicates the git binary could not be located.
	ErrGitNotFound = errors.New("git executable not found")

	// ErrPermissionDenied indicates git could not write the repository.
	ErrPermissionDenied = errors.New("permission denied")
)

// Repository creates and detects repositories.
type Repository interface {
	InitRepository(path string) error
	IsRepository(path string) bool
}

// Compile-time check that Executor implements Repository.
var _ Repository = (*Executor)(nil)

// Executor runs git commands.
type Executor struct {
	binary string
}

// NewExecutor creates an Executor for the given binary; empty means "git".
func NewExecutor(binary string) *Executor {
	if binary == "" {
		binary = "git"
	}
	return &Executor{binary: binary}
}

// Available reports whether the executor's binary can be found.
func (e *Executor) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// InitRepository creates a repository rooted at path. The directory must
// already exist.
func (e *Executor) InitRepository(path string) error {
	_, err := e.run(path, "init", "--quiet")
	return err
}

// IsRepository reports whether path is the top level of a repository. A
// directory nested inside another repository does not count.
func (e *Executor) IsRepository(path string) bool {
	top, err := e.run(path, "rev-parse", "--show-toplevel")
	if err != nil || top == "" {
		return false
	}
	want, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	got, err := filepath.EvalSymlinks(filepath.FromSlash(top))
	if err != nil {
		return false
	}
	return filepath.Clean(got) == filepath.Clean(want)
}

func (e *Executor) run(dir string, args ...string) (string, error) {
	//nolint:gosec // G204: binary comes from configuration, args are fixed
	cmd := exec.Command(e.binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrGitNotFound, e.binary)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", parseGitError(msg, err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// parseGitError converts git stderr messages to sentinel errors.
func parseGitError(stderr string, originalErr error) error {
	lower := strings.ToLower(stderr)

	if strings.Contains(lower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}
	if strings.Contains(lower, "permission denied") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, stderr)
	}
	return fmt.Errorf("git error: %s: %w", stderr, originalErr)
}
