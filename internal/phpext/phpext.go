// Package phpext reports which PHP extensions the local PHP CLI has
// loaded, by parsing the output of "php -m".
package phpext

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/magerun-tools/syscheck/internal/telemetry"
)

// DefaultBinary is the PHP CLI looked up on PATH.
const DefaultBinary = "php"

// CommandRunner executes a command and returns its stdout bytes.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommandRunner returns a CommandRunner that uses os/exec to run
// commands. Stderr is captured for error diagnostics and every invocation
// is recorded with telemetry.
func ExecCommandRunner() CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		start := time.Now()
		cmd := exec.CommandContext(ctx, name, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		telemetry.RecordCommand(ctx, name, args, time.Since(start), err, out, stderr.String())
		if err != nil && stderr.Len() > 0 {
			return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return out, err
	}
}

// Registry is a set of loaded extension names. Lookups ignore case.
type Registry struct {
	loaded map[string]bool
	err    error
}

// New returns a Registry holding the given extension names.
func New(names ...string) *Registry {
	r := &Registry{loaded: make(map[string]bool)}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			r.loaded[strings.ToLower(n)] = true
		}
	}
	return r
}

// Parse reads "php -m" output. Section headers such as "[PHP Modules]"
// and blank lines are skipped.
func Parse(out []byte) *Registry {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		names = append(names, line)
	}
	return New(names...)
}

// Load runs "<binary> -m" with runner and parses the result. When the
// command fails, the returned Registry is empty and remembers the error,
// so checks can report it; the error is also returned.
func Load(ctx context.Context, runner CommandRunner, binary string) (*Registry, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	out, err := runner(ctx, binary, "-m")
	if err != nil {
		err = fmt.Errorf("listing PHP modules with %s -m: %w", binary, err)
		r := New()
		r.err = err
		return r, err
	}
	return Parse(out), nil
}

// IsLoaded reports whether name is loaded, ignoring case.
func (r *Registry) IsLoaded(name string) bool {
	return r.loaded[strings.ToLower(strings.TrimSpace(name))]
}

// LoadErr returns the error that prevented listing extensions, if any.
func (r *Registry) LoadErr() error { return r.err }
