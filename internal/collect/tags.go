package collect

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TagResolver turns a build sha into a readable tag.
type TagResolver interface {
	Resolve(ctx context.Context, sha string) string
}

// ResolverFunc adapts a function to TagResolver.
type ResolverFunc func(ctx context.Context, sha string) string

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, sha string) string {
	return f(ctx, sha)
}

// GitDescriber resolves tags with git describe.
// Results are cached per sha; the sha itself is used when describe fails.
type GitDescriber struct {
	// Dir is the repository to run git in (current directory if empty)
	Dir    string
	Logger *slog.Logger

	cache map[string]string
}

// Resolve returns `git describe <sha>` or sha on failure.
func (g *GitDescriber) Resolve(ctx context.Context, sha string) string {
	if tag, ok := g.cache[sha]; ok {
		return tag
	}
	if g.cache == nil {
		g.cache = make(map[string]string)
	}

	tag := sha
	cmd := exec.CommandContext(ctx, "git", "describe", sha) //nolint:gosec // G204: sha comes from a file name, passed as one argument
	cmd.Dir = g.Dir
	out, err := cmd.Output()
	if described := strings.TrimSpace(string(out)); err == nil && described != "" {
		tag = described
	} else if g.Logger != nil {
		g.Logger.Debug("git describe failed, using sha", "sha", sha, "error", err)
	}

	g.cache[sha] = tag
	return tag
}

// machineIDFiles are read in order by MachineID.
var machineIDFiles = []string{"/var/lib/dbus/machine-id", "/etc/machine-id"}

// UnknownMachine is the machine id used when none can be read.
const UnknownMachine = "unknown"

// MachineID returns the first line of the system machine-id file.
func MachineID() string {
	for _, path := range machineIDFiles {
		f, err := os.Open(path) //nolint:gosec // G304: fixed system paths
		if err != nil {
			continue
		}
		sc := bufio.NewScanner(f)
		line := ""
		if sc.Scan() {
			line = strings.TrimSpace(sc.Text())
		}
		_ = f.Close()
		if line != "" {
			return line
		}
	}
	return UnknownMachine
}

// DefaultRawDir is where per-build raw files live for this machine.
func DefaultRawDir(home string) string {
	return filepath.Join(home, ".benchgraph", "benchmarks", MachineID())
}
