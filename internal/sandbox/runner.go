// Package sandbox runs untrusted commands under nsjail.
//
// The runner shells out to the nsjail binary in single-shot mode with
// the workspace bind-mounted read-write at /app and the system runtime
// directories read-only. Timeouts are enforced twice: nsjail's own
// --time_limit, and an outer wall-clock fence one second wider that
// kills the process group if nsjail itself wedges.
package sandbox

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeoutExitCode is nsjail's documented exit status for a job killed
// by its time limit.
const timeoutExitCode = 1010

// fenceSlack is how much wider the outer fence is than the sandbox's
// own time limit.
const fenceSlack = time.Second

const defaultOutputMaxBytes int64 = 10 * 1024 * 1024

// defaultReadOnlyMounts are the host directories exposed read-only so
// interpreters and compilers resolve inside the jail.
var defaultReadOnlyMounts = []string{"/usr/bin", "/usr/lib", "/lib", "/lib64"}

// Kind classifies how a sandboxed run ended.
type Kind int

const (
	// KindCompleted means the command ran to completion; ExitCode and
	// the captured streams are meaningful.
	KindCompleted Kind = iota
	// KindTimeout means the wall-clock limit was hit, either reported
	// by the sandbox or enforced by the outer fence.
	KindTimeout
	// KindMemoryExceeded means the kill could be attributed to the
	// address-space limit.
	KindMemoryExceeded
)

func (k Kind) String() string {
	switch k {
	case KindCompleted:
		return "completed"
	case KindTimeout:
		return "timeout"
	case KindMemoryExceeded:
		return "memory_exceeded"
	default:
		return "unknown"
	}
}

// Request describes one command to run inside the sandbox. Argv paths
// are relative to /app, where Workspace is mounted.
type Request struct {
	Argv      []string
	Workspace string
	Stdin     string
	WallLimit time.Duration
	MemLimit  int64 // bytes
}

// Result is the outcome of a run that the sandbox itself survived.
// Launch and wait failures are returned as errors instead, as is
// context cancellation.
type Result struct {
	Kind     Kind
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

// Config holds the runner configuration.
type Config struct {
	// NsjailPath is the sandbox binary path. Required.
	NsjailPath string

	// ReadOnlyMounts are host directories exposed read-only inside the
	// jail. Default: /usr/bin, /usr/lib, /lib, /lib64.
	ReadOnlyMounts []string

	// OutputMaxBytes bounds the per-stream capture. Default: 10 MiB.
	OutputMaxBytes int64
}

// Runner invokes nsjail. Safe for concurrent use; each Run owns its
// own subprocess.
type Runner struct {
	cfg Config
}

// NewRunner validates the configuration and builds a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.NsjailPath == "" {
		return nil, fmt.Errorf("nsjail path is required")
	}
	if len(cfg.ReadOnlyMounts) == 0 {
		cfg.ReadOnlyMounts = defaultReadOnlyMounts
	}
	if cfg.OutputMaxBytes <= 0 {
		cfg.OutputMaxBytes = defaultOutputMaxBytes
	}
	return &Runner{cfg: cfg}, nil
}

func validateRequest(req Request) error {
	if len(req.Argv) == 0 {
		return fmt.Errorf("command is required")
	}
	if req.Workspace == "" {
		return fmt.Errorf("workspace is required")
	}
	if req.WallLimit <= 0 {
		return fmt.Errorf("wall limit must be positive")
	}
	if req.MemLimit <= 0 {
		return fmt.Errorf("memory limit must be positive")
	}
	return nil
}

// buildArgv composes the full nsjail command line for a request.
func (r *Runner) buildArgv(req Request) []string {
	args := []string{
		r.cfg.NsjailPath,
		"--mode", "o",
		"--quiet",
		"--log", "/dev/null",
		"--time_limit", strconv.Itoa(limitSeconds(req.WallLimit)),
		"--rlimit_as", strconv.FormatInt(limitMiB(req.MemLimit), 10),
		"--disable_clone_newnet",
	}
	for _, dir := range r.cfg.ReadOnlyMounts {
		args = append(args, "--bindmount_ro", dir+":"+dir)
	}
	args = append(args,
		"--bindmount", req.Workspace+":/app",
		"--cwd", "/app",
		"--",
	)
	return append(args, req.Argv...)
}

// limitSeconds converts a wall limit to whole seconds for nsjail,
// rounding up so sub-second limits still get one second.
func limitSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// limitMiB converts a byte limit to whole MiB for --rlimit_as,
// rounding up.
func limitMiB(bytes int64) int64 {
	const mib = 1024 * 1024
	mb := (bytes + mib - 1) / mib
	if mb < 1 {
		mb = 1
	}
	return mb
}

// normalizeStdin strips any trailing CR/LF bytes and appends exactly
// one newline, so programs reading a final line never block on a
// missing terminator.
func normalizeStdin(s string) string {
	return strings.TrimRight(s, "\r\n") + "\n"
}

// limitedBuffer keeps at most max bytes and silently discards the
// rest, reporting full writes so the child never sees a pipe error.
type limitedBuffer struct {
	buf bytes.Buffer
	max int64
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if remaining := b.max - int64(b.buf.Len()); remaining > 0 {
		if int64(len(p)) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
