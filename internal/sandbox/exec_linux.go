//go:build linux

package sandbox

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	appErr "judgeworker/pkg/errors"
)

// Run executes the request under nsjail and classifies the outcome.
// The returned error is non-nil only for launch/wait failures and for
// context cancellation; everything the sandbox itself reports comes
// back as a Result.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, appErr.Wrap(err, appErr.SandboxFailure)
	}

	argv := r.buildArgv(req)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
	cmd.Stdin = strings.NewReader(normalizeStdin(req.Stdin))

	stdout := &limitedBuffer{max: r.cfg.OutputMaxBytes}
	stderr := &limitedBuffer{max: r.cfg.OutputMaxBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, appErr.Wrapf(err, appErr.SandboxFailure, "start sandbox")
	}

	var fenced atomic.Bool
	done := make(chan struct{})
	go func() {
		fence := time.NewTimer(req.WallLimit + fenceSlack)
		defer fence.Stop()
		select {
		case <-ctx.Done():
			killProcessGroup(cmd.Process.Pid)
		case <-fence.C:
			fenced.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	if fenced.Load() {
		return Result{Kind: KindTimeout, Elapsed: elapsed}, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{}, appErr.Wrapf(waitErr, appErr.SandboxFailure, "wait sandbox")
		}
		if memoryKilled(exitErr.ProcessState, req.MemLimit) {
			return Result{Kind: KindMemoryExceeded, Elapsed: elapsed}, nil
		}
	}

	exitCode := exitCodeFromErr(waitErr, cmd.ProcessState)

	// nsjail reports a job killed by its time limit through a dedicated
	// exit status; it also simply kills the job at the limit, which
	// surfaces as a non-zero exit at or past the wall limit.
	if exitCode == timeoutExitCode {
		return Result{Kind: KindTimeout, Elapsed: elapsed}, nil
	}
	if exitCode != 0 && elapsed >= req.WallLimit {
		return Result{Kind: KindTimeout, Elapsed: elapsed}, nil
	}

	return Result{
		Kind:     KindCompleted,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  elapsed,
	}, nil
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = unix.Kill(-pid, unix.SIGKILL)
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// memoryKilled reports whether the wait status can be attributed to the
// address-space limit: a SIGKILLed process whose peak RSS reached the
// limit. Allocations that merely fail inside the jail surface as a
// non-zero exit instead and are classified by the caller.
func memoryKilled(state *os.ProcessState, memLimit int64) bool {
	if state == nil {
		return false
	}
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() || status.Signal() != syscall.SIGKILL {
		return false
	}
	usage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok {
		return false
	}
	return usage.Maxrss*1024 >= memLimit
}
