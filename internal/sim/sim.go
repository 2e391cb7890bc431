// Package sim supervises emulator processes. Each backend runs one compiled
// binary, captures the device's text output, and enforces a hard wall-clock
// budget so a misbehaving binary can never hang the caller.
package sim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/emberloop/ember/internal/board"
)

// killGrace is how long a backend waits after SIGTERM before force-killing
// the emulator.
const killGrace = 2 * time.Second

// Result is everything the rest of the system needs to judge one emulated
// run.
//
// A timeout is not a failure: embedded test programs often loop forever by
// design, so an expired budget returns whatever output was captured with
// TimedOut set, and the assertion checker decides success. This is
// deliberate behavior, not a bug.
type Result struct {
	Ran           bool
	Output        string
	TimedOut      bool
	ExitCode      int // -1 when the process was killed or never exited
	FailureReason string
}

// Backend runs one binary under emulation.
type Backend interface {
	Name() string
	Run(ctx context.Context, binaryPath string, b board.Profile, timeout time.Duration) (Result, error)
}

// EmulatorMissingError means the emulator binary itself is not installed.
// This is distinct from the emulator running and erroring: the fix is a
// host-side install, not another generation attempt.
type EmulatorMissingError struct {
	Binary string
}

func (e *EmulatorMissingError) Error() string {
	return fmt.Sprintf("emulator %q not found; install it (e.g. brew install qemu) and retry", e.Binary)
}

// ForBoard selects the backend for a board at run start. Boards without an
// emulator machine name are rejected here, before any iteration runs.
func ForBoard(b board.Profile, preferRenode bool) (Backend, error) {
	if !b.SupportsEmulation() {
		return nil, &board.NoEmulatorError{Board: b}
	}
	if preferRenode {
		return NewRenode(""), nil
	}
	return NewQEMU(""), nil
}

// supervise runs name with args under a hard wall-clock budget, capturing
// the stream named by console. On expiry the process gets SIGTERM, then
// SIGKILL after a grace window; whatever output was captured up to that
// point is returned with TimedOut set.
func supervise(ctx context.Context, timeout time.Duration, name string, args []string, console board.Console) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	err := cmd.Run()

	output := &stdout
	if console == board.ConsoleSemihosting {
		// QEMU emits the semihosting debug channel on stderr.
		output = &stderr
	}

	if ctx.Err() != nil {
		// Run-level cancellation: the child has already been signalled.
		return Result{}, ctx.Err()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{
			Ran:      true,
			Output:   output.String(),
			TimedOut: true,
			ExitCode: -1,
		}, nil
	}

	res := Result{Ran: true, Output: output.String(), ExitCode: -1}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.FailureReason = fmt.Sprintf("emulator exited with status %d", res.ExitCode)
	case errors.Is(err, exec.ErrNotFound):
		return Result{FailureReason: (&EmulatorMissingError{Binary: name}).Error()},
			&EmulatorMissingError{Binary: name}
	default:
		return Result{}, err
	}
	return res, nil
}
