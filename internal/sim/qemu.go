package sim

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/emberloop/ember/internal/board"
)

// QEMU runs binaries under qemu-system-* machine emulation. This is the
// reference backend: one child process per attempt, no shared state.
type QEMU struct {
	path string // explicit binary, overrides per-architecture selection
}

// NewQEMU returns a QEMU backend. An empty path selects the system binary
// for the board's architecture, honoring QEMU_PATH.
func NewQEMU(path string) *QEMU {
	if path == "" {
		path = os.Getenv("QEMU_PATH")
	}
	return &QEMU{path: path}
}

func (q *QEMU) Name() string { return "qemu" }

// Run boots the binary on the board's machine model and captures the
// board's console channel until exit or timeout.
func (q *QEMU) Run(ctx context.Context, binaryPath string, b board.Profile, timeout time.Duration) (Result, error) {
	if !b.SupportsEmulation() {
		return Result{}, &board.NoEmulatorError{Board: b}
	}
	bin := q.path
	if bin == "" {
		bin = systemBinary(b.Arch)
	}
	if bin == "" {
		return Result{}, fmt.Errorf("no qemu system binary for architecture %s", b.Arch)
	}
	return supervise(ctx, timeout, bin, qemuArgs(b, binaryPath), b.Console)
}

// qemuArgs builds the emulator invocation: machine and cpu selectors from
// the profile, headless, semihosting routed to a capturable stream.
func qemuArgs(b board.Profile, binaryPath string) []string {
	args := []string{
		"-machine", b.QEMUMachine,
		"-nographic",
		"-semihosting-config", "enable=on,target=native",
		"-kernel", binaryPath,
	}
	if b.QEMUCPU != "" {
		args = append(args, "-cpu", b.QEMUCPU)
	}
	return args
}

func systemBinary(arch board.Architecture) string {
	switch arch {
	case board.CortexM0, board.CortexM3, board.CortexM4, board.CortexM4F, board.CortexM7:
		return "qemu-system-arm"
	case board.RISCV32:
		return "qemu-system-riscv32"
	default:
		return ""
	}
}
