package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emberloop/ember/internal/board"
)

// Renode is a full-system simulator backend driven by a generated startup
// script. Device output is captured through a file backend attached to the
// platform UART, then read back after the run.
type Renode struct {
	path string
	// UART is the sysbus peripheral the firmware writes to.
	UART string
	// Platform is the .repl platform description loaded into the machine.
	Platform string
}

// NewRenode returns a Renode backend. An empty path honors RENODE_PATH and
// falls back to "renode".
func NewRenode(path string) *Renode {
	if path == "" {
		path = os.Getenv("RENODE_PATH")
	}
	if path == "" {
		path = "renode"
	}
	return &Renode{
		path:     path,
		UART:     "sysbus.usart2",
		Platform: "@platforms/boards/stm32f4_discovery-kit.repl",
	}
}

func (r *Renode) Name() string { return "renode" }

// Run executes the binary for the full time budget, then stops the
// simulator and collects the UART log. Renode simulations do not exit on
// their own, so reaching the budget is the normal outcome.
func (r *Renode) Run(ctx context.Context, binaryPath string, b board.Profile, timeout time.Duration) (Result, error) {
	if !b.SupportsEmulation() {
		return Result{}, &board.NoEmulatorError{Board: b}
	}

	workDir, err := os.MkdirTemp("", "ember_renode_")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(workDir)

	uartLog := filepath.Join(workDir, "uart.log")
	scriptPath := filepath.Join(workDir, "run.resc")
	script := Script(b.ID, r.Platform, binaryPath, r.UART, uartLog)
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return Result{}, err
	}

	res, err := supervise(ctx, timeout, r.path,
		[]string{"--disable-xwt", "--console", scriptPath}, board.ConsoleUART)
	if err != nil {
		return res, err
	}

	// The interesting output lives in the UART log, not on Renode's own
	// console.
	if data, err := os.ReadFile(uartLog); err == nil {
		res.Output = string(data)
	}
	return res, nil
}

// Script renders the Renode startup script for a single machine.
func Script(machineID, platform, elfPath, uart, uartLog string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Auto-generated script for %s\n\n", machineID)
	sb.WriteString("using sysbus\n\n")
	fmt.Fprintf(&sb, "mach create \"machine_%s\"\n", machineID)
	fmt.Fprintf(&sb, "machine LoadPlatformDescription %s\n", platform)
	fmt.Fprintf(&sb, "sysbus LoadELF @%s\n", elfPath)
	fmt.Fprintf(&sb, "%s CreateFileBackend @%s\n\n", uart, uartLog)
	sb.WriteString("start\n")
	return sb.String()
}
