// Package board holds the static catalog of target hardware profiles and
// answers whether a compiled binary fits on a given target.
package board

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/emberloop/ember/internal/memory"
)

// Architecture tags a board's CPU family.
type Architecture string

const (
	CortexM0  Architecture = "cortex-m0"
	CortexM3  Architecture = "cortex-m3"
	CortexM4  Architecture = "cortex-m4"
	CortexM4F Architecture = "cortex-m4f"
	CortexM7  Architecture = "cortex-m7"
	AVR       Architecture = "avr"
	XtensaLX6 Architecture = "xtensa-lx6"
	RISCV32   Architecture = "riscv32"
)

// Console identifies which emulator stream carries the firmware's text
// output. Cortex-M startup code writes through the semihosting debug
// channel, which QEMU emits on stderr; other targets use a plain UART on
// stdout.
type Console string

const (
	ConsoleSemihosting Console = "semihosting"
	ConsoleUART        Console = "uart"
)

// Profile describes one hardware target. Profiles are constructed once at
// process start and never mutated.
type Profile struct {
	ID            string
	Name          string
	Arch          Architecture
	FlashKB       int64
	RAMKB         int64
	ClockMHz      int
	FlashBase     uint32
	RAMBase       uint32
	QEMUMachine   string // empty means no emulator support
	QEMUCPU       string
	Console       Console
	Compiler      string
	CompilerFlags []string
	HasFPU        bool
	Notes         string
}

// FlashBytes returns the flash capacity in bytes.
func (p Profile) FlashBytes() int64 { return p.FlashKB * 1024 }

// RAMBytes returns the RAM capacity in bytes.
func (p Profile) RAMBytes() int64 { return p.RAMKB * 1024 }

// SupportsEmulation reports whether the board can be run under an emulator.
func (p Profile) SupportsEmulation() bool { return p.QEMUMachine != "" }

// SizeTool returns the binutils size tool matching the board's toolchain.
func (p Profile) SizeTool() string {
	switch p.Arch {
	case CortexM0, CortexM3, CortexM4, CortexM4F, CortexM7:
		return "arm-none-eabi-size"
	case AVR:
		return "avr-size"
	default:
		return "size"
	}
}

// Validate checks a binary's memory usage against the board's capacities and
// returns one human-readable violation per exceeded limit. An empty slice
// means the binary fits. Pure: safe to call before any emulator is involved.
func (p Profile) Validate(u memory.Usage) []string {
	var violations []string
	if flash := u.FlashUsage(); flash > p.FlashBytes() {
		pct := float64(flash) / float64(p.FlashBytes()) * 100
		violations = append(violations, fmt.Sprintf(
			"Flash overflow: %d bytes used / %d bytes available (%.0f%%)",
			flash, p.FlashBytes(), pct))
	}
	if ram := u.RAMUsage(); ram > p.RAMBytes() {
		pct := float64(ram) / float64(p.RAMBytes()) * 100
		violations = append(violations, fmt.Sprintf(
			"RAM overflow: %d bytes used / %d bytes available (%.0f%%)",
			ram, p.RAMBytes(), pct))
	}
	return violations
}

// MemorySummary formats current usage against the board's limits.
func (p Profile) MemorySummary(u memory.Usage) string {
	flashPct := float64(u.FlashUsage()) / float64(p.FlashBytes()) * 100
	ramPct := float64(u.RAMUsage()) / float64(p.RAMBytes()) * 100
	return fmt.Sprintf("Flash: %d/%d bytes (%.1f%%) | RAM: %d/%d bytes (%.1f%%)",
		u.FlashUsage(), p.FlashBytes(), flashPct,
		u.RAMUsage(), p.RAMBytes(), ramPct)
}

// UnknownBoardError is returned when a board identifier is not in the
// registry. The message enumerates every valid identifier.
type UnknownBoardError struct {
	ID        string
	Available []string
}

func (e *UnknownBoardError) Error() string {
	return fmt.Sprintf("unknown board %q, available: %s", e.ID, strings.Join(e.Available, ", "))
}

// NoEmulatorError is returned when a board cannot be simulated.
type NoEmulatorError struct {
	Board Profile
}

func (e *NoEmulatorError) Error() string {
	return fmt.Sprintf("board %q (%s) has no emulator support", e.Board.ID, e.Board.Arch)
}

// ToolchainMissingError is returned when a board's compiler is not installed.
// Alternatives lists already-installed boards the caller could use instead.
type ToolchainMissingError struct {
	Board        Profile
	Alternatives []string
}

func (e *ToolchainMissingError) Error() string {
	msg := fmt.Sprintf("compiler %q not found for board %q; install the toolchain or pick another board",
		e.Board.Compiler, e.Board.ID)
	if len(e.Alternatives) > 0 {
		msg += fmt.Sprintf(" (ready to use: %s)", strings.Join(e.Alternatives, ", "))
	}
	return msg
}

// Registry is an immutable board catalog, safe for unsynchronized
// concurrent reads.
type Registry struct {
	order    []string
	profiles map[string]Profile
}

// NewRegistry builds a registry from the given profiles, preserving order.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		r.order = append(r.order, p.ID)
		r.profiles[p.ID] = p
	}
	return r
}

// Lookup returns the profile for id.
func (r *Registry) Lookup(id string) (Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, &UnknownBoardError{ID: id, Available: r.IDs()}
	}
	return p, nil
}

// IDs returns all board identifiers in catalog order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Profiles returns all profiles in catalog order.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id])
	}
	return out
}

// Emulatable returns the boards that can run under an emulator.
func (r *Registry) Emulatable() []Profile {
	var out []Profile
	for _, p := range r.Profiles() {
		if p.SupportsEmulation() {
			out = append(out, p)
		}
	}
	return out
}

// CheckToolchain verifies the board's compiler is on PATH. This is a run
// precondition, checked once, not per iteration. On failure the error names
// emulatable boards whose toolchains are installed.
func (r *Registry) CheckToolchain(p Profile) error {
	if _, err := exec.LookPath(p.Compiler); err == nil {
		return nil
	}
	var alternatives []string
	for _, alt := range r.Emulatable() {
		if alt.ID == p.ID {
			continue
		}
		if _, err := exec.LookPath(alt.Compiler); err == nil {
			alternatives = append(alternatives, alt.ID)
		}
	}
	return &ToolchainMissingError{Board: p, Alternatives: alternatives}
}
