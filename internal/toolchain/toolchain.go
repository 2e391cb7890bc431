// Package toolchain drives the host cross-compiler and owns the generated
// linker layouts for each board.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/emberloop/ember/internal/board"
)

// Result is one compile attempt's outcome. Stderr is surfaced verbatim to
// the generator on retry.
type Result struct {
	OK       bool
	ELFPath  string
	Stderr   string
	Warnings string
}

// Compiler invokes a board's cross-compiler inside a work directory.
// Linker scripts are generated once per board and reused across iterations.
type Compiler struct {
	workDir string

	mu      sync.Mutex
	linkers map[string]string // board ID -> linker script path
}

// New returns a Compiler rooted at workDir. The directory is created on
// first use.
func New(workDir string) *Compiler {
	return &Compiler{workDir: workDir, linkers: make(map[string]string)}
}

// Compile writes source to the work directory and invokes the board's
// compiler. A non-zero exit is a compilation failure, not an error; errors
// are reserved for the host being unable to run the compiler at all.
func (c *Compiler) Compile(ctx context.Context, source, name string, b board.Profile) (Result, error) {
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return Result{}, err
	}

	srcPath := filepath.Join(c.workDir, name+".c")
	elfPath := filepath.Join(c.workDir, name+".elf")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return Result{}, err
	}

	ldPath, err := c.linkerFor(b)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, b.Compiler, Args(b, ldPath, elfPath, srcPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{OK: false, Stderr: stderr.String()}, nil
		}
		return Result{}, fmt.Errorf("%s: %w", b.Compiler, err)
	}

	if _, err := os.Stat(elfPath); err != nil {
		return Result{OK: false, Stderr: "compiler exited 0 but produced no output artifact"}, nil
	}
	return Result{OK: true, ELFPath: elfPath, Warnings: stderr.String()}, nil
}

// Args builds the full compiler argument list for a board.
func Args(b board.Profile, ldPath, out, src string) []string {
	args := append([]string{}, b.CompilerFlags...)
	args = append(args,
		"-nostdlib",
		"-nostartfiles",
		"-T"+ldPath,
		"-o", out,
		src,
	)
	return args
}

// linkerFor returns the cached linker script path for a board, generating
// it on first request.
func (c *Compiler) linkerFor(b board.Profile) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.linkers[b.ID]; ok {
		return path, nil
	}
	path := filepath.Join(c.workDir, b.ID+".ld")
	if err := os.WriteFile(path, []byte(LinkerScript(b)), 0o644); err != nil {
		return "", err
	}
	c.linkers[b.ID] = path
	return path, nil
}

// LinkerScript renders a minimal memory layout from the board's flash and
// RAM base addresses and sizes.
func LinkerScript(b board.Profile) string {
	return fmt.Sprintf(`MEMORY
{
    FLASH (rx) : ORIGIN = 0x%08X, LENGTH = %dK
    RAM (rwx) : ORIGIN = 0x%08X, LENGTH = %dK
}

SECTIONS
{
    .text : { *(.text*) } > FLASH
    .rodata : { *(.rodata*) } > FLASH
    .data : { *(.data*) } > RAM AT > FLASH
    .bss : { *(.bss*) } > RAM
}

_estack = ORIGIN(RAM) + LENGTH(RAM);
`, b.FlashBase, b.FlashKB, b.RAMBase, b.RAMKB)
}
