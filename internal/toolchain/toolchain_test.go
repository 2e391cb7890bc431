package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emberloop/ember/internal/board"
)

func testBoard() board.Profile {
	return board.Profile{
		ID:            "lm3s6965",
		Arch:          board.CortexM3,
		FlashKB:       256,
		RAMKB:         64,
		FlashBase:     0x00000000,
		RAMBase:       0x20000000,
		Compiler:      "arm-none-eabi-gcc",
		CompilerFlags: []string{"-mcpu=cortex-m3", "-mthumb"},
	}
}

func TestArgs(t *testing.T) {
	got := Args(testBoard(), "/w/lm3s6965.ld", "/w/node.elf", "/w/node.c")
	want := []string{
		"-mcpu=cortex-m3", "-mthumb",
		"-nostdlib", "-nostartfiles",
		"-T/w/lm3s6965.ld",
		"-o", "/w/node.elf",
		"/w/node.c",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestArgsDoesNotMutateBoardFlags(t *testing.T) {
	b := testBoard()
	Args(b, "a.ld", "out.elf", "in.c")
	if len(b.CompilerFlags) != 2 {
		t.Errorf("board flags mutated: %v", b.CompilerFlags)
	}
}

func TestLinkerScript(t *testing.T) {
	script := LinkerScript(testBoard())

	for _, want := range []string{
		"ORIGIN = 0x00000000, LENGTH = 256K",
		"ORIGIN = 0x20000000, LENGTH = 64K",
		"> FLASH",
		"> RAM AT > FLASH",
		"_estack = ORIGIN(RAM) + LENGTH(RAM);",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("linker script missing %q:\n%s", want, script)
		}
	}
}

func TestLinkerCachedPerBoard(t *testing.T) {
	tmp := t.TempDir()
	c := New(tmp)

	b := testBoard()
	first, err := c.linkerFor(b)
	if err != nil {
		t.Fatalf("linkerFor: %v", err)
	}
	second, err := c.linkerFor(b)
	if err != nil {
		t.Fatalf("linkerFor: %v", err)
	}
	if first != second {
		t.Errorf("expected cached path, got %q then %q", first, second)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("reading linker script: %v", err)
	}
	if string(data) != LinkerScript(b) {
		t.Error("cached script content does not match generator output")
	}
}

func TestCompileFailureCapturesStderr(t *testing.T) {
	tmp := t.TempDir()
	c := New(tmp)

	b := testBoard()
	b.Compiler = "false" // exits 1 without producing output

	res, err := c.Compile(context.Background(), "int main(void){}", "node", b)
	if err != nil {
		t.Fatalf("Compile returned host error: %v", err)
	}
	if res.OK {
		t.Error("expected compilation failure")
	}
}

func TestCompileMissingCompilerIsHostError(t *testing.T) {
	tmp := t.TempDir()
	c := New(tmp)

	b := testBoard()
	b.Compiler = "no-such-compiler-xyz"

	_, err := c.Compile(context.Background(), "int main(void){}", "node", b)
	if err == nil {
		t.Fatal("expected error for missing compiler")
	}
}

func TestCompileWritesSource(t *testing.T) {
	tmp := t.TempDir()
	c := New(tmp)

	b := testBoard()
	b.Compiler = "true" // exits 0 but produces no ELF

	res, err := c.Compile(context.Background(), "int main(void){return 0;}", "node_a", b)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.OK {
		t.Error("exit 0 without an output artifact must not count as success")
	}

	src, err := os.ReadFile(filepath.Join(tmp, "node_a.c"))
	if err != nil {
		t.Fatalf("source not written: %v", err)
	}
	if !strings.Contains(string(src), "int main") {
		t.Errorf("unexpected source contents: %s", src)
	}
}
