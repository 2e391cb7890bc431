package board

import (
	"errors"
	"strings"
	"testing"

	"github.com/emberloop/ember/internal/memory"
)

func genericBoard() Profile {
	return Profile{
		ID:            "generic-256k-64k",
		Name:          "Generic 256K/64K",
		Arch:          CortexM3,
		FlashKB:       256,
		RAMKB:         64,
		ClockMHz:      50,
		QEMUMachine:   "lm3s6965evb",
		QEMUCPU:       "cortex-m3",
		Compiler:      "arm-none-eabi-gcc",
		CompilerFlags: []string{"-mcpu=cortex-m3", "-mthumb"},
	}
}

func TestCatalogInvariants(t *testing.T) {
	for _, p := range Default().Profiles() {
		if p.FlashKB <= 0 || p.RAMKB <= 0 {
			t.Errorf("board %s: non-positive memory capacity (flash=%d ram=%d)", p.ID, p.FlashKB, p.RAMKB)
		}
		if p.ID == "" || p.Compiler == "" {
			t.Errorf("board %s: missing identity fields", p.ID)
		}
	}
}

func TestLookupKnown(t *testing.T) {
	p, err := Default().Lookup("lm3s6965")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if p.QEMUMachine != "lm3s6965evb" {
		t.Errorf("expected machine lm3s6965evb, got %q", p.QEMUMachine)
	}
	if p.FlashBytes() != 256*1024 {
		t.Errorf("expected 262144 flash bytes, got %d", p.FlashBytes())
	}
}

func TestLookupUnknownEnumeratesBoards(t *testing.T) {
	_, err := Default().Lookup("nope")
	if err == nil {
		t.Fatal("expected error for unknown board")
	}
	var unknown *UnknownBoardError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownBoardError, got %T", err)
	}
	if !strings.Contains(err.Error(), "lm3s6965") || !strings.Contains(err.Error(), "stm32f103c8") {
		t.Errorf("error should enumerate valid boards, got %q", err.Error())
	}
}

func TestValidateFits(t *testing.T) {
	b := genericBoard()
	u := memory.Usage{Text: 8 * 1024, Data: 512, BSS: 1536, ROData: 1536}

	if v := b.Validate(u); len(v) != 0 {
		t.Errorf("expected no violations, got %v", v)
	}
}

func TestValidateFlashOverflow(t *testing.T) {
	b := genericBoard()
	u := memory.Usage{Text: 300 * 1024}

	v := b.Validate(u)
	if len(v) != 1 {
		t.Fatalf("expected 1 violation, got %d: %v", len(v), v)
	}
	for _, want := range []string{"Flash", "307200", "262144", "117%"} {
		if !strings.Contains(v[0], want) {
			t.Errorf("violation %q should contain %q", v[0], want)
		}
	}
}

func TestValidateBothLimits(t *testing.T) {
	b := genericBoard()
	u := memory.Usage{Text: 300 * 1024, BSS: 100 * 1024}

	v := b.Validate(u)
	if len(v) != 2 {
		t.Fatalf("expected 2 violations, got %d: %v", len(v), v)
	}
	if !strings.Contains(v[0], "Flash") || !strings.Contains(v[1], "RAM") {
		t.Errorf("expected flash then ram violations, got %v", v)
	}
}

func TestValidateMonotonic(t *testing.T) {
	b := genericBoard()
	u := memory.Usage{Text: 300 * 1024}
	before := len(b.Validate(u))

	u.BSS += 128 * 1024
	after := len(b.Validate(u))
	if after < before {
		t.Errorf("growing usage removed violations: %d -> %d", before, after)
	}
}

func TestBoundaryExactFit(t *testing.T) {
	b := genericBoard()
	u := memory.Usage{Text: b.FlashBytes()}
	if v := b.Validate(u); len(v) != 0 {
		t.Errorf("usage equal to the limit should fit, got %v", v)
	}

	u.Text++
	if v := b.Validate(u); len(v) != 1 {
		t.Errorf("one byte over the limit should violate, got %v", v)
	}
}

func TestSupportsEmulation(t *testing.T) {
	reg := Default()

	esp, _ := reg.Lookup("esp32")
	if esp.SupportsEmulation() {
		t.Error("esp32 has no QEMU machine model and must not claim emulator support")
	}

	lm, _ := reg.Lookup("lm3s6965")
	if !lm.SupportsEmulation() {
		t.Error("lm3s6965 should support emulation")
	}
}

func TestSizeTool(t *testing.T) {
	tests := []struct {
		arch Architecture
		want string
	}{
		{CortexM3, "arm-none-eabi-size"},
		{CortexM4F, "arm-none-eabi-size"},
		{AVR, "avr-size"},
		{RISCV32, "size"},
	}
	for _, tt := range tests {
		p := Profile{Arch: tt.arch}
		if got := p.SizeTool(); got != tt.want {
			t.Errorf("SizeTool(%s): expected %s, got %s", tt.arch, tt.want, got)
		}
	}
}

func TestCheckToolchainMissing(t *testing.T) {
	missing := Profile{ID: "ghost", Compiler: "no-such-compiler-xyz", QEMUMachine: "m"}
	reg := NewRegistry(missing)

	err := reg.CheckToolchain(missing)
	if err == nil {
		t.Skip("a compiler named no-such-compiler-xyz exists on PATH")
	}
	var tcErr *ToolchainMissingError
	if !errors.As(err, &tcErr) {
		t.Fatalf("expected ToolchainMissingError, got %T", err)
	}
	if !strings.Contains(err.Error(), "no-such-compiler-xyz") {
		t.Errorf("error should name the missing compiler, got %q", err.Error())
	}
}
