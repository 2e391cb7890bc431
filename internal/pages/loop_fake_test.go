package pages

import (
	"context"
	"time"

	"github.com/emberloop/ember/internal/board"
	"github.com/emberloop/ember/internal/loop"
	"github.com/emberloop/ember/internal/memory"
	"github.com/emberloop/ember/internal/sim"
	"github.com/emberloop/ember/internal/toolchain"
)

// testBoard uses sh as its "toolchain" so preflight passes on any host.
func testBoard() board.Profile {
	return board.Profile{
		ID:          "testboard",
		Name:        "Test Board",
		Arch:        board.CortexM3,
		FlashKB:     256,
		RAMKB:       64,
		ClockMHz:    50,
		QEMUMachine: "lm3s6965evb",
		Console:     board.ConsoleSemihosting,
		Compiler:    "sh",
	}
}

type fakeGenerator struct {
	source string
}

func (g *fakeGenerator) Generate(ctx context.Context, req loop.Request) (string, error) {
	return g.source, nil
}

type fakeCompiler struct{}

func (c *fakeCompiler) Compile(ctx context.Context, source, name string, b board.Profile) (toolchain.Result, error) {
	return toolchain.Result{OK: true, ELFPath: name + ".elf"}, nil
}

type fakeBackend struct {
	output string
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Run(ctx context.Context, binaryPath string, prof board.Profile, timeout time.Duration) (sim.Result, error) {
	return sim.Result{Ran: true, Output: b.output, TimedOut: true, ExitCode: -1}, nil
}

func newTestLoop(output string) *loop.Loop {
	return &loop.Loop{
		Registry:     board.NewRegistry(testBoard()),
		DefaultBoard: "testboard",
		Generator:    &fakeGenerator{source: "int main(void) { return 0; }"},
		Compiler:     &fakeCompiler{},
		Backend:      &fakeBackend{output: output},
		Analyze: func(path string, b board.Profile) (memory.Usage, error) {
			return memory.Usage{Text: 1024, Data: 64, BSS: 256}, nil
		},
		MaxIterations: 2,
	}
}
