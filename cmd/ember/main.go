package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emberloop/ember/internal/app"
	"github.com/emberloop/ember/internal/board"
	"github.com/emberloop/ember/internal/config"
	"github.com/emberloop/ember/internal/flash"
	"github.com/emberloop/ember/internal/loop"
	"github.com/emberloop/ember/internal/pages"
	"github.com/emberloop/ember/internal/sim"
	"github.com/emberloop/ember/internal/store"
	"github.com/emberloop/ember/internal/toolchain"
)

// runSpec is the on-disk format for a batch of firmware nodes.
type runSpec struct {
	Board string          `json:"board,omitempty"`
	Nodes []loop.NodeSpec `json:"nodes"`
}

func main() {
	specPath := flag.String("spec", "", "JSON file with the firmware nodes to generate")
	boardID := flag.String("board", "", "target board id (overrides config)")
	iterations := flag.Int("iterations", 0, "max generation attempts per node (overrides config)")
	plain := flag.Bool("plain", false, "run without the TUI and print progress to stdout")
	listBoards := flag.Bool("list-boards", false, "print the board catalog and exit")
	detect := flag.Bool("detect", false, "scan for connected boards and exit")
	flashPath := flag.String("flash", "", "flash the given firmware image to hardware and exit")
	port := flag.String("port", "", "serial port for flashing")
	method := flag.String("method", flash.MethodAuto, "stm32 flash method: auto, stlink or uart")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		fatal(err)
	}

	cfg := config.Load(cwd)
	if *boardID != "" {
		cfg.DefaultBoard = *boardID
	}
	if *iterations > 0 {
		cfg.MaxIterations = *iterations
	}

	registry := board.Default()

	switch {
	case *listBoards:
		printBoards(registry)
		return
	case *detect:
		printDevices()
		return
	case *flashPath != "":
		flashFirmware(registry, cfg, *flashPath, *port, *method)
		return
	}

	if *specPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ember -spec nodes.json [-board id] [-plain]")
		fmt.Fprintln(os.Stderr, "       ember -list-boards | -detect | -flash firmware.bin")
		os.Exit(2)
	}

	spec, err := loadSpec(*specPath)
	if err != nil {
		fatal(err)
	}
	if spec.Board != "" && *boardID == "" {
		cfg.DefaultBoard = spec.Board
	}

	lp, err := buildLoop(registry, cfg)
	if err != nil {
		fatal(err)
	}
	st := openStore(cfg, cwd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *plain {
		os.Exit(runPlain(ctx, lp, spec.Nodes, st, cfg.DefaultBoard))
	}

	runPage := pages.NewRunPage(ctx, lp, spec.Nodes, st)
	pageMap := map[app.PageID]app.Page{
		app.RunPage:     runPage,
		app.BoardsPage:  pages.NewBoardsPage(registry, cfg.DefaultBoard),
		app.DevicesPage: pages.NewDevicesPage(),
		app.HistoryPage: pages.NewHistoryPage(st),
	}

	model := app.New(pageMap, &cfg, cwd)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()
	// Quitting mid-run must not orphan the emulator or compiler child.
	runPage.Shutdown()
	if runErr != nil {
		fatal(runErr)
	}
}

func loadSpec(path string) (runSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runSpec{}, err
	}
	var spec runSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return runSpec{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(spec.Nodes) == 0 {
		return runSpec{}, fmt.Errorf("%s contains no nodes", path)
	}
	for i, n := range spec.Nodes {
		if n.ID == "" {
			return runSpec{}, fmt.Errorf("%s: node %d has no id", path, i)
		}
	}
	return spec, nil
}

func buildLoop(registry *board.Registry, cfg config.Config) (*loop.Loop, error) {
	if len(cfg.GeneratorCommand) == 0 {
		return nil, fmt.Errorf("no generator_command configured; set it in .ember/config.json")
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "ember-")
		if err != nil {
			return nil, err
		}
		workDir = dir
	} else if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}

	var backend sim.Backend
	if cfg.UseRenode {
		backend = sim.NewRenode(cfg.RenodePath)
	} else {
		backend = sim.NewQEMU(cfg.QEMUPath)
	}

	return &loop.Loop{
		Registry:      registry,
		DefaultBoard:  cfg.DefaultBoard,
		Generator:     &loop.CommandGenerator{Command: cfg.GeneratorCommand},
		Compiler:      toolchain.New(workDir),
		Backend:       backend,
		MaxIterations: cfg.MaxIterations,
		SimTimeout:    time.Duration(cfg.SimTimeoutSec) * time.Second,
	}, nil
}

func openStore(cfg config.Config, cwd string) *store.Store {
	path := cfg.HistoryDB
	if path == "" {
		dir := filepath.Join(cwd, ".ember")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
			return nil
		}
		path = filepath.Join(dir, "history.db")
	}
	st, err := store.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
		return nil
	}
	return st
}

func runPlain(ctx context.Context, lp *loop.Loop, nodes []loop.NodeSpec, st *store.Store, boardID string) int {
	lp.Progress = func(nodeID string, iteration int, status loop.NodeStatus) {
		if iteration == 0 {
			fmt.Printf("[%s] %s\n", nodeID, status)
			return
		}
		fmt.Printf("[%s] iteration %d: %s\n", nodeID, iteration, status)
	}

	started := time.Now()
	run, err := lp.Run(ctx, nodes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if st != nil {
		if err := st.SaveRun(run, boardID, started, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record run: %v\n", err)
		}
	}

	fmt.Println()
	for _, node := range run.Nodes {
		fmt.Printf("%s: %s (%d iterations)\n", node.Spec.ID, node.Status, len(node.Iterations))
		if node.Status != loop.StatusSuccess && node.LastReport != "" {
			fmt.Println(node.LastReport)
		}
	}

	if run.Succeeded() {
		return 0
	}
	return 1
}

func printBoards(registry *board.Registry) {
	for _, b := range registry.Profiles() {
		target := "hardware only"
		if b.SupportsEmulation() {
			target = "emulation"
		}
		fmt.Printf("%-14s %-30s %4dKB flash %4dKB ram  %s\n", b.ID, b.Name, b.FlashKB, b.RAMKB, target)
	}
}

func printDevices() {
	devices, err := flash.Detect()
	if err != nil {
		fatal(err)
	}
	if len(devices) == 0 {
		fmt.Println("No development boards detected")
		return
	}
	for _, d := range devices {
		fmt.Println(d.DisplayName())
	}
}

func flashFirmware(registry *board.Registry, cfg config.Config, firmware, port, method string) {
	b, err := registry.Lookup(cfg.DefaultBoard)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res flash.Result
	switch b.Arch {
	case board.XtensaLX6, board.RISCV32:
		if port == "" {
			fatal(fmt.Errorf("-port is required for %s", b.ID))
		}
		res, err = flash.ESP32(ctx, firmware, port, 0, b.ID)
	case board.CortexM0, board.CortexM3, board.CortexM4, board.CortexM4F, board.CortexM7:
		res, err = flash.STM32(ctx, firmware, port, method)
	default:
		fatal(fmt.Errorf("flashing is not supported for %s boards", b.Arch))
	}
	if err != nil {
		fatal(err)
	}

	fmt.Print(res.Output)
	if !res.OK {
		fmt.Fprintln(os.Stderr, "Flash failed")
		os.Exit(1)
	}
	fmt.Println("Flash complete")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
