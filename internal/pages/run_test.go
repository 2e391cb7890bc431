package pages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emberloop/ember/internal/board"
	"github.com/emberloop/ember/internal/loop"
	"github.com/emberloop/ember/internal/sim"
	"github.com/emberloop/ember/internal/store"
)

func TestRunPageCompletesRun(t *testing.T) {
	lp := newTestLoop("booting\nready\n")
	specs := []loop.NodeSpec{{
		ID:          "blink",
		Description: "blink an LED",
		Assertions:  []loop.Assertion{{Name: "ready", Pattern: "ready", Required: true}},
	}}
	p := NewRunPage(context.Background(), lp, specs, nil)
	p.SetSize(80, 40)

	if cmd := p.startRun(); cmd == nil {
		t.Fatal("expected a command from startRun")
	}

	// Drain loop events the way the program dispatcher would.
	for msg := range p.events {
		p.Update(msg)
	}

	if p.state != runStateDone {
		t.Fatalf("expected done state, got %d", p.state)
	}
	if p.err != nil {
		t.Fatalf("unexpected run error: %v", p.err)
	}
	if got := p.statuses["blink"]; got != loop.StatusSuccess {
		t.Errorf("expected success status, got %s", got)
	}
	if text := p.resultsText(); !strings.Contains(text, "blink") {
		t.Errorf("results missing node id: %q", text)
	}
}

func TestRunPageFailureShowsReport(t *testing.T) {
	lp := newTestLoop("wrong output\n")
	specs := []loop.NodeSpec{{
		ID:          "blink",
		Description: "blink an LED",
		Assertions:  []loop.Assertion{{Name: "ready", Pattern: "ready", Required: true}},
	}}
	p := NewRunPage(context.Background(), lp, specs, nil)
	p.SetSize(80, 40)

	p.startRun()
	for msg := range p.events {
		p.Update(msg)
	}

	if got := p.statuses["blink"]; got != loop.StatusFailed {
		t.Errorf("expected failed status, got %s", got)
	}
	text := p.resultsText()
	if !strings.Contains(text, "Test failures:") {
		t.Errorf("failed node should show its error report: %q", text)
	}
	if !strings.Contains(text, "wrong output") {
		t.Errorf("report should include the actual output: %q", text)
	}
}

func TestRunPageProgressMessage(t *testing.T) {
	p := NewRunPage(context.Background(), newTestLoop(""), []loop.NodeSpec{{ID: "blink"}}, nil)
	p.events = make(chan tea.Msg, 1)

	p.Update(NodeProgressMsg{NodeID: "blink", Iteration: 2, Status: loop.StatusRunning})

	if p.statuses["blink"] != loop.StatusRunning {
		t.Errorf("status not updated: %s", p.statuses["blink"])
	}
	if p.iterations["blink"] != 2 {
		t.Errorf("iteration not tracked: %d", p.iterations["blink"])
	}
}

func TestRunPageNoSpecs(t *testing.T) {
	p := NewRunPage(context.Background(), newTestLoop(""), nil, nil)
	if cmd := p.startRun(); cmd != nil {
		t.Error("expected no command without specs")
	}
	if p.message == "" {
		t.Error("expected a message explaining there is nothing to run")
	}
}

func TestRunPageFinishedMessage(t *testing.T) {
	p := NewRunPage(context.Background(), newTestLoop(""), []loop.NodeSpec{{ID: "blink"}}, nil)
	p.state = runStateRunning

	run := &loop.RunResult{ID: "run-1", Nodes: []*loop.NodeResult{
		{Spec: loop.NodeSpec{ID: "blink"}, Board: "testboard", Status: loop.StatusSuccess},
	}}
	p.Update(RunFinishedMsg{Run: run, Duration: 3 * time.Second})

	if p.state != runStateDone {
		t.Errorf("expected done state, got %d", p.state)
	}
	if !strings.Contains(p.message, "finished") {
		t.Errorf("expected finish message, got %q", p.message)
	}
}

// blockedBackend parks inside Run until its context is cancelled,
// standing in for an emulator child that never exits on its own.
type blockedBackend struct {
	started chan struct{}
	ctxErr  error
}

func (b *blockedBackend) Name() string { return "blocked" }

func (b *blockedBackend) Run(ctx context.Context, _ string, _ board.Profile, _ time.Duration) (sim.Result, error) {
	close(b.started)
	<-ctx.Done()
	b.ctxErr = ctx.Err()
	return sim.Result{}, ctx.Err()
}

func TestRunPageShutdownCancelsBackend(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	defer cancelParent()

	backend := &blockedBackend{started: make(chan struct{})}
	lp := newTestLoop("")
	lp.Backend = backend

	p := NewRunPage(parent, lp, []loop.NodeSpec{{ID: "blink"}}, nil)
	if cmd := p.startRun(); cmd == nil {
		t.Fatal("expected a command from startRun")
	}

	// Simulate the program exiting mid-run: cancel the parent context,
	// then shut the page down without draining any UI messages.
	<-backend.started
	cancelParent()
	p.Shutdown()

	if !errors.Is(backend.ctxErr, context.Canceled) {
		t.Errorf("backend context not cancelled: %v", backend.ctxErr)
	}
}

func TestRunPageShutdownWithoutRun(t *testing.T) {
	p := NewRunPage(context.Background(), newTestLoop(""), []loop.NodeSpec{{ID: "blink"}}, nil)
	p.Shutdown()

	p = NewRunPage(context.Background(), newTestLoop("ready\n"), []loop.NodeSpec{{
		ID:         "blink",
		Assertions: []loop.Assertion{{Name: "ready", Pattern: "ready", Required: true}},
	}}, nil)
	p.startRun()
	for msg := range p.events {
		p.Update(msg)
	}
	// After the run has completed, Shutdown must still be a no-op.
	p.Shutdown()
}

func TestRunPageFinishedMessageShowsSaveError(t *testing.T) {
	p := NewRunPage(context.Background(), newTestLoop(""), []loop.NodeSpec{{ID: "blink"}}, nil)
	p.state = runStateRunning

	p.Update(RunFinishedMsg{
		Run:      &loop.RunResult{ID: "run-1"},
		SaveErr:  errors.New("disk full"),
		Duration: time.Second,
	})

	if !strings.Contains(p.message, "history not recorded") || !strings.Contains(p.message, "disk full") {
		t.Errorf("save failure not surfaced: %q", p.message)
	}
}

func TestRunPageReportsHistorySaveFailure(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st.Close() // every SaveRun from here on fails

	p := NewRunPage(context.Background(), newTestLoop("ready\n"), []loop.NodeSpec{{
		ID:         "blink",
		Assertions: []loop.Assertion{{Name: "ready", Pattern: "ready", Required: true}},
	}}, st)
	p.startRun()
	for msg := range p.events {
		p.Update(msg)
	}

	if p.statuses["blink"] != loop.StatusSuccess {
		t.Fatalf("run should succeed despite the store: %s", p.statuses["blink"])
	}
	if !strings.Contains(p.message, "history not recorded") {
		t.Errorf("expected save warning in message, got %q", p.message)
	}
}
