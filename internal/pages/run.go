package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"

	"github.com/emberloop/ember/internal/app"
	"github.com/emberloop/ember/internal/loop"
	"github.com/emberloop/ember/internal/store"
	"github.com/emberloop/ember/internal/ui"
)

type runState int

const (
	runStateIdle runState = iota
	runStateRunning
	runStateDone
)

// NodeProgressMsg reports one node's state change while a run is active.
type NodeProgressMsg struct {
	NodeID    string
	Iteration int
	Status    loop.NodeStatus
}

// RunFinishedMsg carries the completed run (or the preflight error).
// SaveErr is set when the run finished but could not be recorded in the
// history store.
type RunFinishedMsg struct {
	Run      *loop.RunResult
	Err      error
	SaveErr  error
	Duration time.Duration
}

// RunPage drives the generation loop and shows per-node progress.
type RunPage struct {
	parent context.Context
	lp     *loop.Loop
	specs  []loop.NodeSpec
	st     *store.Store

	spinner  spinner.Model
	viewport viewport.Model

	state      runState
	statuses   map[string]loop.NodeStatus
	iterations map[string]int
	run        *loop.RunResult
	err        error
	message    string

	events  chan tea.Msg
	cancel  context.CancelFunc
	started time.Time

	width, height int
}

// NewRunPage builds the run dashboard. Runs derive their context from
// ctx, so cancelling it stops any in-flight run along with its child
// processes. st may be nil when history is disabled.
func NewRunPage(ctx context.Context, lp *loop.Loop, specs []loop.NodeSpec, st *store.Store) *RunPage {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.Primary)

	statuses := make(map[string]loop.NodeStatus, len(specs))
	for _, s := range specs {
		statuses[s.ID] = loop.StatusPending
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return &RunPage{
		parent:     ctx,
		lp:         lp,
		specs:      specs,
		st:         st,
		spinner:    sp,
		viewport:   viewport.New(0, 0),
		statuses:   statuses,
		iterations: make(map[string]int),
	}
}

func (p *RunPage) Init() tea.Cmd { return nil }

func (p *RunPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.BoardSelectedMsg:
		if p.state != runStateRunning {
			p.lp.DefaultBoard = msg.Board
		}
		return p, nil

	case NodeProgressMsg:
		p.statuses[msg.NodeID] = msg.Status
		if msg.Iteration > p.iterations[msg.NodeID] {
			p.iterations[msg.NodeID] = msg.Iteration
		}
		return p, p.waitForEvent()

	case RunFinishedMsg:
		p.state = runStateDone
		p.run = msg.Run
		p.err = msg.Err
		p.cancel = nil
		p.message = fmt.Sprintf("Run finished in %s", msg.Duration.Round(time.Millisecond))
		if msg.SaveErr != nil {
			p.message += ui.WarningStyle.Render(fmt.Sprintf("  (history not recorded: %v)", msg.SaveErr))
		}
		p.updateViewportContent()
		p.viewport.GotoTop()
		return p, nil

	case spinner.TickMsg:
		if p.state != runStateRunning {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *RunPage) handleKey(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	switch msg.String() {
	case "r":
		if p.state != runStateRunning {
			return p, p.startRun()
		}
		return p, nil
	case "ctrl+x":
		if p.state == runStateRunning && p.cancel != nil {
			p.cancel()
			p.message = "Cancelling..."
		}
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *RunPage) startRun() tea.Cmd {
	if len(p.specs) == 0 {
		p.message = "No nodes to run"
		return nil
	}

	ctx, cancel := context.WithCancel(p.parent)
	p.cancel = cancel
	events := make(chan tea.Msg, 64)
	p.events = events

	p.state = runStateRunning
	p.run = nil
	p.err = nil
	p.message = ""
	p.started = time.Now()
	for _, s := range p.specs {
		p.statuses[s.ID] = loop.StatusPending
		p.iterations[s.ID] = 0
	}
	p.viewport.SetContent("")

	p.lp.Progress = func(nodeID string, iteration int, status loop.NodeStatus) {
		events <- NodeProgressMsg{NodeID: nodeID, Iteration: iteration, Status: status}
	}

	lp, st, specs, started := p.lp, p.st, p.specs, p.started
	go func() {
		defer cancel()
		run, err := lp.Run(ctx, specs)
		finished := time.Now()
		var saveErr error
		if err == nil && st != nil {
			saveErr = st.SaveRun(run, lp.DefaultBoard, started, finished)
		}
		events <- RunFinishedMsg{Run: run, Err: err, SaveErr: saveErr, Duration: finished.Sub(started)}
		close(events)
	}()

	return tea.Batch(p.spinner.Tick, p.waitForEvent())
}

func (p *RunPage) waitForEvent() tea.Cmd {
	events := p.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// Shutdown cancels any in-flight run and waits for its goroutine to
// finish, so the emulator and compiler children are signalled and reaped
// before the process exits. Safe to call when no run was ever started.
func (p *RunPage) Shutdown() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.events == nil {
		return
	}
	for range p.events {
	}
}

func (p *RunPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Run"))
	b.WriteString("\n")

	if len(p.specs) == 0 {
		b.WriteString(ui.DimStyle.Render("No node specs loaded. Pass a spec file on the command line."))
		return b.String()
	}

	for _, s := range p.specs {
		status := p.statuses[s.ID]
		line := fmt.Sprintf("%s %s", ui.StatusBadge(string(status)), s.ID)
		if n := p.iterations[s.ID]; n > 0 {
			line += ui.DimStyle.Render(fmt.Sprintf("  iteration %d", n))
		}
		if status == loop.StatusRunning {
			line = p.spinner.View() + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if p.message != "" {
		b.WriteString(p.message + "\n")
	}

	listHeight := lipgloss.Height(b.String())
	outputHeight := p.height - listHeight - 1
	if outputHeight < 5 {
		outputHeight = 5
	}
	b.WriteString(p.viewOutput(p.width, outputHeight))
	return b.String()
}

func (p *RunPage) viewOutput(width, height int) string {
	contentWidth := width - 4
	contentHeight := height - 2
	if contentWidth < 10 {
		contentWidth = 10
	}
	if contentHeight < 3 {
		contentHeight = 3
	}

	oldWidth := p.viewport.Width
	p.viewport.Width = contentWidth
	p.viewport.Height = contentHeight
	if oldWidth != contentWidth {
		p.updateViewportContent()
	}

	if p.state != runStateDone {
		return ui.Panel("results", ui.DimStyle.Render("Node results will appear here after the run."), width, height, false)
	}
	return ui.Panel("results", p.viewport.View(), width, height, false)
}

func (p *RunPage) updateViewportContent() {
	content := p.resultsText()
	if p.viewport.Width > 0 {
		// Hard wrap so long compiler paths without spaces still fit
		wrapped := wrap.String(content, p.viewport.Width)
		lines := strings.Split(wrapped, "\n")
		for i, line := range lines {
			if ansi.PrintableRuneWidth(line) > p.viewport.Width {
				lines[i] = truncate.String(line, uint(p.viewport.Width))
			}
		}
		content = strings.Join(lines, "\n")
	}
	p.viewport.SetContent(content)
}

func (p *RunPage) resultsText() string {
	if p.err != nil {
		return ui.ErrorStyle.Render("Run failed: ") + p.err.Error()
	}
	if p.run == nil {
		return ""
	}

	var b strings.Builder
	for _, node := range p.run.Nodes {
		b.WriteString(fmt.Sprintf("%s %s (%d iterations, board %s)\n",
			ui.StatusBadge(string(node.Status)), node.Spec.ID, len(node.Iterations), node.Board))
		switch node.Status {
		case loop.StatusSuccess:
			if n := len(node.Iterations); n > 0 {
				last := node.Iterations[n-1]
				b.WriteString(ui.DimStyle.Render("  "+last.Usage.String()) + "\n")
			}
		default:
			if node.LastReport != "" {
				b.WriteString(indent(node.LastReport, "  ") + "\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func (p *RunPage) Name() string { return "Run" }

func (p *RunPage) ShortHelp() []key.Binding {
	if p.state == runStateRunning {
		return []key.Binding{
			key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run")),
		key.NewBinding(key.WithKeys("↑/↓"), key.WithHelp("↑/↓", "scroll")),
	}
}

func (p *RunPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
