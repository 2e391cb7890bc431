package pages

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emberloop/ember/internal/app"
	"github.com/emberloop/ember/internal/store"
	"github.com/emberloop/ember/internal/ui"
)

// HistoryLoadedMsg carries past runs read from the history store.
type HistoryLoadedMsg struct {
	Runs []store.RunRecord
	Err  error
}

// RunDetailMsg carries the node outcomes for one selected run.
type RunDetailMsg struct {
	RunID string
	Nodes []store.NodeRecord
	Err   error
}

// HistoryPage lists past generation runs from the history store.
type HistoryPage struct {
	st     *store.Store
	runs   []store.RunRecord
	cursor int
	detail []store.NodeRecord
	opened string
	err    error

	width, height int
}

// NewHistoryPage builds the history page. st may be nil when history is
// disabled.
func NewHistoryPage(st *store.Store) *HistoryPage {
	return &HistoryPage{st: st}
}

func (p *HistoryPage) loadRuns() tea.Cmd {
	st := p.st
	return func() tea.Msg {
		runs, err := st.Runs()
		return HistoryLoadedMsg{Runs: runs, Err: err}
	}
}

func (p *HistoryPage) loadDetail(runID string) tea.Cmd {
	st := p.st
	return func() tea.Msg {
		nodes, err := st.NodesForRun(runID)
		return RunDetailMsg{RunID: runID, Nodes: nodes, Err: err}
	}
}

func (p *HistoryPage) Init() tea.Cmd {
	if p.st == nil {
		return nil
	}
	return p.loadRuns()
}

func (p *HistoryPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case HistoryLoadedMsg:
		p.runs = msg.Runs
		p.err = msg.Err
		if p.cursor >= len(p.runs) {
			p.cursor = 0
		}
		return p, nil

	case RunDetailMsg:
		if msg.Err != nil {
			p.err = msg.Err
			return p, nil
		}
		p.opened = msg.RunID
		p.detail = msg.Nodes
		return p, nil

	// Refresh after each finished run so new history shows up without a
	// manual reload.
	case RunFinishedMsg:
		if p.st != nil && msg.Err == nil {
			return p, p.loadRuns()
		}
		return p, nil

	case tea.KeyMsg:
		if p.st == nil {
			return p, nil
		}
		switch msg.String() {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.runs)-1 {
				p.cursor++
			}
		case "enter":
			if len(p.runs) > 0 {
				return p, p.loadDetail(p.runs[p.cursor].ID)
			}
		case "esc":
			p.opened = ""
			p.detail = nil
		case "l":
			return p, p.loadRuns()
		}
	}
	return p, nil
}

func (p *HistoryPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("History"))
	b.WriteString("\n")

	if p.st == nil {
		b.WriteString(ui.DimStyle.Render("History store disabled."))
		return b.String()
	}
	if p.err != nil {
		b.WriteString(ui.ErrorStyle.Render(fmt.Sprintf("History error: %v", p.err)) + "\n")
	}
	if len(p.runs) == 0 {
		b.WriteString(ui.DimStyle.Render("No recorded runs yet."))
		return b.String()
	}

	for i, r := range p.runs {
		verdict := ui.ErrorStyle.Render("failed")
		if r.Success {
			verdict = ui.SuccessStyle.Render("passed")
		}
		line := fmt.Sprintf("%s  %-12s %2d nodes  %s  %s",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Board, r.Nodes, verdict,
			ui.DimStyle.Render(r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()))
		if i == p.cursor {
			line = ui.BoldStyle.Render("▸ ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if p.opened != "" && len(p.detail) > 0 {
		b.WriteString("\n")
		var d strings.Builder
		for _, n := range p.detail {
			d.WriteString(fmt.Sprintf("%s %s (%d iterations)\n", ui.StatusBadge(n.Status), n.NodeID, n.Iterations))
			if n.LastReport != "" {
				d.WriteString(indent(n.LastReport, "  ") + "\n")
			}
		}
		width := p.width
		if width < 20 {
			width = 20
		}
		b.WriteString(ui.Panel(shortID(p.opened), strings.TrimRight(d.String(), "\n"), width, 0, false))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (p *HistoryPage) Name() string { return "History" }

func (p *HistoryPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "navigate")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "reload")),
	}
}

func (p *HistoryPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
