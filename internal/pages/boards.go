package pages

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emberloop/ember/internal/app"
	"github.com/emberloop/ember/internal/board"
	"github.com/emberloop/ember/internal/ui"
)

// BoardsPage lists the board catalog and lets the user pick the target.
type BoardsPage struct {
	registry *board.Registry
	profiles []board.Profile
	cursor   int
	selected string

	width, height int
}

func NewBoardsPage(registry *board.Registry, selected string) *BoardsPage {
	return &BoardsPage{
		registry: registry,
		profiles: registry.Profiles(),
		selected: selected,
	}
}

func (p *BoardsPage) Init() tea.Cmd { return nil }

func (p *BoardsPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.BoardSelectedMsg:
		p.selected = msg.Board
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.profiles)-1 {
				p.cursor++
			}
		case "enter":
			b := p.profiles[p.cursor]
			p.selected = b.ID
			return p, func() tea.Msg { return app.BoardSelectedMsg{Board: b.ID} }
		}
	}
	return p, nil
}

func (p *BoardsPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Boards"))
	b.WriteString("\n")

	for i, prof := range p.profiles {
		cursor := "  "
		name := fmt.Sprintf("%-14s %-28s %4dKB flash %4dKB ram", prof.ID, prof.Name, prof.FlashKB, prof.RAMKB)
		if prof.SupportsEmulation() {
			name += "  " + ui.SuccessStyle.Render("sim")
		} else {
			name += "  " + ui.DimStyle.Render("hw only")
		}
		if prof.ID == p.selected {
			name += " " + ui.Badge("target", ui.Primary)
		}
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("▸ ")
			name = ui.BoldStyle.Render(name)
		} else {
			name = ui.DimStyle.Render(name)
		}
		b.WriteString(cursor + name + "\n")
	}

	b.WriteString("\n")
	b.WriteString(p.detail(p.profiles[p.cursor]))
	return b.String()
}

func (p *BoardsPage) detail(prof board.Profile) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Architecture: %s", prof.Arch))
	if prof.HasFPU {
		b.WriteString(" (FPU)")
	}
	b.WriteString(fmt.Sprintf("\nClock: %dMHz\nCompiler: %s", prof.ClockMHz, prof.Compiler))
	if prof.QEMUMachine != "" {
		b.WriteString(fmt.Sprintf("\nQEMU machine: %s", prof.QEMUMachine))
	}
	if prof.Notes != "" {
		b.WriteString("\n" + prof.Notes)
	}
	width := p.width
	if width < 20 {
		width = 20
	}
	return ui.Panel(prof.ID, b.String(), width, 0, false)
}

func (p *BoardsPage) Name() string { return "Boards" }

func (p *BoardsPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "navigate")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "set target")),
	}
}

func (p *BoardsPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
