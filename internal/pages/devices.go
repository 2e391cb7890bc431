package pages

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emberloop/ember/internal/app"
	"github.com/emberloop/ember/internal/flash"
	"github.com/emberloop/ember/internal/ui"
)

// DevicesLoadedMsg carries the result of a USB serial scan.
type DevicesLoadedMsg struct {
	Devices []flash.Device
	Err     error
}

// DevicesPage lists connected development boards.
type DevicesPage struct {
	devices []flash.Device
	err     error
	loading bool
	scanned bool

	width, height int
}

func NewDevicesPage() *DevicesPage {
	return &DevicesPage{}
}

func detectDevices() tea.Cmd {
	return func() tea.Msg {
		devices, err := flash.Detect()
		return DevicesLoadedMsg{Devices: devices, Err: err}
	}
}

func (p *DevicesPage) Init() tea.Cmd {
	p.loading = true
	return detectDevices()
}

func (p *DevicesPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case DevicesLoadedMsg:
		p.loading = false
		p.scanned = true
		p.devices = msg.Devices
		p.err = msg.Err
		return p, nil

	case tea.KeyMsg:
		if msg.String() == "d" {
			p.loading = true
			return p, detectDevices()
		}
	}
	return p, nil
}

func (p *DevicesPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Devices"))
	b.WriteString("\n")

	switch {
	case p.loading:
		b.WriteString("Scanning serial ports...")
	case p.err != nil:
		b.WriteString(ui.ErrorStyle.Render(fmt.Sprintf("Scan failed: %v", p.err)))
	case len(p.devices) == 0:
		b.WriteString(ui.DimStyle.Render("No development boards detected. Press d to rescan."))
	default:
		for _, d := range p.devices {
			line := fmt.Sprintf("%-22s %-20s %s:%s", d.Port, d.Board, d.VID, d.PID)
			if d.Board == "unknown" {
				b.WriteString(ui.DimStyle.Render(line))
			} else {
				b.WriteString(line)
			}
			b.WriteString("  " + ui.DimStyle.Render(d.Chip) + "\n")
		}
	}
	return b.String()
}

func (p *DevicesPage) Name() string { return "Devices" }

func (p *DevicesPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "rescan")),
	}
}

func (p *DevicesPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
