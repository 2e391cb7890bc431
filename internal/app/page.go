package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// PageID identifies each page in the application.
type PageID int

const (
	RunPage PageID = iota
	BoardsPage
	DevicesPage
	HistoryPage
)

var PageOrder = []PageID{
	RunPage,
	BoardsPage,
	DevicesPage,
	HistoryPage,
}

// Page is the interface every page in the application implements.
type Page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Page, tea.Cmd)
	View() string
	Name() string
	ShortHelp() []key.Binding
	SetSize(width, height int)
}

// BoardSelectedMsg is broadcast to all pages when a board is chosen on the
// boards page.
type BoardSelectedMsg struct {
	Board string
}
