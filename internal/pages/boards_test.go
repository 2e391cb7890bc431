package pages

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emberloop/ember/internal/app"
	"github.com/emberloop/ember/internal/board"
)

func TestBoardsPageListsCatalog(t *testing.T) {
	p := NewBoardsPage(board.Default(), "lm3s6965")
	p.SetSize(100, 40)
	view := p.View()

	for _, want := range []string{"lm3s6965", "esp32", "stm32f401re", "arduino_uno"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing board %q", want)
		}
	}
}

func TestBoardsPageSelectEmitsMessage(t *testing.T) {
	p := NewBoardsPage(board.Default(), "")
	p.SetSize(100, 40)

	// Move to the second board and select it.
	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	page, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a selection command")
	}

	msg, ok := cmd().(app.BoardSelectedMsg)
	if !ok {
		t.Fatalf("expected BoardSelectedMsg, got %T", cmd())
	}
	want := board.Default().Profiles()[1].ID
	if msg.Board != want {
		t.Errorf("expected %q selected, got %q", want, msg.Board)
	}
	if bp := page.(*BoardsPage); bp.selected != want {
		t.Errorf("page selection not updated: %q", bp.selected)
	}
}

func TestBoardsPageCursorBounds(t *testing.T) {
	p := NewBoardsPage(board.Default(), "")
	p.Update(tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Errorf("cursor should not go negative, got %d", p.cursor)
	}

	for i := 0; i < 100; i++ {
		p.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if p.cursor != len(p.profiles)-1 {
		t.Errorf("cursor should clamp to last board, got %d", p.cursor)
	}
}
