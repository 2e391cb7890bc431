package loop

import (
	"context"
	"strings"
	"testing"

	"github.com/emberloop/ember/internal/board"
)

func TestStripFencesPlainText(t *testing.T) {
	src := "int main(void) { return 0; }\n"
	if got := StripFences(src); got != "int main(void) { return 0; }" {
		t.Errorf("plain source mangled: %q", got)
	}
}

func TestStripFencesMarkdown(t *testing.T) {
	text := "Here is the code:\n```c\nint main(void) {\n    return 0;\n}\n```\nHope it helps!"
	got := StripFences(text)

	if !strings.Contains(got, "int main(void)") {
		t.Errorf("code lost: %q", got)
	}
	if strings.Contains(got, "Here is the code") || strings.Contains(got, "Hope it helps") {
		t.Errorf("prose leaked into source: %q", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("fences leaked into source: %q", got)
	}
}

func TestStripFencesMultipleBlocks(t *testing.T) {
	text := "```c\nfirst();\n```\nbetween\n```c\nsecond();\n```"
	got := StripFences(text)
	if !strings.Contains(got, "first();") || !strings.Contains(got, "second();") {
		t.Errorf("expected both blocks, got %q", got)
	}
	if strings.Contains(got, "between") {
		t.Errorf("inter-block prose kept: %q", got)
	}
}

func TestStripFencesEmpty(t *testing.T) {
	if got := StripFences("Sorry, I cannot generate that."); got == "" {
		return // no fences: trimmed prose comes back, fine for this input
	}
	if got := StripFences("```\n```"); got != "" {
		t.Errorf("expected empty source from empty fence, got %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	req := Request{
		Board: board.Profile{
			Name: "LM3S6965 (Stellaris)", Arch: board.CortexM3,
			FlashKB: 256, RAMKB: 64, ClockMHz: 50,
		},
		Description: "blink an LED and print ready",
		Patterns:    []string{"ready"},
	}
	prompt := BuildPrompt(req)

	for _, want := range []string{"LM3S6965", "256KB", "64KB", "blink an LED", `"ready"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Previous attempt failed") {
		t.Error("first attempt should not mention a previous failure")
	}

	req.PreviousError = "Compilation error:\nundefined reference to uart_init"
	prompt = BuildPrompt(req)
	if !strings.Contains(prompt, "undefined reference to uart_init") {
		t.Error("prompt should carry the previous error report")
	}
}

func TestCommandGenerator(t *testing.T) {
	g := &CommandGenerator{Command: []string{"sh", "-c", "cat >/dev/null; echo 'int main(void){return 0;}'"}}
	src, err := g.Generate(context.Background(), Request{Description: "x"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(src, "int main") {
		t.Errorf("unexpected source: %q", src)
	}
}

func TestCommandGeneratorFailure(t *testing.T) {
	g := &CommandGenerator{Command: []string{"sh", "-c", "echo boom 1>&2; exit 1"}}
	_, err := g.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error should carry generator stderr, got %v", err)
	}
}
