package loop

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/emberloop/ember/internal/board"
)

// Request carries everything a generator needs for one attempt.
type Request struct {
	Board       board.Profile
	Description string
	// Patterns are the required output substrings, in order.
	Patterns []string
	// PreviousError is the prior iteration's error report, empty on the
	// first attempt.
	PreviousError string
}

// CodeGenerator produces C source for a firmware node. Implementations are
// untrusted: output may be wrapped in markdown fences and errors are
// treated as retryable by the loop.
type CodeGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// BuildPrompt renders the generation request as text: board constraints
// first, then the task, required output patterns, and any prior failure.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	b := req.Board
	fmt.Fprintf(&sb, "Target board: %s (%s)\n", b.Name, b.Arch)
	fmt.Fprintf(&sb, "Flash: %dKB, RAM: %dKB, clock: %dMHz\n", b.FlashKB, b.RAMKB, b.ClockMHz)
	sb.WriteString("Generate self-contained bare-metal C firmware for the task below.\n")
	sb.WriteString("Output ONLY valid C code, no markdown fences or explanation.\n\n")
	fmt.Fprintf(&sb, "Task: %s\n", req.Description)

	if len(req.Patterns) > 0 {
		sb.WriteString("\nThe device output must contain, in order:\n")
		for _, p := range req.Patterns {
			fmt.Fprintf(&sb, "  - %q\n", p)
		}
	}

	if req.PreviousError != "" {
		fmt.Fprintf(&sb, "\nPrevious attempt failed with:\n%s\n\nFix the issues.\n", req.PreviousError)
	}
	return sb.String()
}

// StripFences recovers raw source from generator output that may wrap code
// in markdown fences. Text without fences is returned trimmed but
// otherwise untouched.
func StripFences(text string) string {
	if !strings.Contains(text, "```") {
		return strings.TrimSpace(text)
	}
	var code []string
	inCode := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			code = append(code, line)
		}
	}
	return strings.TrimSpace(strings.Join(code, "\n"))
}

// CommandGenerator shells out to an external program: the prompt goes to
// stdin, the generated source comes back on stdout. Any non-zero exit is a
// generator-class (retryable) failure.
type CommandGenerator struct {
	Command []string
}

func (g *CommandGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if len(g.Command) == 0 {
		return "", fmt.Errorf("no generator command configured")
	}
	cmd := exec.CommandContext(ctx, g.Command[0], g.Command[1:]...)
	cmd.Stdin = strings.NewReader(BuildPrompt(req))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("generator %s: %w: %s", g.Command[0], err,
				truncateOutput(stderr.String(), assertExcerptLimit))
		}
		return "", fmt.Errorf("generator %s: %w", g.Command[0], err)
	}
	return stdout.String(), nil
}
