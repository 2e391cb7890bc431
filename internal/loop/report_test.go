package loop

import (
	"strings"
	"testing"

	"github.com/emberloop/ember/internal/sim"
	"github.com/emberloop/ember/internal/toolchain"
)

func TestReportCompileFailure(t *testing.T) {
	it := IterationResult{
		Iteration: 1,
		Compile:   toolchain.Result{OK: false, Stderr: "node.c:3: error: expected ';'"},
	}
	report := BuildErrorReport(it)

	if !strings.Contains(report, "Compilation error:") {
		t.Errorf("missing compilation section: %q", report)
	}
	if !strings.Contains(report, "expected ';'") {
		t.Errorf("compiler stderr not verbatim: %q", report)
	}
}

func TestReportConstraintViolation(t *testing.T) {
	it := IterationResult{
		Iteration:  1,
		Compile:    toolchain.Result{OK: true, ELFPath: "x.elf"},
		Violations: []string{"Flash overflow: 307200 bytes used / 262144 bytes available (117%)"},
	}
	report := BuildErrorReport(it)

	for _, want := range []string{"Flash", "307200", "262144"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q: %q", want, report)
		}
	}
}

func TestReportSectionOrdering(t *testing.T) {
	it := IterationResult{
		Iteration:  2,
		Compile:    toolchain.Result{OK: true},
		Violations: []string{"RAM overflow: 70000 bytes used / 65536 bytes available (107%)"},
		Sim:        &sim.Result{Ran: true, Output: "booting"},
		Assertions: []AssertionResult{
			{Name: "ready", Pattern: "ready", Required: true, Passed: false},
		},
	}
	report := BuildErrorReport(it)

	vi := strings.Index(report, "Memory constraint violations:")
	ti := strings.Index(report, "Test failures:")
	oi := strings.Index(report, "Actual output:")
	if vi < 0 || ti < 0 || oi < 0 {
		t.Fatalf("missing sections in report: %q", report)
	}
	if !(vi < ti && ti < oi) {
		t.Errorf("sections out of order: violations=%d tests=%d output=%d", vi, ti, oi)
	}
}

func TestReportAssertionFailureDetails(t *testing.T) {
	it := IterationResult{
		Compile: toolchain.Result{OK: true},
		Sim:     &sim.Result{Ran: true, TimedOut: true, Output: "hello world"},
		Assertions: []AssertionResult{
			{Name: "greeting", Pattern: "goodbye", Required: true, Passed: false},
			{Name: "extra", Pattern: "bonus", Required: false, Passed: false},
		},
	}
	report := BuildErrorReport(it)

	if !strings.Contains(report, `"goodbye"`) {
		t.Errorf("missing expected pattern: %q", report)
	}
	if !strings.Contains(report, "(optional)") {
		t.Errorf("optional failures should be marked: %q", report)
	}
	if !strings.Contains(report, "hello world") {
		t.Errorf("missing actual output excerpt: %q", report)
	}
}

func TestReportOutputBounded(t *testing.T) {
	it := IterationResult{
		Compile: toolchain.Result{OK: true},
		Sim:     &sim.Result{Ran: true, Output: strings.Repeat("spam ", 1000)},
		Assertions: []AssertionResult{
			{Name: "x", Pattern: "absent", Required: true, Passed: false},
		},
	}
	report := BuildErrorReport(it)
	if len(report) > outputExcerptLimit+500 {
		t.Errorf("report not bounded: %d bytes", len(report))
	}
}

func TestReportGenerationError(t *testing.T) {
	it := IterationResult{GenError: "generator timed out"}
	report := BuildErrorReport(it)
	if !strings.Contains(report, "Generation error:") || !strings.Contains(report, "generator timed out") {
		t.Errorf("unexpected report: %q", report)
	}
	if strings.Contains(report, "Compilation error:") {
		t.Errorf("generation failures must not claim a compile happened: %q", report)
	}
}
