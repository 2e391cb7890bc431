package loop

import (
	"fmt"
	"strings"
)

// outputExcerptLimit bounds the actual-output excerpt appended to an error
// report.
const outputExcerptLimit = 1000

// BuildErrorReport synthesizes the structured error text fed back to the
// generator: compilation errors first, then constraint violations, failed
// assertions, and a bounded excerpt of the actual output. The report for
// the last iteration is also what a failed node presents to the user.
func BuildErrorReport(it IterationResult) string {
	var sections []string

	if it.GenError != "" {
		sections = append(sections, formatGenerationError(it.GenError))
	}
	if !it.Compile.OK && it.GenError == "" {
		sections = append(sections, formatCompileErrors(it.Compile.Stderr))
	}
	if len(it.Violations) > 0 {
		sections = append(sections, formatViolations(it.Violations))
	}
	if it.SimError != "" {
		sections = append(sections, formatSimError(it.SimError))
	}
	if failed := failedAssertions(it.Assertions); len(failed) > 0 {
		sections = append(sections, formatAssertionFailures(failed))
		if it.Sim != nil {
			sections = append(sections, formatOutputExcerpt(it.Sim.Output))
		}
	}

	return strings.Join(sections, "\n\n")
}

func failedAssertions(results []AssertionResult) []AssertionResult {
	var failed []AssertionResult
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func formatGenerationError(msg string) string {
	return "Generation error:\n" + msg
}

func formatCompileErrors(stderr string) string {
	return "Compilation error:\n" + stderr
}

func formatViolations(violations []string) string {
	var sb strings.Builder
	sb.WriteString("Memory constraint violations:")
	for _, v := range violations {
		sb.WriteString("\n- " + v)
	}
	return sb.String()
}

func formatSimError(msg string) string {
	return "Simulation error:\n" + msg
}

func formatAssertionFailures(failed []AssertionResult) string {
	var sb strings.Builder
	sb.WriteString("Test failures:")
	for _, r := range failed {
		fmt.Fprintf(&sb, "\n- %s: expected output to contain %q", r.Name, r.Pattern)
		if !r.Required {
			sb.WriteString(" (optional)")
		}
	}
	return sb.String()
}

func formatOutputExcerpt(output string) string {
	if output == "" {
		return "Actual output: (none)"
	}
	return "Actual output:\n" + truncateOutput(output, outputExcerptLimit)
}
