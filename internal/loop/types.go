// Package loop runs the generate -> compile -> simulate -> test feedback
// cycle for each firmware node until it passes or the iteration budget is
// exhausted.
package loop

import (
	"github.com/emberloop/ember/internal/memory"
	"github.com/emberloop/ember/internal/sim"
	"github.com/emberloop/ember/internal/toolchain"
)

// Assertion is a substring that must (or should) appear in the emulated
// device output.
type Assertion struct {
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Required bool   `json:"required"`
}

// NodeSpec is one unit of firmware to produce.
type NodeSpec struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Assertions  []Assertion `json:"assertions"`
	// Board overrides the run's default board when set.
	Board string `json:"board,omitempty"`
}

// AssertionResult records one assertion's verdict. On failure Excerpt holds
// a bounded slice of the actual output for diagnostics.
type AssertionResult struct {
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Required bool   `json:"required"`
	Passed   bool   `json:"passed"`
	Excerpt  string `json:"excerpt,omitempty"`
}

// IterationResult is one attempt's full record.
type IterationResult struct {
	Iteration  int
	Source     string
	GenError   string // generator-class failure; the attempt stopped here
	Compile    toolchain.Result
	Usage      memory.Usage
	Violations []string
	SimError   string      // backend refused or errored before producing a result
	Sim        *sim.Result // nil when simulation was skipped
	Assertions []AssertionResult
}

// Success reports whether this attempt cleared every gate: the source
// compiled, the binary fit the board, and all required assertions passed.
func (r IterationResult) Success() bool {
	if r.GenError != "" || !r.Compile.OK || len(r.Violations) > 0 || r.SimError != "" {
		return false
	}
	return RequiredPassed(r.Assertions)
}

// NodeStatus is a node's terminal (or in-flight) state.
type NodeStatus string

const (
	StatusPending   NodeStatus = "pending"
	StatusRunning   NodeStatus = "running"
	StatusSuccess   NodeStatus = "success"
	StatusFailed    NodeStatus = "failed"
	StatusCancelled NodeStatus = "cancelled"
)

// NodeResult is the append-only history of one node's run. It is owned
// exclusively by the loop instance until the status is terminal.
type NodeResult struct {
	Spec       NodeSpec
	Board      string
	Status     NodeStatus
	Iterations []IterationResult
	// LastReport is the final iteration's error report. On failure this is
	// what the user sees: the most recent attempt is the most informative.
	LastReport string
}

// RunResult collects every node's history for one run.
type RunResult struct {
	ID    string
	Nodes []*NodeResult
}

// Succeeded reports whether every node reached StatusSuccess.
func (r *RunResult) Succeeded() bool {
	for _, n := range r.Nodes {
		if n.Status != StatusSuccess {
			return false
		}
	}
	return true
}
