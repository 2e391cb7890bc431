package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emberloop/ember/internal/board"
	"github.com/emberloop/ember/internal/memory"
	"github.com/emberloop/ember/internal/sim"
	"github.com/emberloop/ember/internal/toolchain"
)

const (
	DefaultMaxIterations = 3
	DefaultSimTimeout    = 10 * time.Second
)

// Compiler is the slice of toolchain.Compiler the loop needs.
type Compiler interface {
	Compile(ctx context.Context, source, name string, b board.Profile) (toolchain.Result, error)
}

// Analyzer extracts memory usage from a compiled binary.
type Analyzer func(path string, b board.Profile) (memory.Usage, error)

// Progress is called on node state transitions. The iteration is 1-based;
// 0 means the node has not attempted anything yet.
type Progress func(nodeID string, iteration int, status NodeStatus)

// Loop drives the retry state machine for a batch of nodes. Nodes run
// sequentially; each node's history is owned by this loop until terminal.
type Loop struct {
	Registry     *board.Registry
	DefaultBoard string

	Generator CodeGenerator
	Compiler  Compiler
	Backend   sim.Backend
	Analyze   Analyzer // defaults to the size-tool analyzer

	MaxIterations int
	SimTimeout    time.Duration
	Progress      Progress
}

func (l *Loop) maxIterations() int {
	if l.MaxIterations > 0 {
		return l.MaxIterations
	}
	return DefaultMaxIterations
}

func (l *Loop) simTimeout() time.Duration {
	if l.SimTimeout > 0 {
		return l.SimTimeout
	}
	return DefaultSimTimeout
}

func (l *Loop) analyze(path string, b board.Profile) (memory.Usage, error) {
	if l.Analyze != nil {
		return l.Analyze(path, b)
	}
	return memory.Analyze(path, b.SizeTool())
}

func (l *Loop) progress(nodeID string, iteration int, status NodeStatus) {
	if l.Progress != nil {
		l.Progress(nodeID, iteration, status)
	}
}

// Run resolves and preflights every node's board, then processes nodes in
// order. Only run-level preconditions (unknown board, no emulator support,
// missing toolchain) produce an error; per-node failures land in the
// result.
func (l *Loop) Run(ctx context.Context, nodes []NodeSpec) (*RunResult, error) {
	boards := make([]board.Profile, len(nodes))
	checked := make(map[string]bool)
	for i, node := range nodes {
		id := node.Board
		if id == "" {
			id = l.DefaultBoard
		}
		b, err := l.Registry.Lookup(id)
		if err != nil {
			return nil, err
		}
		if !b.SupportsEmulation() {
			return nil, &board.NoEmulatorError{Board: b}
		}
		// Toolchain availability is a run precondition, checked once per
		// board, never per iteration.
		if !checked[b.ID] {
			if err := l.Registry.CheckToolchain(b); err != nil {
				return nil, err
			}
			checked[b.ID] = true
		}
		boards[i] = b
	}

	run := &RunResult{ID: uuid.NewString()}
	for i, node := range nodes {
		run.Nodes = append(run.Nodes, l.runNode(ctx, node, boards[i]))
	}
	return run, nil
}

// runNode is the per-node state machine:
//
//	PENDING -> GENERATING -> COMPILING -> SIMULATING -> TESTING
//	        -> SUCCESS | retry (back to GENERATING) | FAILED
//
// Every per-iteration error is converted into the next attempt's error
// context and never propagates past the node boundary.
func (l *Loop) runNode(ctx context.Context, node NodeSpec, b board.Profile) *NodeResult {
	result := &NodeResult{Spec: node, Board: b.ID, Status: StatusRunning}
	l.progress(node.ID, 0, StatusRunning)

	patterns := requiredPatterns(node.Assertions)
	previousError := ""
	emptyGenerations := 0

	for iteration := 1; iteration <= l.maxIterations(); {
		if ctx.Err() != nil {
			result.Status = StatusCancelled
			l.progress(node.ID, iteration, StatusCancelled)
			return result
		}

		req := Request{
			Board:         b,
			Description:   node.Description,
			Patterns:      patterns,
			PreviousError: previousError,
		}

		source, genErr := l.generate(ctx, req)
		if genErr == nil {
			source = StripFences(source)
			if source == "" && emptyGenerations < l.maxIterations() {
				// Nothing to compile: retry without consuming an attempt.
				emptyGenerations++
				previousError = formatGenerationError("generator returned no source code")
				continue
			}
			if source == "" {
				genErr = errors.New("generator returned no source code repeatedly")
			}
		}

		it := IterationResult{Iteration: iteration, Source: source}
		if genErr != nil {
			it.GenError = genErr.Error()
			previousError = l.record(result, node.ID, it)
			iteration++
			continue
		}

		compile, err := l.Compiler.Compile(ctx, source, iterationName(node.ID, iteration), b)
		if err != nil {
			if ctx.Err() != nil {
				result.Status = StatusCancelled
				l.progress(node.ID, iteration, StatusCancelled)
				return result
			}
			compile = toolchain.Result{OK: false, Stderr: err.Error()}
		}
		it.Compile = compile

		if compile.OK {
			// Pre-validate before booting anything: a binary that cannot
			// fit is a compilation-class failure.
			if usage, err := l.analyze(compile.ELFPath, b); err == nil {
				it.Usage = usage
				it.Violations = b.Validate(usage)
			}

			if len(it.Violations) == 0 {
				simRes, err := l.Backend.Run(ctx, compile.ELFPath, b, l.simTimeout())
				switch {
				case err != nil && ctx.Err() != nil:
					result.Status = StatusCancelled
					l.progress(node.ID, iteration, StatusCancelled)
					return result
				case isEmulatorMissing(err):
					// Retrying cannot install an emulator.
					it.SimError = err.Error()
					result.Iterations = append(result.Iterations, it)
					result.LastReport = BuildErrorReport(it)
					result.Status = StatusFailed
					l.progress(node.ID, iteration, StatusFailed)
					return result
				case err != nil:
					it.SimError = err.Error()
				default:
					it.Sim = &simRes
					it.Assertions = CheckOutput(simRes.Output, node.Assertions)
				}
			}
		}

		if it.Success() {
			result.Iterations = append(result.Iterations, it)
			result.Status = StatusSuccess
			l.progress(node.ID, iteration, StatusSuccess)
			return result
		}

		previousError = l.record(result, node.ID, it)
		iteration++
	}

	// The last recorded iteration already reported StatusFailed, so the
	// budget-exhausted exit emits no extra transition.
	result.Status = StatusFailed
	result.LastReport = previousError
	return result
}

// generate calls the untrusted generator, converting panics into
// generator-class errors so one node can never abort the batch.
func (l *Loop) generate(ctx context.Context, req Request) (source string, err error) {
	defer func() {
		if r := recover(); r != nil {
			source = ""
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	return l.Generator.Generate(ctx, req)
}

// record appends the iteration to the node history and returns the error
// report that feeds the next attempt.
func (l *Loop) record(result *NodeResult, nodeID string, it IterationResult) string {
	result.Iterations = append(result.Iterations, it)
	report := BuildErrorReport(it)
	result.LastReport = report
	l.progress(nodeID, it.Iteration, StatusFailed)
	return report
}

func requiredPatterns(assertions []Assertion) []string {
	var patterns []string
	for _, a := range assertions {
		if a.Required {
			patterns = append(patterns, a.Pattern)
		}
	}
	return patterns
}

func iterationName(nodeID string, iteration int) string {
	return fmt.Sprintf("%s_iter%d", nodeID, iteration)
}

func isEmulatorMissing(err error) bool {
	var missing *sim.EmulatorMissingError
	return errors.As(err, &missing)
}
