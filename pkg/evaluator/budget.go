package evaluator

import (
	"fmt"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/diagnostics"
)

// DefaultMaxCallDepth bounds user function nesting when ExecOptions leaves
// MaxCallDepth unset.
const DefaultMaxCallDepth = 10000

// Budget holds the resource limits for a run. Zero means unlimited.
type Budget struct {
	MaxIterations int64
	MaxCallDepth  int
}

// BudgetTracker tracks resource consumption during a run.
type BudgetTracker struct {
	Iterations int64 `json:"iterations"`
	Calls      int64 `json:"calls"`
	Depth      int   `json:"-"`
	MaxDepth   int   `json:"maxDepth"`
	Prints     int64 `json:"prints"`
}

func (ev *evaluator) checkIterationBudget(span *ast.Span) error {
	ev.tracker.Iterations++
	if ev.budget.MaxIterations > 0 && ev.tracker.Iterations > ev.budget.MaxIterations {
		return ev.fatal(diagnostics.EBudget,
			fmt.Sprintf("iteration budget exceeded (max %d)", ev.budget.MaxIterations), span)
	}
	return ev.checkCancelled(span)
}

func (ev *evaluator) enterCall(name string, span *ast.Span) error {
	if ev.tracker.Depth >= ev.budget.MaxCallDepth {
		return ev.fatal(diagnostics.ERecursion,
			fmt.Sprintf("maximum call depth %d exceeded calling '%s'", ev.budget.MaxCallDepth, name), span)
	}
	if err := ev.checkCancelled(span); err != nil {
		return err
	}
	ev.tracker.Calls++
	ev.tracker.Depth++
	if ev.tracker.Depth > ev.tracker.MaxDepth {
		ev.tracker.MaxDepth = ev.tracker.Depth
	}
	return nil
}

func (ev *evaluator) exitCall() {
	ev.tracker.Depth--
}

func (ev *evaluator) checkCancelled(span *ast.Span) error {
	if ev.ctx == nil {
		return nil
	}
	if err := ev.ctx.Err(); err != nil {
		return ev.fatal(diagnostics.ECancelled, fmt.Sprintf("run cancelled: %v", err), span)
	}
	return nil
}
