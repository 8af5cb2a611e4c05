package pta

import "fmt"

// AssertViolation represents a fatal, internal-invariant failure (e.g. the
// target of a GEP is not an allocation, or a CONSTANT node was not
// pre-populated with exactly one pointer). It aborts the analysis.
type AssertViolation struct {
	Node *PSNode
	Msg  string
}

func (e *AssertViolation) Error() string {
	return fmt.Sprintf("assert-violation at %v: %s", e.Node, e.Msg)
}

// MemcpyUnresolved is raised when a MEMCPY's source or destination has no
// resolvable memory objects. It is fatal: the information loss is global,
// so the analysis aborts rather than continuing unsoundly.
type MemcpyUnresolved struct {
	Node *PSNode
	Side string // "source" or "destination"
}

func (e *MemcpyUnresolved) Error() string {
	return fmt.Sprintf("memcpy-unresolved at %v: could not resolve any memory object for the %s", e.Node, e.Side)
}

// Reporter receives non-fatal diagnostics produced during points-to
// analysis. Implementations should not block or panic.
type Reporter interface {
	Warnf(format string, args ...any)
}

// DiscardReporter silently drops every diagnostic. Useful in tests and as
// the zero-value default.
type DiscardReporter struct{}

// Warnf implements Reporter by doing nothing.
func (DiscardReporter) Warnf(string, ...any) {}

func (e *Engine) reportf(format string, args ...any) {
	if e.Report != nil {
		e.Report.Warnf(format, args...)
	}
}

func assertAlloc(n *PSNode) {
	if n.kind != Alloc && n.kind != DynAlloc && n.kind != Function {
		panic(&AssertViolation{Node: n, Msg: "target is not an allocation"})
	}
}
