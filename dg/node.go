// Package dg implements the dependence graph: per-procedure containers of
// program points (DGNode) connected by data-dependence, control-dependence
// and use edges, grouped into basic blocks with a computed post-dominator
// tree and post-dominance frontier.
//
// The design collapses the source's NodeT template parameter into a single
// concrete DGNode carrying a Kind tag; the graph only ever needs the small
// closed set of kinds enumerated below, so compile-time polymorphism buys
// nothing here.
package dg

import "fmt"

// Key uniquely identifies a DGNode within one DependenceGraph. The same
// source symbol may have a different Key in each procedure instance it is
// cloned into.
type Key uint64

// Kind tags what a DGNode represents.
type Kind int

const (
	// KindStmt is a plain instruction.
	KindStmt Kind = iota
	// KindFormalIn is an incoming formal parameter.
	KindFormalIn
	// KindFormalOut is an outgoing formal parameter (named/aliased return).
	KindFormalOut
	// KindGlobal is a reference to a shared global.
	KindGlobal
	// KindEntry is a procedure's unique entry node.
	KindEntry
	// KindExit is a procedure's unique exit node.
	KindExit
	// KindCall represents a call site.
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindStmt:
		return "stmt"
	case KindFormalIn:
		return "formal-in"
	case KindFormalOut:
		return "formal-out"
	case KindGlobal:
		return "global"
	case KindEntry:
		return "entry"
	case KindExit:
		return "exit"
	case KindCall:
		return "call"
	default:
		return "?"
	}
}

// NodeSet is a small identity set of DGNodes, used for both the forward and
// reverse index of each edge kind.
type NodeSet map[*DGNode]struct{}

func (s NodeSet) add(n *DGNode) bool {
	if _, ok := s[n]; ok {
		return false
	}
	s[n] = struct{}{}
	return true
}

func (s NodeSet) remove(n *DGNode) { delete(s, n) }

// DGNode is one program point: an instruction or a formal parameter. Edges
// are kept as both a forward and a reverse index so that isolate() and the
// backward traversal the slicer needs are both O(degree).
type DGNode struct {
	key  Key
	kind Kind
	dg   *DependenceGraph
	Name string

	dataOut, dataIn NodeSet
	ctrlOut, ctrlIn NodeSet
	useOut, useIn   NodeSet

	// CallBinding points at the callee subgraph's entry node for a KindCall
	// node, nil otherwise. The slicer descends through it to cross procedure
	// boundaries without needing a separate call graph.
	CallBinding *DGNode

	// SliceID is the tag set by Slicer.Mark. Nodes whose SliceID does not
	// equal the slicer's current id are pruned by Slicer.Slice.
	SliceID uint64
}

// NewNode allocates a detached DGNode; it is not part of any graph until
// AddNode is called.
func NewNode(key Key, kind Kind) *DGNode {
	return &DGNode{
		key:  key,
		kind: kind,
		dataOut: NodeSet{}, dataIn: NodeSet{},
		ctrlOut: NodeSet{}, ctrlIn: NodeSet{},
		useOut: NodeSet{}, useIn: NodeSet{},
	}
}

// Key returns the node's unique key within its owning graph.
func (n *DGNode) Key() Key { return n.key }

// Kind returns the node's kind tag.
func (n *DGNode) Kind() Kind { return n.kind }

// DG returns the owning dependence graph, or nil if the node has not been
// added to one.
func (n *DGNode) DG() *DependenceGraph { return n.dg }

func (n *DGNode) setDG(g *DependenceGraph) { n.dg = g }

// AddDataDep adds a data-dependence edge from n to to (n writes a value that
// to reads).
func (n *DGNode) AddDataDep(to *DGNode) bool {
	if !n.dataOut.add(to) {
		return false
	}
	to.dataIn.add(n)
	return true
}

// AddCtrlDep adds a control-dependence edge from n to to (to's execution is
// controlled by n's terminator).
func (n *DGNode) AddCtrlDep(to *DGNode) bool {
	if !n.ctrlOut.add(to) {
		return false
	}
	to.ctrlIn.add(n)
	return true
}

// AddUse adds a plain use edge from n to to.
func (n *DGNode) AddUse(to *DGNode) bool {
	if !n.useOut.add(to) {
		return false
	}
	to.useIn.add(n)
	return true
}

// DataDepsOut, DataDepsIn, CtrlDepsOut, CtrlDepsIn, UsesOut and UsesIn expose
// read-only views over the node's edges; callers must not mutate the
// returned maps.
func (n *DGNode) DataDepsOut() NodeSet { return n.dataOut }
func (n *DGNode) DataDepsIn() NodeSet  { return n.dataIn }
func (n *DGNode) CtrlDepsOut() NodeSet { return n.ctrlOut }
func (n *DGNode) CtrlDepsIn() NodeSet  { return n.ctrlIn }
func (n *DGNode) UsesOut() NodeSet     { return n.useOut }
func (n *DGNode) UsesIn() NodeSet      { return n.useIn }

// isolate severs every edge incident to n, in both directions. Called by
// DependenceGraph.RemoveNode before the node is detached from the graph's
// container, mirroring the source's isolate()-then-erase two-step.
func (n *DGNode) isolate() {
	for m := range n.dataOut {
		m.dataIn.remove(n)
	}
	for m := range n.dataIn {
		m.dataOut.remove(n)
	}
	for m := range n.ctrlOut {
		m.ctrlIn.remove(n)
	}
	for m := range n.ctrlIn {
		m.ctrlOut.remove(n)
	}
	for m := range n.useOut {
		m.useIn.remove(n)
	}
	for m := range n.useIn {
		m.useOut.remove(n)
	}
	n.dataOut, n.dataIn = NodeSet{}, NodeSet{}
	n.ctrlOut, n.ctrlIn = NodeSet{}, NodeSet{}
	n.useOut, n.useIn = NodeSet{}, NodeSet{}
}

func (n *DGNode) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s[%d]", n.Name, n.key)
	}
	return fmt.Sprintf("%s[%d]", n.kind, n.key)
}
