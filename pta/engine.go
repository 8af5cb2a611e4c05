package pta

import "github.com/dgcore/slicer/offset"

// ObjectResolver maps a pointer used at a program point to the memory
// objects it may refer to. A flow-insensitive backend can implement this as
// a constant lookup from pointer.Target to a single object; see
// FlowInsensitiveResolver.
type ObjectResolver func(node *PSNode, p Pointer) []*MemoryObject

// FunctionPointerCallback is invoked whenever CALL_FUNCPTR's transfer
// function discovers a new callee. The callback may splice new PSNodes into
// the subgraph via Engine.Schedule; the callee's ENTRY is expected to be
// (re-)scheduled by the callback itself.
type FunctionPointerCallback func(call *PSNode, target *PSNode)

// FlowInsensitiveResolver builds an ObjectResolver backed by a constant
// target -> object map, as permitted by the frontend contract for backends
// that do not distinguish memory objects by program point.
func FlowInsensitiveResolver(objects map[*PSNode]*MemoryObject) ObjectResolver {
	return func(_ *PSNode, p Pointer) []*MemoryObject {
		if o, ok := objects[p.Target]; ok {
			return []*MemoryObject{o}
		}
		return nil
	}
}

// Engine is the worklist fixpoint solver for the points-to analysis.
type Engine struct {
	Nodes             []*PSNode
	MaxOffset         offset.Offset
	InvalidateNodes   bool
	Resolve           ObjectResolver
	OnFunctionPointer FunctionPointerCallback
	Report            Reporter

	queue   []*PSNode
	queued  map[*PSNode]bool
	changes int
}

// NewEngine builds an Engine ready to run over nodes.
func NewEngine(nodes []*PSNode, resolve ObjectResolver, onFuncPtr FunctionPointerCallback, report Reporter) *Engine {
	return &Engine{
		Nodes:           nodes,
		MaxOffset:       offset.DefaultMaxOffset,
		InvalidateNodes: false,
		Resolve:         resolve,
		OnFunctionPointer: onFuncPtr,
		Report:          report,
		queued:          map[*PSNode]bool{},
	}
}

// Schedule enqueues n for (re-)processing. Frontends splicing new subgraphs
// in from a FunctionPointerCallback call this to schedule the new ENTRY.
func (e *Engine) Schedule(n *PSNode) {
	if e.queued[n] {
		return
	}
	e.queued[n] = true
	e.queue = append(e.queue, n)
}

// Changes returns the number of node visits performed by the last Run. It
// is exposed only for debugging/inspection, not used for correctness.
func (e *Engine) Changes() int { return e.changes }

// Run executes the worklist to a fixpoint. It returns a non-nil error only
// for fatal conditions (assert-violation, memcpy-unresolved); non-fatal
// diagnostics go to e.Report and do not stop the analysis.
func (e *Engine) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if av, ok := r.(*AssertViolation); ok {
				err = av
				return
			}
			panic(r)
		}
	}()

	e.changes = 0
	for _, n := range e.Nodes {
		e.Schedule(n)
	}

	for len(e.queue) > 0 {
		n := e.queue[0]
		e.queue = e.queue[1:]
		e.queued[n] = false
		e.changes++

		changed, terr := e.processNode(n)
		if terr != nil {
			return terr
		}
		if changed {
			for _, succ := range n.Successors {
				e.Schedule(succ)
			}
		}
	}
	return nil
}

func ltOffset(a, b offset.Offset) bool { return a.Le(b) && !a.Eq(b) }

func (e *Engine) processNode(n *PSNode) (bool, error) {
	switch n.kind {
	case Load:
		return e.processLoad(n)
	case Store:
		return e.processStore(n), nil
	case Gep:
		return e.processGep(n), nil
	case Cast:
		changed := false
		for p := range n.Operands[0].PointsTo() {
			if n.AddPointsTo(p) {
				changed = true
			}
		}
		return changed, nil
	case Phi, Return:
		return e.processUnion(n), nil
	case CallReturn:
		return e.processCallReturn(n), nil
	case CallFuncPtr:
		return e.processCallFuncPtr(n), nil
	case Memcpy:
		return e.processMemcpy(n)
	case Constant:
		if len(n.pointsTo) != 1 {
			panic(&AssertViolation{Node: n, Msg: "constant node must have exactly one pointer"})
		}
		return false, nil
	case InvalidateLocals:
		n.Parent = n.Operands[0].SingleSuccessor().Parent
		return false, nil
	case Alloc, DynAlloc, Function, Call, Entry, Noop, Free:
		return false, nil
	default:
		panic(&AssertViolation{Node: n, Msg: "unknown node kind in processNode"})
	}
}

func (e *Engine) processLoad(n *PSNode) (bool, error) {
	op := n.Operands[0]
	if len(op.PointsTo()) == 0 {
		e.reportf("empty-operand: load %v's operand has an empty points-to set", n)
	}

	changed := false
	for p := range op.PointsTo() {
		if !p.IsValid() || p.IsInvalidated() {
			continue
		}
		if p.IsUnknown() {
			if n.AddPointsTo(PointerUnknown) {
				changed = true
			}
			continue
		}

		assertAlloc(p.Target)
		target := p.Target
		objs := e.Resolve(n, p)
		if len(objs) == 0 {
			if target.AllocZeroInit {
				if n.AddPointsTo(PointerNull) {
					changed = true
				}
			} else {
				e.reportf("empty-points-to-load: %v resolved to no memory object for %v", n, target)
			}
			continue
		}

		for _, o := range objs {
			if p.Offset.IsUnknown() {
				if o.IsEmpty() {
					if target.AllocZeroInit {
						if n.AddPointsTo(PointerNull) {
							changed = true
						}
					} else if len(objs) == 1 {
						e.reportf("empty-points-to-load: %v resolved to an empty object for %v", n, target)
					}
				}
				for _, set := range o.Offsets() {
					for q := range set {
						if n.AddPointsTo(q) {
							changed = true
						}
					}
				}
				continue
			}

			if set, ok := o.PointsTo(p.Offset); ok {
				for q := range set {
					if n.AddPointsTo(q) {
						changed = true
					}
				}
			} else if target.AllocZeroInit {
				if n.AddPointsTo(PointerNull) {
					changed = true
				}
			} else if _, ok := o.PointsTo(offset.Unknown); !ok {
				e.reportf("empty-points-to-load: %v found no entry at offset %v in %v", n, p.Offset, target)
			}

			if set, ok := o.PointsTo(offset.Unknown); ok {
				for q := range set {
					if n.AddPointsTo(q) {
						changed = true
					}
				}
			}
		}
	}
	return changed, nil
}

func (e *Engine) processStore(n *PSNode) bool {
	src, dst := n.Operands[0], n.Operands[1]
	changed := false
	for p := range dst.PointsTo() {
		if p.IsNull() {
			continue
		}
		if !p.IsUnknown() {
			assertAlloc(p.Target)
		}
		for _, o := range e.Resolve(n, p) {
			for q := range src.PointsTo() {
				if o.AddPointsTo(p.Offset, q) {
					changed = true
				}
			}
		}
	}
	return changed
}

func (e *Engine) processGep(n *PSNode) bool {
	src := n.Operands[0]
	changed := false
	for p := range src.PointsTo() {
		if !p.IsValid() {
			continue
		}
		assertAlloc(p.Target)
		target := p.Target

		var raw offset.Offset
		if p.Offset.IsUnknown() || n.GepOffset.IsUnknown() {
			raw = offset.Unknown
		} else {
			raw = p.Offset.Add(n.GepOffset, offset.Unknown)
		}

		concrete := !raw.IsUnknown() && (raw == 0 || ltOffset(raw, target.AllocSize)) && ltOffset(raw, e.MaxOffset)
		if concrete {
			if n.AddPointsTo(Pointer{Target: target, Offset: raw}) {
				changed = true
			}
		} else if n.AddPointsToUnknownOffset(target) {
			changed = true
		}
	}
	return changed
}

func (e *Engine) processUnion(n *PSNode) bool {
	changed := false
	for _, op := range n.Operands {
		for p := range op.PointsTo() {
			if n.AddPointsTo(p) {
				changed = true
			}
		}
	}
	return changed
}

func (e *Engine) processCallReturn(n *PSNode) bool {
	changed := e.processUnion(n)
	if !e.InvalidateNodes {
		return changed
	}
	for _, op := range n.Operands {
		for p := range op.PointsTo() {
			if !p.IsValid() {
				continue
			}
			assertAlloc(p.Target)
			if !p.Target.IsHeap() && !p.Target.Global {
				if n.AddPointsTo(PointerInvalidated()) {
					changed = true
				}
			}
		}
	}
	return changed
}

func (e *Engine) processCallFuncPtr(n *PSNode) bool {
	op := n.Operands[0]
	changed := false
	for p := range op.PointsTo() {
		if n.AddPointsTo(p) {
			changed = true
			if p.IsValid() && !p.IsInvalidated() {
				if e.OnFunctionPointer != nil {
					e.OnFunctionPointer(n, p.Target)
				}
			} else {
				e.reportf("invalid-function-call: %v calls an invalid pointer %v", n, p)
			}
		}
	}
	return changed
}

func (e *Engine) processMemcpy(n *PSNode) (bool, error) {
	srcNode, dstNode, length := n.MemcpySource, n.MemcpyDest, n.MemcpyLen
	changed := false
	for sp := range srcNode.PointsTo() {
		if !sp.IsValid() || sp.IsInvalidated() {
			continue
		}
		srcObjs := e.Resolve(n, sp)
		if len(srcObjs) == 0 {
			return changed, &MemcpyUnresolved{Node: n, Side: "source"}
		}

		for dp := range dstNode.PointsTo() {
			if !dp.IsValid() || dp.IsInvalidated() {
				continue
			}
			dstObjs := e.Resolve(n, dp)
			if len(dstObjs) == 0 {
				return changed, &MemcpyUnresolved{Node: n, Side: "destination"}
			}

			if e.copyMemory(srcObjs, dstObjs, sp, dp, length) {
				changed = true
			}
		}
	}
	return changed, nil
}

func (e *Engine) copyMemory(srcObjs, dstObjs []*MemoryObject, sp, dp Pointer, length offset.Offset) bool {
	changed := false
	srcOffset, dstOffset := sp.Offset, dp.Offset
	sourceAlloc, destAlloc := sp.Target, dp.Target

	containsNullSomewhere := false
	if sourceAlloc.AllocZeroInit {
		wholeObject := !sourceAlloc.AllocSize.IsUnknown() &&
			sourceAlloc.AllocSize.Eq(destAlloc.AllocSize) &&
			length.Eq(sourceAlloc.AllocSize) &&
			srcOffset == 0
		if wholeObject {
			destAlloc.AllocZeroInit = true
		} else {
			containsNullSomewhere = true
		}
	}

	for _, destO := range dstObjs {
		if containsNullSomewhere {
			if destO.AddPointsTo(offset.Unknown, PointerNull) {
				changed = true
			}
		}

		for _, srcO := range srcObjs {
			for srcOff, srcSet := range srcO.Offsets() {
				inRange := srcOff.IsUnknown() || srcOffset.IsUnknown() ||
					(srcOffset.Le(srcOff) && (length.IsUnknown() || ltOffset(srcOff.Sub(srcOffset), length)))
				if !inRange {
					continue
				}

				landOff := offset.Unknown
				unknownDst := srcOff.IsUnknown() || srcOffset.IsUnknown() || dstOffset.IsUnknown()
				if !unknownDst {
					diff := srcOff.Sub(srcOffset)
					if diff.IsUnknown() {
						unknownDst = true
					} else {
						newOff := diff.Add(dstOffset, offset.Unknown)
						if !newOff.IsUnknown() && ltOffset(newOff, destO.Alloc.AllocSize) && ltOffset(newOff, e.MaxOffset) {
							landOff = newOff
						}
					}
				}

				for q := range srcSet {
					if destO.AddPointsTo(landOff, q) {
						changed = true
					}
				}
			}
		}
	}
	return changed
}
