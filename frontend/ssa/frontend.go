// Package ssa is the reference frontend: it builds the pointer subgraph
// (package pta) and the dependence graph (package dg) for a program loaded
// as golang.org/x/tools/go/ssa, instruction by instruction.
//
// Every dg.DGNode of kind KindStmt that the frontend creates has a matching
// pta.PSNode reachable through Frontend.PSNode, which is what lets the
// reaching-definitions and def-use packages walk both graphs in lockstep
// without the frontend having to hand them a combined data structure.
package ssa

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/go/ssa"

	"github.com/dgcore/slicer/config"
	"github.com/dgcore/slicer/defuse"
	"github.com/dgcore/slicer/dg"
	"github.com/dgcore/slicer/offset"
	"github.com/dgcore/slicer/pta"
	"github.com/dgcore/slicer/rda"
)

// Frontend translates ssa.Functions into a pointer subgraph and a
// dependence graph sharing one key space, one program point per
// instruction.
type Frontend struct {
	Program *ssa.Program
	Log     *config.LogGroup

	subgraphs  map[*ssa.Function]*pta.Subgraph
	graphs     map[*ssa.Function]*dg.DependenceGraph
	blocks     map[*ssa.Function][]*dg.BasicBlock
	byName     map[string]*ssa.Function
	psOf       map[*dg.DGNode]*pta.PSNode
	psOfVal    map[ssa.Value]*pta.PSNode
	dgOfVal    map[ssa.Value]*dg.DGNode
	objects    map[*pta.PSNode]*pta.MemoryObject
	formalsOf  map[*ssa.Function][]*pta.PSNode
	formalDGOf map[*ssa.Function][]*dg.DGNode
	graphOf    map[*pta.Subgraph]*dg.DependenceGraph
	callDG     map[*pta.PSNode]*dg.DGNode
	callArgsDG map[*pta.PSNode][]*dg.DGNode

	nextKey uint64
}

// New builds an empty Frontend over prog. log may be nil, in which case
// catch-all instructions still become NOOP nodes but are not logged.
func New(prog *ssa.Program, log *config.LogGroup) *Frontend {
	return &Frontend{
		Program:    prog,
		Log:        log,
		subgraphs:  map[*ssa.Function]*pta.Subgraph{},
		graphs:     map[*ssa.Function]*dg.DependenceGraph{},
		blocks:     map[*ssa.Function][]*dg.BasicBlock{},
		byName:     map[string]*ssa.Function{},
		psOf:       map[*dg.DGNode]*pta.PSNode{},
		psOfVal:    map[ssa.Value]*pta.PSNode{},
		dgOfVal:    map[ssa.Value]*dg.DGNode{},
		objects:    map[*pta.PSNode]*pta.MemoryObject{},
		formalsOf:  map[*ssa.Function][]*pta.PSNode{},
		formalDGOf: map[*ssa.Function][]*dg.DGNode{},
		graphOf:    map[*pta.Subgraph]*dg.DependenceGraph{},
		callDG:     map[*pta.PSNode]*dg.DGNode{},
		callArgsDG: map[*pta.PSNode][]*dg.DGNode{},
	}
}

// BuildAll builds every function with a body in pkgs, so that every
// statically-visible call has a callee subgraph ready before the points-to
// engine runs. Functions reachable only through a dynamic call are built
// lazily, from translateCall/OnFunctionPointer.
func (f *Frontend) BuildAll(pkgs []*ssa.Package) {
	for _, p := range pkgs {
		if p == nil {
			continue
		}
		for _, member := range p.Members {
			if fn, ok := member.(*ssa.Function); ok && fn.Blocks != nil {
				f.BuildFunction(fn)
			}
		}
	}
}

// FunctionByName returns the built function named name, or nil. Matches by
// ssa.Function.Name(), i.e. unqualified by package, mirroring the
// criterion surface spec.md §6 describes.
func (f *Frontend) FunctionByName(name string) *ssa.Function {
	return f.byName[name]
}

// Blocks returns the basic blocks built for fn.
func (f *Frontend) Blocks(fn *ssa.Function) []*dg.BasicBlock {
	return f.blocks[fn]
}

// Graphs returns every dependence graph the frontend has built so far,
// keyed by the owning *ssa.Function.
func (f *Frontend) Graphs() map[*ssa.Function]*dg.DependenceGraph {
	return f.graphs
}

// LinkDataDependencies runs reaching-definitions (package rda) and the
// def-use linker (package defuse) over every built function, adding the
// STORE -> LOAD data-dependence edges the points-to analysis alone does
// not produce. Call this once, after Engine.Run has reached a fixpoint, so
// the points-to sets the linker consults are final.
func (f *Frontend) LinkDataDependencies() int {
	resolve := f.Resolver()
	added := 0
	for fn, g := range f.graphs {
		blocks := f.blocks[fn]
		analysis := rda.NewAnalysis(blocks, f.PSNode, resolve)
		analysis.Run()

		nodes := make([]*dg.DGNode, 0, g.Size())
		for _, n := range g.Nodes() {
			nodes = append(nodes, n)
		}
		linker := &defuse.Linker{RDA: analysis, PSNodeOf: f.PSNode, Resolve: resolve}
		added += linker.Run(nodes)
	}
	return added
}

// PSNode returns the PSNode paired with a dg statement node, the lookup
// function package rda and package defuse need as PSNodeOf.
func (f *Frontend) PSNode(n *dg.DGNode) *pta.PSNode { return f.psOf[n] }

// Resolver returns the flow-insensitive ObjectResolver backed by every
// memory object the frontend has allocated so far.
func (f *Frontend) Resolver() pta.ObjectResolver {
	return pta.FlowInsensitiveResolver(f.objects)
}

// DependenceGraph returns the dependence graph built for fn, if any.
func (f *Frontend) DependenceGraph(fn *ssa.Function) *dg.DependenceGraph {
	return f.graphs[fn]
}

// AllPSNodes returns every PSNode the frontend has created, for handing to
// pta.Engine. Nodes are grouped by subgraph, in creation order within each
// subgraph; the order of the subgraphs themselves is not defined.
func (f *Frontend) AllPSNodes() []*pta.PSNode {
	var nodes []*pta.PSNode
	for _, sg := range f.subgraphs {
		nodes = append(nodes, sg.Nodes...)
	}
	return nodes
}

func (f *Frontend) key() dg.Key {
	f.nextKey++
	return dg.Key(f.nextKey)
}

// newPair allocates one PSNode of kind k and one dg.DGNode sharing a fresh
// key, linking them in f.psOf, without inserting the dg node anywhere.
func (f *Frontend) newPair(sg *pta.Subgraph, k pta.Kind, kind dg.Kind, name string) (*dg.DGNode, *pta.PSNode) {
	ps := pta.NewNode(k)
	ps.Name = name
	ps.Parent = sg
	sg.Nodes = append(sg.Nodes, ps)

	n := dg.NewNode(f.key(), kind)
	n.Name = name
	f.psOf[n] = ps
	return n, ps
}

// pair is newPair followed by AddNode into g's local node container; used
// for every statement kind except formal parameters, which the caller adds
// via AddFormal instead.
func (f *Frontend) pair(g *dg.DependenceGraph, sg *pta.Subgraph, k pta.Kind, kind dg.Kind, name string) (*dg.DGNode, *pta.PSNode) {
	n, ps := f.newPair(sg, k, kind, name)
	g.AddNode(n.Key(), n)
	return n, ps
}

// allocSelfPointer pre-populates ps's self pointer, as the "every
// ALLOC|DYN_ALLOC|FUNCTION node has (self, 0) in its points-to set"
// invariant requires. newPair/pair build every PSNode through the same
// plain pta.NewNode regardless of kind, so the two allocation-site call
// sites (ssa.Alloc and FUNCTION, via MakeClosure or a bare function value)
// call this explicitly instead of going through pta.NewAllocNode.
func allocSelfPointer(ps *pta.PSNode) {
	ps.AddPointsTo(pta.Pointer{Target: ps, Offset: 0})
}

// linkOperand appends op to ps's operand list and, symmetrically, ps to
// op's successor list. Engine.Run only re-schedules a changed node's
// Successors, so every Operands edge the frontend creates needs this
// reverse link or the fixpoint never revisits ps once op's points-to set
// grows after ps was first processed.
func linkOperand(ps, op *pta.PSNode) {
	ps.Operands = append(ps.Operands, op)
	op.Successors = append(op.Successors, ps)
}

// linkOperands is linkOperand for an operand list built all at once.
func linkOperands(ps *pta.PSNode, operands ...*pta.PSNode) {
	for _, op := range operands {
		linkOperand(ps, op)
	}
}

// BuildFunction translates fn into a pointer subgraph and a dependence
// graph, storing both under fn for later retrieval. It is memoized: a second
// call for the same fn returns the graphs already built. translateCall calls
// it for each static callee before binding that call's actuals to the
// callee's formals, so a callee's subgraph always exists by then.
func (f *Frontend) BuildFunction(fn *ssa.Function) (*dg.DependenceGraph, *pta.Subgraph) {
	if g, ok := f.graphs[fn]; ok {
		return g, f.subgraphs[fn]
	}

	g := dg.NewGraph(fn.Name())
	sg := &pta.Subgraph{Name: fn.Name()}
	f.graphs[fn] = g
	f.subgraphs[fn] = sg
	f.byName[fn.Name()] = fn
	f.graphOf[sg] = g

	entryN, entryPS := f.pair(g, sg, pta.Entry, dg.KindEntry, fn.Name()+".entry")
	g.SetEntry(entryN)
	sg.Entry = entryPS

	formals := make([]*pta.PSNode, 0, len(fn.Params))
	formalNodes := make([]*dg.DGNode, 0, len(fn.Params))
	for i, param := range fn.Params {
		// A formal-in is PHI-kind, not an allocation: its points-to set is
		// whatever the actual arguments bound to it contribute, unioned
		// across every call site translateCall links in, not an address of
		// its own. It gets no self pointer.
		formalN, formalPS := f.newPair(sg, pta.Phi, dg.KindFormalIn, fmt.Sprintf("%s.param%d", fn.Name(), i))
		g.AddFormal(formalN.Key(), formalN)
		f.psOfVal[param] = formalPS
		f.dgOfVal[param] = formalN
		entryN.AddCtrlDep(formalN)
		formals = append(formals, formalPS)
		formalNodes = append(formalNodes, formalN)
	}
	f.formalsOf[fn] = formals
	f.formalDGOf[fn] = formalNodes

	blocks := make(map[*ssa.BasicBlock]*dg.BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blocks[b] = dg.NewBasicBlock(b.Index)
	}
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			dg.AddSuccessor(blocks[b], blocks[succ])
		}
	}

	var exitN *dg.DGNode
	for _, b := range fn.Blocks {
		bb := blocks[b]
		for _, instr := range b.Instrs {
			n, ret := f.translateInstr(g, sg, instr)
			if n != nil {
				bb.Nodes = append(bb.Nodes, n)
			}
			if ret {
				exitN = n
			}
		}
		if len(bb.Nodes) == 0 {
			// Keep the post-dominator computation total: a block with no
			// statement (e.g. an unreachable block) still needs a node.
			noop, _ := f.pair(g, sg, pta.Noop, dg.KindStmt, fmt.Sprintf("%s.noop%d", fn.Name(), b.Index))
			bb.Nodes = append(bb.Nodes, noop)
		}
	}

	if exitN == nil {
		exitN, _ = f.pair(g, sg, pta.Noop, dg.KindExit, fn.Name()+".exit")
	}
	g.SetExit(exitN)

	allBlocks := make([]*dg.BasicBlock, 0, len(blocks))
	for _, b := range fn.Blocks {
		allBlocks = append(allBlocks, blocks[b])
	}
	if len(allBlocks) > 0 {
		dg.ComputePostDominators(allBlocks)
		dg.ComputePDFrontier(allBlocks)
		dg.AddControlDependencies(allBlocks)
	}
	f.blocks[fn] = allBlocks

	return g, sg
}

// translateInstr handles one ssa.Instruction, returning the dg node it
// produced (nil only for an *ssa.UnOp that is not a dereference; every
// unhandled instruction kind, *ssa.DebugRef included, becomes a NOOP node)
// and whether it is the function's return statement.
func (f *Frontend) translateInstr(g *dg.DependenceGraph, sg *pta.Subgraph, instr ssa.Instruction) (*dg.DGNode, bool) {
	switch v := instr.(type) {
	case *ssa.Alloc:
		n, ps := f.pair(g, sg, pta.Alloc, dg.KindStmt, v.Name())
		ps.AllocSize = offset.DefaultMaxOffset
		ps.AllocZeroInit = true
		allocSelfPointer(ps)
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		f.objects[ps] = pta.NewMemoryObject(ps)
		return n, false

	case *ssa.Store:
		n, ps := f.pair(g, sg, pta.Store, dg.KindStmt, "store")
		linkOperands(ps, f.valueNode(g, sg, v.Val), f.valueNode(g, sg, v.Addr))
		return n, false

	case *ssa.UnOp:
		if v.Op == token.MUL {
			n, ps := f.pair(g, sg, pta.Load, dg.KindStmt, "load")
			linkOperand(ps, f.valueNode(g, sg, v.X))
			f.psOfVal[v] = ps
			f.dgOfVal[v] = n
			return n, false
		}
		return nil, false

	case *ssa.FieldAddr:
		n, ps := f.pair(g, sg, pta.Gep, dg.KindStmt, "field-addr")
		ps.GepOffset = offset.Offset(v.Field)
		linkOperand(ps, f.valueNode(g, sg, v.X))
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		return n, false

	case *ssa.IndexAddr:
		n, ps := f.pair(g, sg, pta.Gep, dg.KindStmt, "index-addr")
		if c, ok := v.Index.(*ssa.Const); ok && c.Value != nil {
			ps.GepOffset = offset.Offset(c.Int64())
		} else {
			ps.GepOffset = offset.Unknown
		}
		linkOperand(ps, f.valueNode(g, sg, v.X))
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		return n, false

	case *ssa.ChangeType:
		n, ps := f.pair(g, sg, pta.Cast, dg.KindStmt, "change-type")
		linkOperand(ps, f.valueNode(g, sg, v.X))
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		return n, false

	case *ssa.Convert:
		n, ps := f.pair(g, sg, pta.Cast, dg.KindStmt, "convert")
		linkOperand(ps, f.valueNode(g, sg, v.X))
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		return n, false

	case *ssa.ChangeInterface:
		n, ps := f.pair(g, sg, pta.Cast, dg.KindStmt, "change-interface")
		linkOperand(ps, f.valueNode(g, sg, v.X))
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		return n, false

	case *ssa.Phi:
		n, ps := f.pair(g, sg, pta.Phi, dg.KindStmt, "phi")
		for _, edge := range v.Edges {
			linkOperand(ps, f.valueNode(g, sg, edge))
		}
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		return n, false

	case *ssa.MakeClosure:
		n, ps := f.pair(g, sg, pta.Function, dg.KindStmt, "make-closure")
		if owned, ok := v.Fn.(*ssa.Function); ok {
			_, ownedSg := f.BuildFunction(owned)
			ps.Owned = ownedSg
		}
		ps.AllocSize = offset.DefaultMaxOffset
		allocSelfPointer(ps)
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
		f.objects[ps] = pta.NewMemoryObject(ps)
		for _, bound := range v.Bindings {
			store, storePs := f.pair(g, sg, pta.Store, dg.KindStmt, "bound-var")
			linkOperands(storePs, f.valueNode(g, sg, bound), ps)
			n.AddDataDep(store)
		}
		return n, false

	case *ssa.Call:
		return f.translateCall(g, sg, v, &v.Call), false

	case *ssa.Go:
		return f.translateCall(g, sg, v, &v.Call), false

	case *ssa.Defer:
		return f.translateCall(g, sg, v, &v.Call), false

	case *ssa.Return:
		n, ps := f.pair(g, sg, pta.Return, dg.KindStmt, "return")
		for _, r := range v.Results {
			linkOperand(ps, f.valueNode(g, sg, r))
		}
		return n, true

	default:
		if f.Log != nil {
			f.Log.Debugf("frontend/ssa: unhandled instruction kind %T, treated as NOOP", v)
		}
		n, _ := f.pair(g, sg, pta.Noop, dg.KindStmt, fmt.Sprintf("%T", v))
		return n, false
	}
}

// translateCall handles *ssa.Call, *ssa.Go and *ssa.Defer uniformly: a
// statically resolvable callee becomes a CALL bound directly via
// dg.DGNode.CallBinding; a callee known only through a value becomes
// CALL_FUNCPTR, left for the points-to engine's FunctionPointerCallback to
// bind once the fixpoint discovers what it may point to.
func (f *Frontend) translateCall(g *dg.DependenceGraph, sg *pta.Subgraph, instr ssa.Instruction, cc *ssa.CallCommon) *dg.DGNode {
	if callee := cc.StaticCallee(); callee != nil {
		n, ps := f.pair(g, sg, pta.Call, dg.KindCall, "call:"+callee.Name())
		args := make([]*pta.PSNode, len(cc.Args))
		for i, arg := range cc.Args {
			args[i] = f.valueNode(g, sg, arg)
			linkOperand(ps, args[i])
		}
		calleeG, _ := f.BuildFunction(callee)
		// BuildFunction is memoized, so callee's formals already exist by
		// now regardless of whether this is the first call site reaching
		// callee; bind this call's actuals into them positionally. This
		// (not defuse.LinkActualToFormal, which only adds a dg-level
		// data-dependence edge for slicing) is what lets a pointer argument's
		// points-to set actually flow into the callee body.
		for i, formal := range f.formalsOf[callee] {
			if i < len(args) {
				linkOperand(formal, args[i])
			}
		}

		// defuse.LinkActualToFormal adds the dg-level positional
		// data-dependence edge the slicer walks; it is the bookkeeping
		// counterpart of the points-to binding above, not a substitute for
		// it. Only arguments with a tracked producing statement (skipping
		// literals, globals and free variables resolved straight to a
		// CONSTANT placeholder) can be paired this way.
		formalNodes := f.formalDGOf[callee]
		var actualNodes, pairedFormals []*dg.DGNode
		for i, arg := range cc.Args {
			if i >= len(formalNodes) {
				break
			}
			if an, ok := f.dgOfVal[arg]; ok {
				actualNodes = append(actualNodes, an)
				pairedFormals = append(pairedFormals, formalNodes[i])
			}
		}
		defuse.LinkActualToFormal(actualNodes, pairedFormals)

		n.CallBinding = calleeG.Entry()
		calleeG.AddCaller(n)
		calleeG.Ref()
		if v, ok := instr.(ssa.Value); ok {
			f.psOfVal[v] = ps
			f.dgOfVal[v] = n
		}
		return n
	}

	n, ps := f.pair(g, sg, pta.CallFuncPtr, dg.KindCall, "call-funcptr")
	linkOperand(ps, f.valueNode(g, sg, cc.Value))
	argNodes := make([]*dg.DGNode, len(cc.Args))
	for i, arg := range cc.Args {
		linkOperand(ps, f.valueNode(g, sg, arg))
		argNodes[i] = f.dgOfVal[arg]
	}
	f.callDG[ps] = n
	f.callArgsDG[ps] = argNodes
	if v, ok := instr.(ssa.Value); ok {
		f.psOfVal[v] = ps
		f.dgOfVal[v] = n
	}
	return n
}

// OnFunctionPointer is a pta.FunctionPointerCallback: when the fixpoint
// engine discovers a new concrete callee for a CALL_FUNCPTR, it splices
// that callee's already-built subgraph in. It binds the call's actual
// arguments (Operands[1:]) into the callee's formals the same way
// translateCall does for a static callee, binds the dg-level CallBinding
// the slicer crosses into callees through, and schedules the callee's
// ENTRY for (re-)processing. CallBinding is a single field, so a
// polymorphic call site keeps whichever callee it discovers first;
// slicing a call site reached through more than one concrete callee is a
// known simplification, not a soundness claim.
func (f *Frontend) OnFunctionPointer(engine *pta.Engine) pta.FunctionPointerCallback {
	return func(call *pta.PSNode, target *pta.PSNode) {
		if target.Owned == nil {
			return
		}
		if fn := f.functionOf(target.Owned); fn != nil {
			formals := f.formalsOf[fn]
			formalNodes := f.formalDGOf[fn]
			argNodes := f.callArgsDG[call]
			var actualNodes, pairedFormals []*dg.DGNode
			for i, arg := range call.Operands[1:] {
				if i >= len(formals) {
					break
				}
				linkOperand(formals[i], arg)
				if i < len(argNodes) && argNodes[i] != nil {
					actualNodes = append(actualNodes, argNodes[i])
					pairedFormals = append(pairedFormals, formalNodes[i])
				}
			}
			defuse.LinkActualToFormal(actualNodes, pairedFormals)
		}
		if n, ok := f.callDG[call]; ok && n.CallBinding == nil {
			if calleeG, ok := f.graphOf[target.Owned]; ok {
				n.CallBinding = calleeG.Entry()
				calleeG.AddCaller(n)
				calleeG.Ref()
			}
		}
		engine.Schedule(target.Owned.Entry)
	}
}

// functionOf returns the ssa.Function sg was built for, by reverse lookup
// through f.subgraphs. Only OnFunctionPointer needs this, to turn the
// Subgraph a discovered function pointer target owns back into the key
// f.formalsOf is indexed by.
func (f *Frontend) functionOf(sg *pta.Subgraph) *ssa.Function {
	for fn, s := range f.subgraphs {
		if s == sg {
			return fn
		}
	}
	return nil
}

// valueNode returns the PSNode standing for an ssa.Value, creating a
// CONSTANT placeholder for values the frontend has not seen a defining
// instruction for yet (literals, globals referenced before their defining
// block, free variables of a closure).
func (f *Frontend) valueNode(g *dg.DependenceGraph, sg *pta.Subgraph, v ssa.Value) *pta.PSNode {
	if ps, ok := f.psOfVal[v]; ok {
		return ps
	}

	// A bare function value (no MakeClosure, e.g. "h := strings.ToUpper")
	// still needs a real FUNCTION node with Owned set, or a call through it
	// could never be resolved by OnFunctionPointer.
	if fn, ok := v.(*ssa.Function); ok {
		_, ownedSg := f.BuildFunction(fn)
		ps := pta.NewNode(pta.Function)
		ps.Name = fn.Name()
		ps.Owned = ownedSg
		ps.AllocSize = offset.DefaultMaxOffset
		allocSelfPointer(ps)
		ps.Parent = sg
		sg.Nodes = append(sg.Nodes, ps)
		f.objects[ps] = pta.NewMemoryObject(ps)
		f.psOfVal[v] = ps
		return ps
	}

	ps := pta.NewNode(pta.Constant)
	ps.Name = v.Name()
	ps.AddPointsTo(pta.PointerUnknown)
	ps.Parent = sg
	sg.Nodes = append(sg.Nodes, ps)
	f.psOfVal[v] = ps
	return ps
}
