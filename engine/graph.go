package engine

import (
	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/logger"
	"github.com/teranos/reflow/object"
)

// Scope selects which bindings participate in a graph build or execution
// pass, keyed off the target property's output flag.
type Scope int

const (
	// ScopeAll includes every binding
	ScopeAll Scope = iota
	// ScopeNonOutput includes only bindings whose target is not output-flagged
	ScopeNonOutput
	// ScopeOutput includes only bindings whose target is output-flagged
	ScopeOutput
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeNonOutput:
		return "non-output"
	case ScopeOutput:
		return "output"
	default:
		return "unknown"
	}
}

// depGraph is the transient dependency graph over canonical paths. It is
// rebuilt from the binding table on every build/validate/execute and never
// patched incrementally, so it always reflects the table exactly. Node ids
// are assigned in first-encounter order over the table's insertion order,
// which makes repeated builds from an unchanged table identical.
type depGraph struct {
	ids   map[string]int // canonical path string -> node id
	paths []object.Path  // node id -> path, all nodes
	// target marks nodes that are binding targets; only these appear in the
	// evaluation order
	target []bool
	adj    [][]int // edges target -> dependency
}

func (g *depGraph) node(p object.Path) int {
	key := p.String()
	if id, ok := g.ids[key]; ok {
		return id
	}
	id := len(g.paths)
	g.ids[key] = id
	g.paths = append(g.paths, p)
	g.target = append(g.target, false)
	g.adj = append(g.adj, nil)
	return id
}

// buildGraph constructs the dependency graph over the bindings selected by
// scope and checks it for cycles. An edge target -> dependency is added for
// every dependency path of every in-scope binding; a dependency that is not
// itself a binding target becomes a sink node. Dependency paths that do not
// resolve (e.g. a deleted object) contribute no node: the dangling
// reference surfaces later as an evaluation error, not a build error.
func (e *Engine) buildGraph(scope Scope) (*depGraph, error) {
	doc := e.owner.Document()
	g := &depGraph{ids: make(map[string]int)}

	for _, key := range e.order {
		b := e.bindings[key]

		if scope != ScopeAll {
			prop, err := doc.Resolve(b.path)
			if err != nil {
				return nil, errors.Wrapf(err, "graph build")
			}
			if prop.IsOutput() != (scope == ScopeOutput) {
				continue
			}
		}

		u := g.node(b.path)
		g.target[u] = true

		for _, dep := range b.expr.Refs() {
			cDep, err := dep.Canonical(doc)
			if err != nil {
				continue
			}
			v := g.node(cDep)
			g.adj[u] = append(g.adj[u], v)
		}
	}

	if src, ok := g.findCycle(); ok {
		return nil, errors.NewCyclicDependency("%s reference creates a cyclic dependency", g.paths[src])
	}

	e.logger.Debugw("dependency graph built",
		logger.FieldScope, scope.String(),
		logger.FieldNodeCount, len(g.paths),
	)
	return g, nil
}

// findCycle runs a depth-first traversal tracking the recursion stack and
// reports the source node of the first back-edge found. Detection stops at
// the first cycle; no attempt is made to enumerate all of them.
func (g *depGraph) findCycle() (int, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.paths))

	var src int
	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = gray
		for _, v := range g.adj[u] {
			if color[v] == gray {
				src = u
				return true
			}
			if color[v] == white && visit(v) {
				return true
			}
		}
		color[u] = black
		return false
	}

	for u := range g.paths {
		if color[u] == white && visit(u) {
			return src, true
		}
	}
	return 0, false
}

// order emits the binding targets in a topological order with dependencies
// before dependents: a post-order depth-first emission over edges
// target -> dependency appends every dependency before the target that
// consumes it. Roots are visited in node-id order, so ties between
// independent targets break deterministically by insertion order.
// Assumes findCycle already ran.
func (g *depGraph) order() []object.Path {
	visited := make([]bool, len(g.paths))
	var out []object.Path

	var visit func(u int)
	visit = func(u int) {
		visited[u] = true
		for _, v := range g.adj[u] {
			if !visited[v] {
				visit(v)
			}
		}
		if g.target[u] {
			out = append(out, g.paths[u])
		}
	}

	for u := range g.paths {
		if !visited[u] {
			visit(u)
		}
	}
	return out
}

// computeEvaluationOrder builds the graph for scope and returns the
// evaluation order over its binding targets. Recomputed on every call;
// never cached across table mutations.
func (e *Engine) computeEvaluationOrder(scope Scope) ([]object.Path, error) {
	g, err := e.buildGraph(scope)
	if err != nil {
		return nil, err
	}
	return g.order(), nil
}
