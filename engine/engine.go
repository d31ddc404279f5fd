// Package engine implements the expression dependency graph and
// evaluation engine: an ordered table of (target path -> formula tree)
// bindings owned by one document object, cycle detection and topological
// ordering over the induced dependency graph, an execution pass that
// writes formula results back into properties, and the incremental
// bookkeeping triggered by rename, delete and relink events elsewhere in
// the document.
package engine

import (
	"go.uber.org/zap"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/formula"
	"github.com/teranos/reflow/logger"
	"github.com/teranos/reflow/object"
)

// Validator is an external hook consulted before a binding is accepted.
// A non-nil return rejects the binding.
type Validator func(path object.Path, expr *formula.Expr) error

// binding is one table entry. The path is always canonical.
type binding struct {
	path    object.Path
	expr    *formula.Expr
	comment string
}

// Engine is the binding table plus evaluation machinery for one owning
// object. All keys are canonical path strings at all times; every formula
// referencing another object has a backlink registered on that object
// pointing back at the owner, re-established before every public mutation
// returns.
type Engine struct {
	owner    *object.Object
	bindings map[string]*binding
	order    []string // canonical keys in insertion order

	// Validator, if set, can reject candidate bindings in Set/Validate
	Validator Validator

	// staged entries from Restore, activated once the document is complete
	restored []stagedBinding

	onChanged   func(object.Path)
	signalDepth int
	pending     []object.Path

	running bool

	logger *zap.SugaredLogger
}

type stagedBinding struct {
	path    object.Path
	expr    *formula.Expr
	comment string
}

// New creates an engine owned by obj
func New(obj *object.Object) *Engine {
	return &Engine{
		owner:    obj,
		bindings: make(map[string]*binding),
		logger: logger.ComponentLogger("engine").With(
			logger.FieldDocument, obj.Document().Name(),
			logger.FieldObject, obj.Name(),
		),
	}
}

// Owner returns the owning object
func (e *Engine) Owner() *object.Object { return e.owner }

// NumBindings returns the number of bindings in the table
func (e *Engine) NumBindings() int { return len(e.bindings) }

// SetChangeListener registers a callback invoked once per changed target
// path at the end of the outermost mutation
func (e *Engine) SetChangeListener(fn func(object.Path)) {
	e.onChanged = fn
}

// canonicalPath canonicalizes p against the owning document
func (e *Engine) canonicalPath(p object.Path) (object.Path, error) {
	return p.Canonical(e.owner.Document())
}

// Set binds an expression (with optional comment) to the property at
// path. The path is canonicalized first; it must resolve to a writable
// property on the owning object. A nil expr removes any existing binding.
// On rejection (invalid target, cycle, validator veto) the table is left
// unchanged.
func (e *Engine) Set(path object.Path, expr *formula.Expr, comment string) error {
	usePath, err := e.canonicalPath(path)
	if err != nil {
		return err
	}

	if expr == nil {
		return e.remove(usePath)
	}

	prop, err := e.owner.Document().Resolve(usePath)
	if err != nil {
		return err
	}
	if prop.Owner() != e.owner {
		return errors.NewInvalidTarget("path %s resolves to a property on %q, not the owning object %q",
			usePath, prop.Owner().Name(), e.owner.Name())
	}
	if prop.IsReadOnly() {
		return errors.NewInvalidTarget("path %s resolves to a read-only property", usePath)
	}

	key := usePath.String()
	existing := e.bindings[key]

	// Unchanged expression: skip the revalidation and signaling entirely
	if existing != nil && existing.expr == expr {
		return nil
	}

	if err := e.Validate(usePath, expr); err != nil {
		return err
	}

	e.beginBatch()
	defer e.endBatch()

	if existing != nil && existing.expr != nil {
		// Remove the old expression's backlinks first so the same
		// dependency is never registered twice for one key
		e.removeBacklinks(existing.expr)
	}

	if existing != nil {
		existing.expr = expr
		existing.comment = comment
	} else {
		e.bindings[key] = &binding{path: usePath, expr: expr, comment: comment}
		e.order = append(e.order, key)
	}

	e.addBacklinks(expr)
	e.signalChanged(usePath)
	return nil
}

// Remove deletes any binding at path. Removing an absent (but resolvable)
// path is a no-op.
func (e *Engine) Remove(path object.Path) error {
	usePath, err := e.canonicalPath(path)
	if err != nil {
		return err
	}
	return e.remove(usePath)
}

func (e *Engine) remove(usePath object.Path) error {
	key := usePath.String()
	b, ok := e.bindings[key]
	if !ok {
		return nil
	}

	e.beginBatch()
	defer e.endBatch()

	if b.expr != nil {
		e.removeBacklinks(b.expr)
	}
	delete(e.bindings, key)
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.signalChanged(usePath)
	return nil
}

// Get returns the expression and comment bound at the canonical form of
// path. A resolvable but unbound path returns (nil, "", nil).
func (e *Engine) Get(path object.Path) (*formula.Expr, string, error) {
	usePath, err := e.canonicalPath(path)
	if err != nil {
		return nil, "", err
	}
	if b, ok := e.bindings[usePath.String()]; ok {
		return b.expr, b.comment, nil
	}
	return nil, "", nil
}

// Clone returns a deep copy of the engine sharing the same owner and
// validator. Used by Validate so candidate bindings never touch the live
// table.
func (e *Engine) Clone() *Engine {
	out := New(e.owner)
	out.Validator = e.Validator
	for _, key := range e.order {
		b := e.bindings[key]
		out.bindings[key] = &binding{path: b.path, expr: b.expr.Clone(), comment: b.comment}
		out.order = append(out.order, key)
	}
	return out
}

// CopyFrom replaces this engine's table with deep copies of the bindings
// in from, maintaining backlinks and signaling every copied target. Used
// when the owning object is duplicated.
func (e *Engine) CopyFrom(from *Engine) {
	e.beginBatch()
	defer e.endBatch()

	for _, key := range e.order {
		if b := e.bindings[key]; b.expr != nil {
			e.removeBacklinks(b.expr)
		}
	}
	e.bindings = make(map[string]*binding, len(from.bindings))
	e.order = nil

	for _, key := range from.order {
		b := from.bindings[key]
		copied := &binding{path: b.path, expr: b.expr.Clone(), comment: b.comment}
		e.bindings[key] = copied
		e.order = append(e.order, key)
		e.addBacklinks(copied.expr)
		e.signalChanged(copied.path)
	}

	e.Validator = from.Validator
}

// Validate checks whether binding expr at path would be accepted: the
// external validator hook is consulted, cross-object reference cycles are
// rejected, and the dependency graph of a private clone of the table with
// the candidate inserted must be acyclic. The live table is never touched.
func (e *Engine) Validate(path object.Path, expr *formula.Expr) error {
	usePath, err := e.canonicalPath(path)
	if err != nil {
		return err
	}

	if e.Validator != nil {
		if verr := e.Validator(usePath, expr); verr != nil {
			return errors.Wrap(errors.ErrValidation, verr.Error())
		}
	}

	// Reject references to objects that transitively depend on the owner:
	// such a binding would close a cycle in the document graph even though
	// the engine's own path graph stays acyclic
	doc := e.owner.Document()
	inList := e.transitiveDependents()
	for _, depID := range expr.DepObjects() {
		depObj := doc.Find(depID)
		if depObj == nil || depObj == e.owner {
			continue
		}
		if inList[depObj.Name()] {
			return errors.NewCyclicDependency("cyclic reference to %s", depObj.Name())
		}
	}

	// Build the graph over a clone with the candidate inserted; the build
	// fails on a cycle
	trial := e.Clone()
	key := usePath.String()
	if existing, ok := trial.bindings[key]; ok {
		existing.expr = expr.Clone()
	} else {
		trial.bindings[key] = &binding{path: usePath, expr: expr.Clone()}
		trial.order = append(trial.order, key)
	}
	if _, err := trial.buildGraph(ScopeAll); err != nil {
		return err
	}
	return nil
}

// transitiveDependents returns the set of object names that depend on the
// owner, directly or transitively, through backlinks
func (e *Engine) transitiveDependents() map[string]bool {
	doc := e.owner.Document()
	seen := make(map[string]bool)
	queue := e.owner.Dependents()
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		if obj := doc.Object(name); obj != nil {
			queue = append(queue, obj.Dependents()...)
		}
	}
	return seen
}

// addBacklinks registers the owner as a dependent on every object expr
// references (other than the owner itself)
func (e *Engine) addBacklinks(expr *formula.Expr) {
	doc := e.owner.Document()
	for _, depID := range expr.DepObjects() {
		if obj := doc.Find(depID); obj != nil && obj != e.owner {
			obj.AddBacklink(e.owner.Name())
		}
	}
}

// removeBacklinks drops the backlinks addBacklinks registered for expr
func (e *Engine) removeBacklinks(expr *formula.Expr) {
	doc := e.owner.Document()
	for _, depID := range expr.DepObjects() {
		if obj := doc.Find(depID); obj != nil && obj != e.owner {
			obj.RemoveBacklink(e.owner.Name())
		}
	}
}

// beginBatch opens a (possibly nested) mutation scope. Change signals
// raised inside are coalesced and delivered once, in order, when the
// outermost scope closes.
func (e *Engine) beginBatch() {
	e.signalDepth++
}

func (e *Engine) endBatch() {
	e.signalDepth--
	if e.signalDepth > 0 {
		return
	}
	pending := e.pending
	e.pending = nil
	if e.onChanged == nil {
		return
	}
	for _, p := range pending {
		e.onChanged(p)
	}
}

// signalChanged queues a change notification for a target path, deduped
// within the current batch
func (e *Engine) signalChanged(p object.Path) {
	for _, queued := range e.pending {
		if queued.Equal(p) {
			return
		}
	}
	e.pending = append(e.pending, p)
}
