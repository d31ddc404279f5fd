package engine

import (
	"sort"

	"github.com/teranos/reflow/logger"
	"github.com/teranos/reflow/object"
)

// PathRename pairs a path with its replacement for the bulk rename
// operations. Old is canonicalized before matching.
type PathRename struct {
	Old object.Path
	New object.Path
}

// ObjectRenamed rewrites references that used the old label of obj so they
// use the current label, in place and without changing graph topology.
// Every binding whose tree was rewritten is signaled as changed. Call
// after the label has been updated.
func (e *Engine) ObjectRenamed(obj *object.Object, oldLabel string) {
	if oldLabel == obj.Label() {
		return
	}
	// References spelled with the old label only ever resolved to obj if
	// nothing else claims that identifier. If the string still resolves
	// (an internal name, or another object's label), those references
	// point elsewhere and keep their meaning.
	if e.owner.Document().Find(oldLabel) != nil {
		return
	}
	remap := map[string]string{oldLabel: obj.Label()}

	e.beginBatch()
	defer e.endBatch()

	for _, key := range e.order {
		b := e.bindings[key]
		if b.expr.Retarget(remap) {
			e.signalChanged(b.path)
		}
	}
}

// ObjectDeleted scans every bound expression for a reference to obj and,
// if one is found, flags the owner for recompute. The formula is not
// repaired: the dangling reference surfaces as an evaluation error on the
// next Execute. Call before the object is removed from the document.
func (e *Engine) ObjectDeleted(obj *object.Object) {
	doc := e.owner.Document()
	for _, key := range e.order {
		if e.bindings[key].expr.ReferencesObject(doc, obj) {
			// Touch to force recompute; that will trigger a proper error
			e.owner.Touch()
			e.logger.Infow("referenced object deleted, owner flagged for recompute",
				logger.FieldObject, obj.Name(),
				logger.FieldPath, e.bindings[key].path.String(),
			)
			return
		}
	}
}

// AdjustLinks retargets references after an identity swap elsewhere in the
// document: for every binding whose dependencies intersect the keys of
// remap, the current backlinks are removed, the tree is retargeted, new
// backlinks are added and the binding is signaled as changed. Reports
// whether any binding was touched, so the caller can decide whether
// further propagation is needed.
func (e *Engine) AdjustLinks(remap map[string]string) bool {
	touched := false

	for _, key := range e.order {
		b := e.bindings[key]

		needAdjust := false
		for _, depID := range b.expr.DepObjects() {
			if _, ok := remap[depID]; ok {
				needAdjust = true
				break
			}
		}
		if !needAdjust {
			continue
		}

		if !touched {
			e.beginBatch()
			defer e.endBatch()
			touched = true
		}

		e.removeBacklinks(b.expr)
		b.expr.Retarget(remap)
		e.addBacklinks(b.expr)
		e.signalChanged(b.path)
	}

	return touched
}

// BreakDependencies removes every binding whose expression references any
// of the given objects. Used when an object must stop being referenced,
// e.g. it is about to leave the document.
func (e *Engine) BreakDependencies(objs []*object.Object) error {
	doc := e.owner.Document()

	e.beginBatch()
	defer e.endBatch()

	for _, obj := range objs {
		// Collect first: remove mutates the iteration order
		var targets []object.Path
		for _, key := range e.order {
			b := e.bindings[key]
			if b.expr.ReferencesObject(doc, obj) {
				targets = append(targets, b.path)
			}
		}
		for _, path := range targets {
			if err := e.remove(path); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenamePaths re-keys bindings whose target path was renamed, e.g. after
// a property rename on the owning object. Old paths are canonicalized
// before matching; bindings not named in renames keep their key. Every
// binding is signaled as changed, matching the original's full-table
// change notification for this operation.
func (e *Engine) RenamePaths(renames []PathRename) error {
	canonical := make(map[string]object.Path, len(renames))
	for _, r := range renames {
		oldPath, err := e.canonicalPath(r.Old)
		if err != nil {
			return err
		}
		canonical[oldPath.String()] = r.New
	}

	e.beginBatch()
	defer e.endBatch()

	newBindings := make(map[string]*binding, len(e.bindings))
	newOrder := make([]string, 0, len(e.order))
	for _, key := range e.order {
		b := e.bindings[key]
		if newPath, ok := canonical[key]; ok {
			b.path = newPath
			key = newPath.String()
		}
		newBindings[key] = b
		newOrder = append(newOrder, key)
	}
	e.bindings = newBindings
	e.order = newOrder

	for _, key := range e.order {
		e.signalChanged(e.bindings[key].path)
	}
	return nil
}

// RenameReferences rewrites reference paths inside every bound expression
// according to renames. Old paths are matched by canonical form.
func (e *Engine) RenameReferences(renames []PathRename) error {
	doc := e.owner.Document()

	remap := make(map[string]object.Path, len(renames))
	for _, r := range renames {
		oldPath, err := r.Old.Canonical(doc)
		if err != nil {
			return err
		}
		remap[oldPath.String()] = r.New
	}

	e.beginBatch()
	defer e.endBatch()

	for _, key := range e.order {
		b := e.bindings[key]
		if b.expr.RenamePaths(doc, remap) {
			e.signalChanged(b.path)
		}
	}
	return nil
}

// DepObjects returns the sorted unique names of objects (other than the
// owner) that any bound expression reads from
func (e *Engine) DepObjects() []string {
	doc := e.owner.Document()
	seen := make(map[string]bool)
	for _, key := range e.order {
		for _, depID := range e.bindings[key].expr.DepObjects() {
			if obj := doc.Find(depID); obj != nil && obj != e.owner {
				seen[obj.Name()] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PathsTo returns the dependency paths into obj read by any bound
// expression, in binding order
func (e *Engine) PathsTo(obj *object.Object) []object.Path {
	doc := e.owner.Document()
	var out []object.Path
	for _, key := range e.order {
		for _, ref := range e.bindings[key].expr.Refs() {
			if doc.Find(ref.Object) == obj {
				out = append(out, ref)
			}
		}
	}
	return out
}

// DepsTouched reports whether any object referenced by a bound expression
// is flagged for recompute
func (e *Engine) DepsTouched() bool {
	doc := e.owner.Document()
	for _, key := range e.order {
		for _, depID := range e.bindings[key].expr.DepObjects() {
			if obj := doc.Find(depID); obj != nil && obj.Touched() {
				return true
			}
		}
	}
	return false
}
