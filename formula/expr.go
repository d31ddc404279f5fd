// Package formula implements the formula trees bound to document object
// properties: parsing from source text, dependency extraction, reference
// retargeting and evaluation.
package formula

import (
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/reflow/object"
)

// Kind discriminates the closed set of expression node kinds
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindReference
	KindUnary
	KindBinary
	KindCall
)

// Expr is one node of a formula tree. The tree is a tagged variant: only
// the fields relevant to Kind are populated. Trees are exclusively owned
// by the binding that holds them; use Clone before sharing or staging a
// candidate tree.
type Expr struct {
	Kind Kind

	// KindNumber
	Num  float64
	Unit string

	// KindString
	Str string

	// KindReference
	Ref object.Path

	// KindUnary, KindBinary
	Op    string
	Left  *Expr
	Right *Expr // nil for unary

	// KindCall
	Fn   string
	Args []*Expr
}

// Clone returns a deep copy of the tree
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	out := *e
	out.Left = e.Left.Clone()
	out.Right = e.Right.Clone()
	if e.Ref.Sub != nil {
		out.Ref.Sub = append([]string(nil), e.Ref.Sub...)
	}
	if e.Args != nil {
		out.Args = make([]*Expr, len(e.Args))
		for i, arg := range e.Args {
			out.Args[i] = arg.Clone()
		}
	}
	return &out
}

// Dependencies returns the referenced object identifier -> paths read on
// that object. Identifiers are as written in the formula (name or label);
// callers needing canonical paths resolve them against the document.
// Constant formulas return an empty map.
func (e *Expr) Dependencies() map[string][]object.Path {
	deps := make(map[string][]object.Path)
	e.walk(func(node *Expr) {
		if node.Kind != KindReference {
			return
		}
		for _, existing := range deps[node.Ref.Object] {
			if existing.Equal(node.Ref) {
				return
			}
		}
		deps[node.Ref.Object] = append(deps[node.Ref.Object], node.Ref)
	})
	return deps
}

// Refs returns the unique reference paths in source order. Graph building
// depends on this order being deterministic for a fixed tree.
func (e *Expr) Refs() []object.Path {
	var refs []object.Path
	e.walk(func(node *Expr) {
		if node.Kind != KindReference {
			return
		}
		for _, existing := range refs {
			if existing.Equal(node.Ref) {
				return
			}
		}
		refs = append(refs, node.Ref)
	})
	return refs
}

// DepObjects returns the sorted unique object identifiers the tree reads from
func (e *Expr) DepObjects() []string {
	seen := make(map[string]bool)
	e.walk(func(node *Expr) {
		if node.Kind == KindReference {
			seen[node.Ref.Object] = true
		}
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Retarget rewrites object identifiers in reference nodes according to
// remap, in place. Reports whether any reference changed.
func (e *Expr) Retarget(remap map[string]string) bool {
	changed := false
	e.walkMut(func(node *Expr) {
		if node.Kind != KindReference {
			return
		}
		if newID, ok := remap[node.Ref.Object]; ok && newID != node.Ref.Object {
			node.Ref.Object = newID
			changed = true
		}
	})
	return changed
}

// RenamePaths rewrites reference nodes whose canonical form matches a key
// of remap (keys are canonical path strings). Reports whether any
// reference changed.
func (e *Expr) RenamePaths(doc *object.Document, remap map[string]object.Path) bool {
	changed := false
	e.walkMut(func(node *Expr) {
		if node.Kind != KindReference {
			return
		}
		canonical, err := node.Ref.Canonical(doc)
		if err != nil {
			return
		}
		if newPath, ok := remap[canonical.String()]; ok {
			node.Ref = newPath
			changed = true
		}
	})
	return changed
}

// ReferencesObject reports whether any reference node resolves to obj
func (e *Expr) ReferencesObject(doc *object.Document, obj *object.Object) bool {
	found := false
	e.walk(func(node *Expr) {
		if node.Kind == KindReference && doc.Find(node.Ref.Object) == obj {
			found = true
		}
	})
	return found
}

// String renders the tree back to parseable source form
func (e *Expr) String() string {
	var b strings.Builder
	e.render(&b)
	return b.String()
}

func (e *Expr) render(b *strings.Builder) {
	switch e.Kind {
	case KindNumber:
		b.WriteString(strconv.FormatFloat(e.Num, 'g', -1, 64))
		b.WriteString(e.Unit)
	case KindString:
		b.WriteByte('"')
		b.WriteString(e.Str)
		b.WriteByte('"')
	case KindReference:
		b.WriteString(e.Ref.String())
	case KindUnary:
		b.WriteString(e.Op)
		e.Left.renderOperand(b)
	case KindBinary:
		e.Left.renderOperand(b)
		b.WriteByte(' ')
		b.WriteString(e.Op)
		b.WriteByte(' ')
		e.Right.renderOperand(b)
	case KindCall:
		b.WriteString(e.Fn)
		b.WriteByte('(')
		for i, arg := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			arg.render(b)
		}
		b.WriteByte(')')
	}
}

// renderOperand parenthesizes composite operands so the rendered source
// re-parses to the same tree
func (e *Expr) renderOperand(b *strings.Builder) {
	if e.Kind == KindBinary {
		b.WriteByte('(')
		e.render(b)
		b.WriteByte(')')
		return
	}
	e.render(b)
}

func (e *Expr) walk(fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	e.Left.walk(fn)
	e.Right.walk(fn)
	for _, arg := range e.Args {
		arg.walk(fn)
	}
}

func (e *Expr) walkMut(fn func(*Expr)) {
	// Identical traversal; split out so read-only walks are obviously such
	e.walk(fn)
}
