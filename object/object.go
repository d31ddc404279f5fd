package object

import (
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/logger"
)

// Document is a named collection of objects in insertion order.
type Document struct {
	id      string
	name    string
	objects map[string]*Object
	order   []string
	logger  *zap.SugaredLogger

	// onPropertyChanged, if set, is invoked after every successful
	// property write with the canonical path of the written slot
	onPropertyChanged func(Path)
}

// NewDocument creates an empty document
func NewDocument(name string) *Document {
	return &Document{
		id:      uuid.NewString(),
		name:    name,
		objects: make(map[string]*Object),
		logger:  logger.ComponentLogger("object").With(logger.FieldDocument, name),
	}
}

// ID returns the document's unique id
func (d *Document) ID() string { return d.id }

// Name returns the document name
func (d *Document) Name() string { return d.name }

// SetChangeListener registers a callback invoked after every property write
func (d *Document) SetChangeListener(fn func(Path)) {
	d.onPropertyChanged = fn
}

// AddObject creates a new object with the given internal name. The label
// starts out equal to the name. Names must be unique within the document.
func (d *Document) AddObject(name string) (*Object, error) {
	if !isIdentifier(name) {
		return nil, errors.Newf("invalid object name %q", name)
	}
	if _, exists := d.objects[name]; exists {
		return nil, errors.Newf("document already has an object named %q", name)
	}

	obj := &Object{
		doc:       d,
		name:      name,
		label:     name,
		props:     make(map[string]*Property),
		backlinks: make(map[string]int),
	}
	d.objects[name] = obj
	d.order = append(d.order, name)
	return obj, nil
}

// Object returns the object with the given internal name, or nil
func (d *Document) Object(name string) *Object {
	return d.objects[name]
}

// ObjectByLabel returns the first object (in insertion order) whose label
// matches, or nil
func (d *Document) ObjectByLabel(label string) *Object {
	for _, name := range d.order {
		if d.objects[name].label == label {
			return d.objects[name]
		}
	}
	return nil
}

// Find resolves an identifier to an object, trying internal names first
// and labels second. Returns nil if neither matches.
func (d *Document) Find(identifier string) *Object {
	if obj, ok := d.objects[identifier]; ok {
		return obj
	}
	return d.ObjectByLabel(identifier)
}

// Objects returns all objects in insertion order
func (d *Document) Objects() []*Object {
	out := make([]*Object, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.objects[name])
	}
	return out
}

// RemoveObject deletes an object from the document. The caller is
// responsible for notifying engines that may reference it (see
// engine.ObjectDeleted).
func (d *Document) RemoveObject(name string) error {
	if _, ok := d.objects[name]; !ok {
		return errors.Newf("document has no object named %q", name)
	}
	delete(d.objects, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// Resolve resolves a path to its property slot. The path does not need to
// be canonical. An unresolvable path yields ErrInvalidTarget.
func (d *Document) Resolve(p Path) (*Property, error) {
	obj := d.Find(p.Object)
	if obj == nil {
		return nil, errors.NewInvalidTarget("path %s: no object named or labeled %q", p, p.Object)
	}
	prop, ok := obj.props[p.Property]
	if !ok {
		return nil, errors.NewInvalidTarget("path %s: object %q has no property %q", p, obj.Name(), p.Property)
	}
	return prop, nil
}

// ReadPath resolves a path and reads the value at it, navigating sub
// components into nested list values.
func (d *Document) ReadPath(p Path) (Value, error) {
	prop, err := d.Resolve(p)
	if err != nil {
		return nil, err
	}
	return prop.GetAt(p.Sub)
}

func (d *Document) notifyChanged(p Path) {
	if d.onPropertyChanged != nil {
		d.onPropertyChanged(p)
	}
}

// Object is one entity in the document graph. The internal name is stable
// for the object's lifetime; the label is a user-facing alias that may be
// renamed at any time.
type Object struct {
	doc       *Document
	name      string
	label     string
	props     map[string]*Property
	propOrder []string
	backlinks map[string]int
	touched   bool
}

// Name returns the stable internal name
func (o *Object) Name() string { return o.name }

// Label returns the user-facing label
func (o *Object) Label() string { return o.label }

// SetLabel renames the object's label. Callers holding an expression
// engine should follow up with engine.ObjectRenamed so formulas that
// reference the old label are rewritten.
func (o *Object) SetLabel(label string) {
	o.label = label
}

// Document returns the owning document
func (o *Object) Document() *Document { return o.doc }

// PropertySpec describes a property slot to add to an object
type PropertySpec struct {
	Name     string
	Kind     ValueKind
	Value    Value
	Output   bool
	ReadOnly bool
}

// AddProperty adds a property slot to the object
func (o *Object) AddProperty(spec PropertySpec) (*Property, error) {
	if !isIdentifier(spec.Name) {
		return nil, errors.Newf("invalid property name %q", spec.Name)
	}
	if _, exists := o.props[spec.Name]; exists {
		return nil, errors.Newf("object %q already has a property %q", o.name, spec.Name)
	}

	prop := &Property{
		owner:    o,
		name:     spec.Name,
		kind:     spec.Kind,
		output:   spec.Output,
		readOnly: spec.ReadOnly,
	}
	if spec.Value != nil {
		coerced, err := coerce(spec.Kind, spec.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "initial value for %s.%s", o.name, spec.Name)
		}
		prop.value = coerced
	}

	o.props[spec.Name] = prop
	o.propOrder = append(o.propOrder, spec.Name)
	return prop, nil
}

// Property returns the named property slot, or nil
func (o *Object) Property(name string) *Property {
	return o.props[name]
}

// Properties returns all property slots in insertion order
func (o *Object) Properties() []*Property {
	out := make([]*Property, 0, len(o.propOrder))
	for _, name := range o.propOrder {
		out = append(out, o.props[name])
	}
	return out
}

// AddBacklink records that owner holds a formula referencing this object.
// Backlinks are refcounted: an owner referencing this object from several
// formulas must unlink the same number of times.
func (o *Object) AddBacklink(owner string) {
	o.backlinks[owner]++
}

// RemoveBacklink drops one reference from owner
func (o *Object) RemoveBacklink(owner string) {
	if o.backlinks[owner] <= 1 {
		delete(o.backlinks, owner)
		return
	}
	o.backlinks[owner]--
}

// Dependents returns the sorted names of objects holding formulas that
// reference this object
func (o *Object) Dependents() []string {
	out := make([]string, 0, len(o.backlinks))
	for name := range o.backlinks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BacklinkCount returns the refcount for one dependent, for tests and
// invariant checks
func (o *Object) BacklinkCount(owner string) int {
	return o.backlinks[owner]
}

// Touch flags the object as needing recompute
func (o *Object) Touch() { o.touched = true }

// Touched reports the recompute flag
func (o *Object) Touched() bool { return o.touched }

// ClearTouched resets the recompute flag
func (o *Object) ClearTouched() { o.touched = false }

// Property is one typed, writable slot on an object.
type Property struct {
	owner    *Object
	name     string
	kind     ValueKind
	value    Value
	output   bool
	readOnly bool
}

// Name returns the property name
func (p *Property) Name() string { return p.name }

// Owner returns the owning object
func (p *Property) Owner() *Object { return p.owner }

// Kind returns the declared value kind
func (p *Property) Kind() ValueKind { return p.kind }

// IsOutput reports whether the slot is output-flagged (derived-only,
// evaluated in its own pass)
func (p *Property) IsOutput() bool { return p.output }

// IsReadOnly reports whether the slot rejects writes
func (p *Property) IsReadOnly() bool { return p.readOnly }

// Get returns the current value (nil if never set)
func (p *Property) Get() Value { return p.value }

// Set writes a value through the slot's normal write path: the value is
// type-checked against the declared kind and the document change listener
// fires on success.
func (p *Property) Set(v Value) error {
	return p.SetAt(nil, v)
}

// GetAt reads the value at the given sub components. Empty sub components
// read the whole slot.
func (p *Property) GetAt(sub []string) (Value, error) {
	if len(sub) == 0 {
		return p.value, nil
	}

	cur := p.value
	for _, component := range sub {
		list, ok := cur.([]Value)
		if !ok {
			return nil, errors.NewInvalidTarget("%s.%s: component %q does not navigate a list value", p.owner.name, p.name, component)
		}
		idx, err := strconv.Atoi(component)
		if err != nil || idx < 0 || idx >= len(list) {
			return nil, errors.NewInvalidTarget("%s.%s: index %q out of range", p.owner.name, p.name, component)
		}
		cur = list[idx]
	}
	return cur, nil
}

// SetAt writes the value at the given sub components. Empty sub components
// write the whole slot.
func (p *Property) SetAt(sub []string, v Value) error {
	if p.readOnly {
		return errors.NewInvalidTarget("%s.%s is read-only", p.owner.name, p.name)
	}

	if len(sub) == 0 {
		coerced, err := coerce(p.kind, v)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", p.owner.name, p.name)
		}
		p.value = coerced
	} else {
		list, ok := p.value.([]Value)
		if !ok {
			return errors.NewInvalidTarget("%s.%s holds no list value", p.owner.name, p.name)
		}
		// Navigate to the parent of the final component
		for _, component := range sub[:len(sub)-1] {
			idx, err := strconv.Atoi(component)
			if err != nil || idx < 0 || idx >= len(list) {
				return errors.NewInvalidTarget("%s.%s: index %q out of range", p.owner.name, p.name, component)
			}
			next, ok := list[idx].([]Value)
			if !ok {
				return errors.NewInvalidTarget("%s.%s: component %q does not navigate a list value", p.owner.name, p.name, component)
			}
			list = next
		}
		last := sub[len(sub)-1]
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(list) {
			return errors.NewInvalidTarget("%s.%s: index %q out of range", p.owner.name, p.name, last)
		}
		list[idx] = v
	}

	p.owner.doc.notifyChanged(Path{Object: p.owner.name, Property: p.name, Sub: sub})
	return nil
}
