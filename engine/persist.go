package engine

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/formula"
	"github.com/teranos/reflow/logger"
	"github.com/teranos/reflow/object"
)

// Record is one persisted binding: the canonical path string, the formula
// source and an optional free-text comment.
type Record struct {
	Path       string `yaml:"path"`
	Expression string `yaml:"expression"`
	Comment    string `yaml:"comment,omitempty"`
}

// savedTable is the serialized form of the binding table: a count-prefixed
// element list in binding order.
type savedTable struct {
	Count       int      `yaml:"count"`
	Expressions []Record `yaml:"expressions"`
}

// Records returns the bindings as ordered (path, expression source,
// comment) triples. This is the persistence and inspection surface; the
// returned slice holds copies and cannot mutate the table.
func (e *Engine) Records() []Record {
	out := make([]Record, 0, len(e.order))
	for _, key := range e.order {
		b := e.bindings[key]
		out = append(out, Record{
			Path:       b.path.String(),
			Expression: b.expr.String(),
			Comment:    b.comment,
		})
	}
	return out
}

// Save writes the binding table to w as a count-prefixed element list
func (e *Engine) Save(w io.Writer) error {
	doc := savedTable{
		Count:       len(e.order),
		Expressions: e.Records(),
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return errors.Wrap(err, "failed to save expression table")
	}
	return nil
}

// Restore reads a saved binding table from r, re-parses every formula
// source against the owner and stages the entries. Staged entries are not
// active: call ActivateRestored once the full document has been
// reconstructed, since formulas may reference objects not yet loaded.
func (e *Engine) Restore(r io.Reader) error {
	var doc savedTable
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, "failed to decode expression table")
	}
	if doc.Count != len(doc.Expressions) {
		return errors.Newf("expression table count %d does not match %d elements",
			doc.Count, len(doc.Expressions))
	}

	e.restored = e.restored[:0]
	for _, rec := range doc.Expressions {
		path, err := object.ParsePath(rec.Path)
		if err != nil {
			return errors.Wrapf(err, "restore %q", rec.Path)
		}
		expr, err := formula.Parse(e.owner, rec.Expression)
		if err != nil {
			return errors.Wrapf(err, "restore %q", rec.Path)
		}
		e.restored = append(e.restored, stagedBinding{path: path, expr: expr, comment: rec.Comment})
	}

	e.logger.Debugw("expression table staged for activation",
		logger.FieldCount, len(e.restored),
	)
	return nil
}

// ActivateRestored replays staged entries through Set, activating them
// against the now-complete document. The staged list is cleared on
// success; on the first failure the error is returned and remaining
// staged entries are kept for inspection.
func (e *Engine) ActivateRestored() error {
	e.beginBatch()
	defer e.endBatch()

	for i, staged := range e.restored {
		if err := e.Set(staged.path, staged.expr, staged.comment); err != nil {
			e.restored = e.restored[i:]
			return errors.Wrapf(err, "activate %s", staged.path)
		}
	}
	e.restored = nil
	return nil
}
