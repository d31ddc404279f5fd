package engine

import (
	"time"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/logger"
)

// Execute computes the evaluation order for scope, evaluates every bound
// expression in that order and writes the results into the target
// properties through their normal write path. A target that depends on
// another target sees the newly computed upstream value within the same
// pass.
//
// Execute is guarded against re-entrancy: a call made while a pass is
// already running (e.g. a property write listener triggering another
// recompute) returns immediately with no-op success. The running state is
// reset on every exit path.
//
// The first failure (evaluation error, invalid owner) aborts the pass and
// is returned with the offending path identified; writes made earlier in
// the pass are not rolled back.
func (e *Engine) Execute(scope Scope) error {
	if e.running {
		return nil
	}
	e.running = true
	defer func() { e.running = false }()

	start := time.Now()

	order, err := e.computeEvaluationOrder(scope)
	if err != nil {
		return err
	}

	doc := e.owner.Document()
	for _, path := range order {
		prop, err := doc.Resolve(path)
		if err != nil {
			return errors.Wrapf(err, "execute %s", path)
		}
		if prop.Owner() != e.owner {
			return errors.Wrapf(errors.ErrInvalidOwner, "execute %s: property belongs to %q, engine is owned by %q",
				path, prop.Owner().Name(), e.owner.Name())
		}

		b := e.bindings[path.String()]
		value, err := b.expr.Eval(doc)
		if err != nil {
			return errors.Wrapf(err, "execute %s", path)
		}
		if err := prop.SetAt(path.Sub, value); err != nil {
			return errors.Wrapf(err, "execute %s", path)
		}
	}

	e.logger.Debugw("execution pass complete",
		logger.FieldScope, scope.String(),
		logger.FieldCount, len(order),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return nil
}
