package formula

import (
	"math"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/object"
)

// Eval evaluates the tree against the current values in doc and returns a
// typed result. Failures (unresolved reference, missing value, type
// mismatch, division by zero, unknown function) yield ErrEvaluation.
func (e *Expr) Eval(doc *object.Document) (object.Value, error) {
	switch e.Kind {
	case KindNumber:
		if e.Unit != "" {
			return object.Quantity{Value: e.Num, Unit: e.Unit}, nil
		}
		return e.Num, nil

	case KindString:
		return e.Str, nil

	case KindReference:
		v, err := doc.ReadPath(e.Ref)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrEvaluation, "unresolved reference %s: %v", e.Ref, err)
		}
		if v == nil {
			return nil, errors.NewEvaluation("reference %s has no value", e.Ref)
		}
		return v, nil

	case KindUnary:
		v, err := e.Left.Eval(doc)
		if err != nil {
			return nil, err
		}
		n, ok := asNumeric(v)
		if !ok {
			return nil, errors.NewEvaluation("operator %q requires a numeric operand, got %T", e.Op, v)
		}
		return numericValue(-n.val, n.unit), nil

	case KindBinary:
		left, err := e.Left.Eval(doc)
		if err != nil {
			return nil, err
		}
		right, err := e.Right.Eval(doc)
		if err != nil {
			return nil, err
		}
		return applyBinary(e.Op, left, right)

	case KindCall:
		args := make([]object.Value, len(e.Args))
		for i, arg := range e.Args {
			v, err := arg.Eval(doc)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return applyCall(e.Fn, args)
	}

	return nil, errors.AssertionFailedf("unknown expression kind %d", e.Kind)
}

// numeric is a number with an optional unit label; the empty unit means a
// plain dimensionless number
type numeric struct {
	val  float64
	unit string
}

func asNumeric(v object.Value) (numeric, bool) {
	switch x := v.(type) {
	case float64:
		return numeric{val: x}, true
	case int:
		return numeric{val: float64(x)}, true
	case object.Quantity:
		return numeric{val: x.Value, unit: x.Unit}, true
	}
	return numeric{}, false
}

func numericValue(val float64, unit string) object.Value {
	if unit == "" {
		return val
	}
	return object.Quantity{Value: val, Unit: unit}
}

func applyBinary(op string, left, right object.Value) (object.Value, error) {
	// String concatenation is the only non-numeric operator form
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok || op != "+" {
			return nil, errors.NewEvaluation("operator %q cannot combine string and %T", op, right)
		}
		return ls + rs, nil
	}

	l, lok := asNumeric(left)
	r, rok := asNumeric(right)
	if !lok || !rok {
		return nil, errors.NewEvaluation("operator %q requires numeric operands, got %T and %T", op, left, right)
	}

	switch op {
	case "+", "-":
		if l.unit != r.unit && l.unit != "" && r.unit != "" {
			return nil, errors.NewEvaluation("operator %q requires matching units, got %q and %q", op, l.unit, r.unit)
		}
		unit := l.unit
		if unit == "" {
			unit = r.unit
		}
		if op == "+" {
			return numericValue(l.val+r.val, unit), nil
		}
		return numericValue(l.val-r.val, unit), nil

	case "*":
		if l.unit != "" && r.unit != "" {
			return nil, errors.NewEvaluation("cannot multiply two united quantities (%q and %q)", l.unit, r.unit)
		}
		unit := l.unit
		if unit == "" {
			unit = r.unit
		}
		return numericValue(l.val*r.val, unit), nil

	case "/":
		if r.val == 0 {
			return nil, errors.NewEvaluation("division by zero")
		}
		switch {
		case l.unit == r.unit:
			// Same unit (or both dimensionless) cancels out
			return l.val / r.val, nil
		case r.unit == "":
			return numericValue(l.val/r.val, l.unit), nil
		default:
			return nil, errors.NewEvaluation("cannot divide %q by %q", l.unit, r.unit)
		}

	case "%":
		if l.unit != "" || r.unit != "" {
			return nil, errors.NewEvaluation("operator %% requires dimensionless operands")
		}
		if r.val == 0 {
			return nil, errors.NewEvaluation("division by zero")
		}
		return math.Mod(l.val, r.val), nil
	}

	return nil, errors.AssertionFailedf("unknown operator %q", op)
}

func applyCall(fn string, args []object.Value) (object.Value, error) {
	nums := make([]numeric, len(args))
	for i, arg := range args {
		n, ok := asNumeric(arg)
		if !ok {
			return nil, errors.NewEvaluation("%s: argument %d is not numeric (%T)", fn, i+1, arg)
		}
		nums[i] = n
	}

	unary := func(f func(float64) float64) (object.Value, error) {
		if len(nums) != 1 {
			return nil, errors.NewEvaluation("%s expects 1 argument, got %d", fn, len(nums))
		}
		return numericValue(f(nums[0].val), nums[0].unit), nil
	}

	switch fn {
	case "abs":
		return unary(math.Abs)
	case "floor":
		return unary(math.Floor)
	case "ceil":
		return unary(math.Ceil)
	case "round":
		return unary(math.Round)
	case "sqrt":
		if len(nums) != 1 {
			return nil, errors.NewEvaluation("sqrt expects 1 argument, got %d", len(nums))
		}
		if nums[0].unit != "" {
			return nil, errors.NewEvaluation("sqrt requires a dimensionless argument")
		}
		if nums[0].val < 0 {
			return nil, errors.NewEvaluation("sqrt of negative value %g", nums[0].val)
		}
		return math.Sqrt(nums[0].val), nil
	case "pow":
		if len(nums) != 2 {
			return nil, errors.NewEvaluation("pow expects 2 arguments, got %d", len(nums))
		}
		if nums[0].unit != "" || nums[1].unit != "" {
			return nil, errors.NewEvaluation("pow requires dimensionless arguments")
		}
		return math.Pow(nums[0].val, nums[1].val), nil
	case "min", "max":
		if len(nums) == 0 {
			return nil, errors.NewEvaluation("%s expects at least 1 argument", fn)
		}
		unit := nums[0].unit
		best := nums[0].val
		for _, n := range nums[1:] {
			if n.unit != unit {
				return nil, errors.NewEvaluation("%s requires matching units, got %q and %q", fn, unit, n.unit)
			}
			if (fn == "min" && n.val < best) || (fn == "max" && n.val > best) {
				best = n.val
			}
		}
		return numericValue(best, unit), nil
	}

	return nil, errors.NewEvaluation("unknown function %q", fn)
}
