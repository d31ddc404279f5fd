package object

import (
	"fmt"
	"strconv"

	"github.com/teranos/reflow/errors"
)

// Value is a typed property value. Concrete types are float64, string,
// bool, Quantity and []Value.
type Value interface{}

// ValueKind identifies the declared type of a property slot
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindString
	KindBool
	KindQuantity
	KindList
)

// String returns the kind name used in document files and error messages
func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindQuantity:
		return "quantity"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseValueKind maps a kind name from a document file to a ValueKind
func ParseValueKind(s string) (ValueKind, error) {
	switch s {
	case "number", "":
		return KindNumber, nil
	case "string":
		return KindString, nil
	case "bool":
		return KindBool, nil
	case "quantity":
		return KindQuantity, nil
	case "list":
		return KindList, nil
	default:
		return 0, errors.Newf("unknown property kind %q", s)
	}
}

// Quantity is a unit-tagged numeric value. The unit is a flat label
// ("mm", "kg"); no dimensional analysis is performed beyond requiring
// matching units for addition and subtraction.
type Quantity struct {
	Value float64
	Unit  string
}

func (q Quantity) String() string {
	if q.Unit == "" {
		return strconv.FormatFloat(q.Value, 'g', -1, 64)
	}
	return strconv.FormatFloat(q.Value, 'g', -1, 64) + " " + q.Unit
}

// FormatValue renders a value the way the CLI and persistence layers show it
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "<unset>"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case Quantity:
		return x.String()
	case []Value:
		s := "["
		for i, e := range x {
			if i > 0 {
				s += ", "
			}
			s += FormatValue(e)
		}
		return s + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// coerce converts v to a value storable in a slot of the given kind.
// Numbers and dimensionless quantities interconvert; everything else must
// match the declared kind exactly.
func coerce(kind ValueKind, v Value) (Value, error) {
	switch kind {
	case KindNumber:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case Quantity:
			if x.Unit == "" {
				return x.Value, nil
			}
			return nil, errors.Newf("cannot store quantity %s in number slot", x)
		}
	case KindQuantity:
		switch x := v.(type) {
		case Quantity:
			return x, nil
		case float64:
			return Quantity{Value: x}, nil
		case int:
			return Quantity{Value: float64(x)}, nil
		}
	case KindString:
		if x, ok := v.(string); ok {
			return x, nil
		}
	case KindBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case KindList:
		if x, ok := v.([]Value); ok {
			return x, nil
		}
	}
	return nil, errors.Newf("cannot store %T in %s slot", v, kind)
}
