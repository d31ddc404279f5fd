package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/object"
)

// evalDoc builds a document with a Box owner and a Sketch sibling carrying
// the values formulas read in these tests.
func evalDoc(t *testing.T) (*object.Document, *object.Object) {
	t.Helper()
	doc := object.NewDocument("test")

	box, err := doc.AddObject("Box")
	require.NoError(t, err)
	_, err = box.AddProperty(object.PropertySpec{Name: "Width", Kind: object.KindNumber, Value: 4.0})
	require.NoError(t, err)

	sketch, err := doc.AddObject("Sketch")
	require.NoError(t, err)
	_, err = sketch.AddProperty(object.PropertySpec{Name: "Length", Kind: object.KindQuantity, Value: object.Quantity{Value: 10, Unit: "mm"}})
	require.NoError(t, err)
	_, err = sketch.AddProperty(object.PropertySpec{Name: "Name", Kind: object.KindString, Value: "profile"})
	require.NoError(t, err)
	_, err = sketch.AddProperty(object.PropertySpec{Name: "Points", Kind: object.KindList, Value: []object.Value{1.0, 2.0, 3.0}})
	require.NoError(t, err)
	_, err = sketch.AddProperty(object.PropertySpec{Name: "Empty", Kind: object.KindNumber})
	require.NoError(t, err)

	return doc, box
}

func TestEval(t *testing.T) {
	doc, owner := evalDoc(t)

	tests := []struct {
		input string
		want  object.Value
	}{
		{"1 + 2 * 3", 7.0},
		{"(1 + 2) * 3", 9.0},
		{"-5 + 2", -3.0},
		{"7 % 4", 3.0},
		{"Width", 4.0},
		{"Width * 2 + 1", 9.0},
		{"Sketch.Points.1", 2.0},
		{`"a" + "b"`, "ab"},
		{"5mm + 3mm", object.Quantity{Value: 8, Unit: "mm"}},
		{"5mm + 3", object.Quantity{Value: 8, Unit: "mm"}},
		{"Sketch.Length * 2", object.Quantity{Value: 20, Unit: "mm"}},
		{"10mm / 5mm", 2.0},
		{"10mm / 2", object.Quantity{Value: 5, Unit: "mm"}},
		{"abs(-3)", 3.0},
		{"abs(-3mm)", object.Quantity{Value: 3, Unit: "mm"}},
		{"floor(2.7)", 2.0},
		{"ceil(2.1)", 3.0},
		{"round(2.5)", 3.0},
		{"sqrt(16)", 4.0},
		{"pow(2, 10)", 1024.0},
		{"min(3, 1, 2)", 1.0},
		{"max(3mm, 1mm, 2mm)", object.Quantity{Value: 3, Unit: "mm"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(owner, tt.input)
			require.NoError(t, err)
			got, err := e.Eval(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	doc, owner := evalDoc(t)

	tests := []struct {
		name  string
		input string
	}{
		{"unresolved_object", "Missing.Width + 1"},
		{"unresolved_property", "Sketch.Missing + 1"},
		{"unset_value", "Sketch.Empty + 1"},
		{"unit_mismatch_add", "5mm + 3kg"},
		{"unit_mismatch_minmax", "min(5mm, 3kg)"},
		{"two_united_multiply", "5mm * 3mm"},
		{"unit_divide_mismatch", "5mm / 3kg"},
		{"division_by_zero", "1 / 0"},
		{"modulo_by_zero", "1 % 0"},
		{"modulo_with_units", "5mm % 2"},
		{"string_plus_number", `"a" + 1`},
		{"negate_string", `-Sketch.Name`},
		{"sqrt_negative", "sqrt(0 - 4)"},
		{"sqrt_with_unit", "sqrt(4mm)"},
		{"unknown_function", "frobnicate(1)"},
		{"wrong_arity", "sqrt(1, 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(owner, tt.input)
			require.NoError(t, err)
			_, err = e.Eval(doc)
			require.Error(t, err)
			assert.True(t, errors.IsEvaluation(err), "got: %v", err)
		})
	}
}

func TestEvalReadsThroughLabels(t *testing.T) {
	doc, owner := evalDoc(t)
	doc.Object("Sketch").SetLabel("Profile")

	e, err := Parse(owner, "Profile.Points.2 + 1")
	require.NoError(t, err)
	got, err := e.Eval(doc)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)
}
