package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/object"
)

func newOwner(t *testing.T) *object.Object {
	t.Helper()
	doc := object.NewDocument("test")
	obj, err := doc.AddObject("Box")
	require.NoError(t, err)
	return obj
}

func TestParseNumbers(t *testing.T) {
	owner := newOwner(t)

	tests := []struct {
		input string
		num   float64
		unit  string
	}{
		{"5", 5, ""},
		{"2.5", 2.5, ""},
		{"1e3", 1000, ""},
		{"5mm", 5, "mm"},
		{"5 mm", 5, "mm"},
		{"2.5 kg", 2.5, "kg"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(owner, tt.input)
			require.NoError(t, err)
			require.Equal(t, KindNumber, e.Kind)
			assert.Equal(t, tt.num, e.Num)
			assert.Equal(t, tt.unit, e.Unit)
		})
	}
}

func TestParseReferences(t *testing.T) {
	owner := newOwner(t)

	tests := []struct {
		input string
		want  object.Path
	}{
		{"Width", object.Path{Object: "Box", Property: "Width"}},
		{"Sketch.Length", object.Path{Object: "Sketch", Property: "Length"}},
		{"Sketch.Points.0", object.Path{Object: "Sketch", Property: "Points", Sub: []string{"0"}}},
		{"Sketch.Grid.1.2", object.Path{Object: "Sketch", Property: "Grid", Sub: []string{"1", "2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(owner, tt.input)
			require.NoError(t, err)
			require.Equal(t, KindReference, e.Kind)
			assert.Equal(t, tt.want, e.Ref)
		})
	}
}

func TestParseBareReferenceRequiresOwner(t *testing.T) {
	_, err := Parse(nil, "Width")
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))

	// Dotted references carry their own object and need no owner
	e, err := Parse(nil, "Sketch.Length")
	require.NoError(t, err)
	assert.Equal(t, "Sketch", e.Ref.Object)
}

func TestParsePrecedence(t *testing.T) {
	owner := newOwner(t)

	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "1 + (2 * 3)"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"1 - 2 - 3", "(1 - 2) - 3"},
		{"10 / 2 % 3", "(10 / 2) % 3"},
		{"-Width + 1", "-Box.Width + 1"},
		{"min(Width, 5mm)", "min(Box.Width, 5mm)"},
		{"pow(2, 10)", "pow(2, 10)"},
		{`"a" + "b"`, `"a" + "b"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(owner, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestStringRoundTrips(t *testing.T) {
	owner := newOwner(t)

	for _, src := range []string{
		"1 + (2 * 3)",
		"(1 + 2) * 3",
		"Sketch.Length / 2 + 5mm",
		"max(Width, Sketch.Points.0, 1)",
		"-(Width - 1)",
	} {
		t.Run(src, func(t *testing.T) {
			e, err := Parse(owner, src)
			require.NoError(t, err)
			again, err := Parse(owner, e.String())
			require.NoError(t, err)
			assert.Equal(t, e.String(), again.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	owner := newOwner(t)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"trailing_input", "1 2"},
		{"unclosed_paren", "(1 + 2"},
		{"unclosed_string", `"abc`},
		{"dangling_operator", "1 +"},
		{"bad_character", "1 $ 2"},
		{"bad_index", "Sketch.Points.1.5"},
		{"empty_path_component", "Sketch..Length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(owner, tt.input)
			require.Error(t, err)
			assert.True(t, errors.IsParse(err), "got: %v", err)
		})
	}
}

func TestClone(t *testing.T) {
	owner := newOwner(t)
	e, err := Parse(owner, "Sketch.Points.0 + max(1, 2)")
	require.NoError(t, err)

	c := e.Clone()
	require.Equal(t, e.String(), c.String())

	// Mutating the clone must not leak into the original
	c.Retarget(map[string]string{"Sketch": "Profile"})
	assert.Equal(t, "Sketch.Points.0 + max(1, 2)", e.String())
	assert.Equal(t, "Profile.Points.0 + max(1, 2)", c.String())
}

func TestRefsSourceOrder(t *testing.T) {
	owner := newOwner(t)
	e, err := Parse(owner, "Sketch.B + Sketch.A + Sketch.B")
	require.NoError(t, err)

	refs := e.Refs()
	require.Len(t, refs, 2, "duplicate references collapse")
	assert.Equal(t, "Sketch.B", refs[0].String())
	assert.Equal(t, "Sketch.A", refs[1].String())
}

func TestDepObjects(t *testing.T) {
	owner := newOwner(t)

	e, err := Parse(owner, "Sketch.A + Pad.B + Width")
	require.NoError(t, err)
	assert.Equal(t, []string{"Box", "Pad", "Sketch"}, e.DepObjects())

	constant, err := Parse(owner, "1 + 2")
	require.NoError(t, err)
	assert.Empty(t, constant.DepObjects())
}

func TestRetarget(t *testing.T) {
	owner := newOwner(t)
	e, err := Parse(owner, "Sketch.A + Sketch.B + Pad.C")
	require.NoError(t, err)

	changed := e.Retarget(map[string]string{"Sketch": "Profile"})
	assert.True(t, changed)
	assert.Equal(t, "(Profile.A + Profile.B) + Pad.C", e.String())

	changed = e.Retarget(map[string]string{"Missing": "Other"})
	assert.False(t, changed)
}

func TestRenamePaths(t *testing.T) {
	doc := object.NewDocument("test")
	owner, err := doc.AddObject("Box")
	require.NoError(t, err)
	sketch, err := doc.AddObject("Sketch")
	require.NoError(t, err)
	_, err = sketch.AddProperty(object.PropertySpec{Name: "Length", Kind: object.KindNumber})
	require.NoError(t, err)
	sketch.SetLabel("Profile")

	e, err := Parse(owner, "Profile.Length + 1")
	require.NoError(t, err)

	// The reference is written via the label; the rename key is canonical
	changed := e.RenamePaths(doc, map[string]object.Path{
		"Sketch.Length": {Object: "Sketch", Property: "Span"},
	})
	assert.True(t, changed)
	assert.Equal(t, "Sketch.Span + 1", e.String())
}

func TestReferencesObject(t *testing.T) {
	doc := object.NewDocument("test")
	owner, err := doc.AddObject("Box")
	require.NoError(t, err)
	sketch, err := doc.AddObject("Sketch")
	require.NoError(t, err)
	pad, err := doc.AddObject("Pad")
	require.NoError(t, err)

	e, err := Parse(owner, "Sketch.Length + 1")
	require.NoError(t, err)

	assert.True(t, e.ReferencesObject(doc, sketch))
	assert.False(t, e.ReferencesObject(doc, pad))
}
