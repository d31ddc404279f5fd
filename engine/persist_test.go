package engine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/reflow/object"
)

func TestRecords(t *testing.T) {
	_, eng := newRig(t)
	owner := eng.Owner()

	require.NoError(t, eng.Set(mustPath(t, "Box.x"), mustParse(t, owner, "Sketch.Width + 1"), "total"))
	require.NoError(t, eng.Set(mustPath(t, "Box.y"), mustParse(t, owner, "5"), ""))

	recs := eng.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, Record{Path: "Box.x", Expression: "Sketch.Width + 1", Comment: "total"}, recs[0])
	assert.Equal(t, Record{Path: "Box.y", Expression: "5"}, recs[1])
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	_, eng := newRig(t)
	owner := eng.Owner()

	require.NoError(t, eng.Set(mustPath(t, "Box.x"), mustParse(t, owner, "Box.y + 1"), "derived"))
	require.NoError(t, eng.Set(mustPath(t, "Box.y"), mustParse(t, owner, "Sketch.Width * 2"), ""))

	var buf bytes.Buffer
	require.NoError(t, eng.Save(&buf))
	assert.Contains(t, buf.String(), "count: 2")

	// Restore into a fresh engine on an identical document
	_, loaded := newRig(t)
	require.NoError(t, loaded.Restore(&buf))
	assert.Zero(t, loaded.NumBindings(), "staged entries are not active until the document is complete")

	require.NoError(t, loaded.ActivateRestored())
	assert.Equal(t, eng.Records(), loaded.Records())

	require.NoError(t, loaded.Execute(ScopeAll))
	assert.Equal(t, 8.0, loaded.Owner().Property("y").Get())
	assert.Equal(t, 9.0, loaded.Owner().Property("x").Get())
}

func TestRestoreCountMismatch(t *testing.T) {
	_, eng := newRig(t)

	data := `count: 2
expressions:
  - path: Box.x
    expression: "5"
`
	err := eng.Restore(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count")
}

func TestRestoreRejectsMalformedEntries(t *testing.T) {
	_, eng := newRig(t)

	tests := []struct {
		name string
		data string
	}{
		{"bad_path", "count: 1\nexpressions:\n  - path: nodot\n    expression: \"5\"\n"},
		{"bad_expression", "count: 1\nexpressions:\n  - path: Box.x\n    expression: \"5 +\"\n"},
		{"not_yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, eng.Restore(strings.NewReader(tt.data)))
		})
	}
}

func TestActivateRestoredSignalsOncePerTarget(t *testing.T) {
	_, eng := newRig(t)
	owner := eng.Owner()

	require.NoError(t, eng.Set(mustPath(t, "Box.x"), mustParse(t, owner, "1"), ""))
	require.NoError(t, eng.Set(mustPath(t, "Box.y"), mustParse(t, owner, "2"), ""))

	var buf bytes.Buffer
	require.NoError(t, eng.Save(&buf))

	_, loaded := newRig(t)
	counts := make(map[string]int)
	loaded.SetChangeListener(func(p object.Path) { counts[p.String()]++ })

	require.NoError(t, loaded.Restore(&buf))
	require.NoError(t, loaded.ActivateRestored())

	assert.Equal(t, map[string]int{"Box.x": 1, "Box.y": 1}, counts,
		"activation delivers one coalesced signal per target")
}

func TestActivateRestoredStopsAtFirstFailure(t *testing.T) {
	_, eng := newRig(t)

	// Second staged entry targets a property the document does not have
	data := `count: 2
expressions:
  - path: Box.x
    expression: "1"
  - path: Box.missing
    expression: "2"
`
	require.NoError(t, eng.Restore(strings.NewReader(data)))

	err := eng.ActivateRestored()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Box.missing")

	// The entry activated before the failure is live
	got, _, gerr := eng.Get(mustPath(t, "Box.x"))
	require.NoError(t, gerr)
	assert.NotNil(t, got)
}
