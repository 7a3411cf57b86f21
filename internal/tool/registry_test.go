package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID(" pdf-merge ")
	require.NoError(t, err)
	assert.Equal(t, PDFMerge, id)

	_, err = ParseID("ocr")
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Contains(t, err.Error(), `"ocr"`)
}

func TestDefaultRegistry_CoversEveryID(t *testing.T) {
	reg := DefaultRegistry()

	entries := reg.Entries()
	require.Len(t, entries, len(AllIDs))
	for i, e := range entries {
		assert.Equal(t, AllIDs[i], e.ID)
		assert.NotEmpty(t, e.Name)
		assert.NotEmpty(t, e.Accepts)
	}

	e, ok := reg.Lookup(PDFMerge)
	require.True(t, ok)
	assert.Equal(t, FamilyMerge, e.Family)

	e, _ = reg.Lookup(ImagesToPDF)
	assert.Equal(t, FamilyAggregate, e.Family)

	e, _ = reg.Lookup(PDFAnnotate)
	assert.Equal(t, FamilyAnnotated, e.Family)
}

func TestRegistry_Build(t *testing.T) {
	reg := DefaultRegistry()

	proc, e, err := reg.Build(ImageThumbnail, Params{})
	require.NoError(t, err)
	assert.NotNil(t, proc)
	assert.Equal(t, ImageThumbnail, e.ID)

	_, _, err = reg.Build(ImageConvert, Params{Options: json.RawMessage(`{"format":"heic"}`)})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Contains(t, err.Error(), "image-convert")

	empty := NewRegistry()
	_, _, err = empty.Build(PDFMerge, Params{})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestNewRegistry_Panics(t *testing.T) {
	noop := func(Params) (Processor, error) { return nil, nil }

	assert.Panics(t, func() { NewRegistry(Entry{ID: "ocr", Factory: noop}) })
	assert.Panics(t, func() { NewRegistry(Entry{ID: PDFSplit}) })
	assert.Panics(t, func() {
		NewRegistry(Entry{ID: PDFSplit, Factory: noop}, Entry{ID: PDFSplit, Factory: noop})
	})
}

func TestProcessor_RejectsWrongRequestFamily(t *testing.T) {
	proc, _, err := DefaultRegistry().Build(ImageThumbnail, Params{})
	require.NoError(t, err)

	_, err = proc.Process(context.Background(), AggregateRequest{})
	assert.ErrorContains(t, err, "expects a single request, got aggregate")

	_, err = proc.Process(context.Background(), nil)
	assert.ErrorContains(t, err, "got nil")
}
