package thread

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/models"
)

type memStore struct {
	nodes map[string]models.OutlineNode
	texts map[string]string
}

func newMemStore(root models.OutlineNode, extra map[string]string) *memStore {
	s := &memStore{nodes: map[string]models.OutlineNode{root.ID: root}, texts: map[string]string{}}
	s.texts[root.ID] = root.Text
	for _, c := range root.Children {
		s.texts[c.ID] = c.Text
	}
	for id, text := range extra {
		s.texts[id] = text
	}
	return s
}

func (s *memStore) FetchBlockWithChildren(_ context.Context, id string) (models.OutlineNode, error) {
	n, ok := s.nodes[id]
	if !ok {
		return models.OutlineNode{}, apperr.ErrNotFound
	}
	return n, nil
}

func (s *memStore) UpdateBlockText(_ context.Context, id, text string) error {
	s.texts[id] = text
	return nil
}

func (s *memStore) BlockText(_ context.Context, id string) (string, bool, error) {
	t, ok := s.texts[id]
	return t, ok, nil
}

func outlineOf(root string, children ...string) models.OutlineNode {
	n := models.OutlineNode{ID: "rootblock", Text: root}
	for i, c := range children {
		n.Children = append(n.Children, models.OutlineNode{ID: "child" + string(rune('a'+i)), Text: c, Order: i})
	}
	return n
}

func TestAssemble_AllWithinLimitKeepsOrder(t *testing.T) {
	store := newMemStore(outlineOf("root", "one", "two", strings.Repeat("x", 300)), nil)
	a := NewAssembler(store, nil, 0, nil)

	blocks, err := a.Assemble(context.Background(), "rootblock")
	require.NoError(t, err)
	require.Len(t, blocks, 4)
	for i, want := range []string{"root", "one", "two"} {
		assert.Equal(t, want, blocks[i].Text)
		assert.Equal(t, i, blocks[i].Position)
	}
	assert.Equal(t, 300, blocks[3].Length)
}

func TestAssemble_ReplyTooLong(t *testing.T) {
	store := newMemStore(outlineOf("root", "fine", strings.Repeat("b", 305)), nil)
	a := NewAssembler(store, nil, 0, nil)

	blocks, err := a.Assemble(context.Background(), "rootblock")
	assert.Nil(t, blocks)

	var valErr *apperr.ValidationError
	require.True(t, errors.As(err, &valErr))
	require.Len(t, valErr.Violations, 1)
	assert.Equal(t, apperr.Violation{Label: "reply #2", Length: 305, Overage: 5}, valErr.Violations[0])
	assert.Contains(t, err.Error(), "reply #2")
	assert.Contains(t, err.Error(), "305")
}

func TestAssemble_RootTooLong(t *testing.T) {
	store := newMemStore(outlineOf(strings.Repeat("A", 301)), nil)
	a := NewAssembler(store, nil, 0, nil)

	_, err := a.Assemble(context.Background(), "rootblock")

	var valErr *apperr.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, []apperr.Violation{{Label: "root", Length: 301, Overage: 1}}, valErr.Violations)
}

func TestAssemble_EnumeratesEveryViolation(t *testing.T) {
	long := strings.Repeat("z", 310)
	store := newMemStore(outlineOf(long, "ok", long, "ok", long), nil)
	a := NewAssembler(store, nil, 0, nil)

	_, err := a.Assemble(context.Background(), "rootblock")

	var valErr *apperr.ValidationError
	require.True(t, errors.As(err, &valErr))
	labels := make([]string, len(valErr.Violations))
	for i, v := range valErr.Violations {
		labels[i] = v.Label
	}
	assert.Equal(t, []string{"root", "reply #2", "reply #4"}, labels)
}

func TestAssemble_EmptyRootAndChildren(t *testing.T) {
	store := newMemStore(outlineOf("", "text", "   ", "![](https://example.com/a.png)"), nil)
	a := NewAssembler(store, nil, 0, nil)

	blocks, err := a.Assemble(context.Background(), "rootblock")
	require.NoError(t, err)
	require.Len(t, blocks, 4)
	assert.True(t, blocks[0].IsEmpty())
	assert.False(t, blocks[1].IsEmpty())
	assert.True(t, blocks[2].IsEmpty())
	assert.False(t, blocks[3].IsEmpty(), "media-only block is not empty")
}

func TestAssemble_ResolvesAndAnnotates(t *testing.T) {
	store := newMemStore(outlineOf("Hello [[World]] ((abc123456))"), map[string]string{"abc123456": "friends"})
	a := NewAssembler(store, nil, 0, nil)

	blocks, err := a.Assemble(context.Background(), "rootblock")
	require.NoError(t, err)
	assert.Equal(t, "Hello #World friends", blocks[0].Text)
	require.Len(t, blocks[0].Annotations, 1)
	assert.Equal(t, models.AnnotationTag, blocks[0].Annotations[0].Kind)
}

func TestAssemble_LengthMeasuredAfterResolution(t *testing.T) {
	// 290 characters of text plus a long link label that is discarded.
	raw := strings.Repeat("a", 290) + "[" + strings.Repeat("label ", 10) + "](x.io)"
	store := newMemStore(outlineOf(raw), nil)
	a := NewAssembler(store, nil, 0, nil)

	blocks, err := a.Assemble(context.Background(), "rootblock")
	require.NoError(t, err)
	assert.Equal(t, 294, blocks[0].Length)
}

func TestAssemble_UnknownRoot(t *testing.T) {
	a := NewAssembler(newMemStore(outlineOf("x"), nil), nil, 0, nil)
	_, err := a.Assemble(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProcess_KeepsOverlongBlocks(t *testing.T) {
	store := newMemStore(outlineOf(strings.Repeat("A", 301), "ok"), nil)
	a := NewAssembler(store, nil, 0, nil)

	blocks, err := a.Process(context.Background(), "rootblock")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 301, blocks[0].Length)

	var valErr *apperr.ValidationError
	require.True(t, errors.As(a.Validate(blocks), &valErr))
}
