package evidence

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore_PutGetRoundtrip(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("evidence payload")
	require.NoError(t, store.Put(ctx, "envelope/env-1/snapshot.json", data))

	got, err := store.Get(ctx, "envelope/env-1/snapshot.json")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))

	exists, err := store.Exists(ctx, "envelope/env-1/snapshot.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileSystemStore_RejectsDotDotSegment(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../../etc/passwd", []byte("x"))
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestFileSystemStore_RejectsAbsoluteEscape(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "foo/../../bar", []byte("x"))
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestFileSystemStore_GetMissingReturnsError(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope.json")
	assert.Error(t, err)
}

func TestFileSystemStore_NestedIDCreatesSubdirectories(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "a/b/c.json", []byte("nested")))

	got, err := store.Get(context.Background(), "a/b/c.json")
	require.NoError(t, err)
	assert.Equal(t, "nested", string(got))
	assert.True(t, strings.HasPrefix(filepath.Join(root, "a", "b", "c.json"), root))
}

func TestRecord_InlinesSmallData(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	snap, err := Record(context.Background(), store, "small.json", []byte("small payload"))
	require.NoError(t, err)
	assert.Equal(t, "small payload", string(snap.Inline))
	assert.Empty(t, snap.BlobRef)
	assert.NotEmpty(t, snap.Hash)
}

func TestRecord_WritesLargeDataToStoreWithPreview(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	large := bytes.Repeat([]byte("x"), InlineThresholdBytes+1)
	snap, err := Record(context.Background(), store, "large.bin", large)
	require.NoError(t, err)
	assert.Empty(t, snap.Inline)
	assert.Equal(t, "large.bin", snap.BlobRef)
	assert.NotEmpty(t, snap.Preview)
	assert.Less(t, len(snap.Preview), len(large))

	stored, err := store.Get(context.Background(), "large.bin")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(large, stored))
}
