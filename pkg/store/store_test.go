package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrmhollow/vectorcore/pkg/index"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetChunkRoundTrips(t *testing.T) {
	s := openTestStore(t)
	library := uuid.New()
	chunk := uuid.New()

	require.NoError(t, s.Put(context.Background(), library, chunk, Record{
		Text:         "hello there",
		DocumentName: "doc.txt",
		Vector:       []float32{1, 2, 3},
	}))

	record, found, err := s.GetChunk(context.Background(), library, chunk)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello there", record.Text)
	assert.Equal(t, "doc.txt", record.DocumentName)
}

func TestGetChunkMissingIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	record, found, err := s.GetChunk(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, record)
}

func TestDeleteRemovesChunk(t *testing.T) {
	s := openTestStore(t)
	library := uuid.New()
	chunk := uuid.New()
	require.NoError(t, s.Put(context.Background(), library, chunk, Record{Text: "gone soon"}))

	require.NoError(t, s.Delete(context.Background(), library, chunk))

	_, found, err := s.GetChunk(context.Background(), library, chunk)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteMissingChunkIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Delete(context.Background(), uuid.New(), uuid.New()))
}

func TestForEachIndexedSkipsChunksWithoutVectors(t *testing.T) {
	s := openTestStore(t)
	library := uuid.New()
	indexed := uuid.New()
	pending := uuid.New()

	require.NoError(t, s.Put(context.Background(), library, indexed, Record{
		Text:   "already embedded",
		Vector: []float32{1, 0, 0},
	}))
	require.NoError(t, s.Put(context.Background(), library, pending, Record{
		Text: "not embedded yet",
	}))

	var seen []index.ChunkID
	err := s.ForEachIndexed(context.Background(), library, func(iv IndexedVector) error {
		seen = append(seen, iv.ChunkID)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, indexed, seen[0])
}

func TestForEachIndexedScopesToLibrary(t *testing.T) {
	s := openTestStore(t)
	libraryA, libraryB := uuid.New(), uuid.New()
	chunkA, chunkB := uuid.New(), uuid.New()

	require.NoError(t, s.Put(context.Background(), libraryA, chunkA, Record{Vector: []float32{1}}))
	require.NoError(t, s.Put(context.Background(), libraryB, chunkB, Record{Vector: []float32{2}}))

	var seen []index.ChunkID
	err := s.ForEachIndexed(context.Background(), libraryA, func(iv IndexedVector) error {
		seen = append(seen, iv.ChunkID)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, chunkA, seen[0])
}

func TestForEachIndexedPropagatesCallbackError(t *testing.T) {
	s := openTestStore(t)
	library := uuid.New()
	require.NoError(t, s.Put(context.Background(), library, uuid.New(), Record{Vector: []float32{1}}))

	errBoom := assert.AnError
	err := s.ForEachIndexed(context.Background(), library, func(iv IndexedVector) error {
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
}
