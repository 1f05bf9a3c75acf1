// Package store persists chunk text and vectors in BadgerDB, implementing
// orchestrator.ChunkStore and providing the per-library rehydration reader
// that cmd/vectorcore's stats and rehydrate commands replay into a registry;
// the serve command does not rehydrate. It is the only package that touches the
// on-disk representation of a chunk; indexes never hold a pointer into it.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/orchestrator"
)

// Key prefixes for BadgerDB storage organization.
const (
	prefixChunk = byte(0x01) // chunk:libraryID:chunkID -> chunkRecord
)

// Record is a stored chunk: its text, owning document, and embedding
// vector. Vector is empty when the chunk was persisted before embedding
// succeeded (or after embedding failed); Put derives the durable "indexed"
// flag from whether Vector is non-empty rather than trusting a caller-set
// bool, so it can never drift out of sync with the data actually stored.
type Record struct {
	Text         string
	DocumentName string
	Vector       index.Vector
	Metadata     index.Metadata
}

type chunkRecord struct {
	Text         string            `json:"text"`
	DocumentName string            `json:"document_name"`
	Vector       []float32         `json:"vector"`
	Metadata     map[string]string `json:"metadata"`
	Indexed      bool              `json:"indexed"`
}

// Store persists chunk records in BadgerDB.
type Store struct {
	db *badger.DB
}

// Options configures the underlying BadgerDB instance.
type Options struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string
	// InMemory runs BadgerDB in memory-only mode, useful for tests.
	InMemory bool
}

// Open opens (creating if necessary) a BadgerDB-backed chunk store.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("vectorcore/store: open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func chunkKey(library index.LibraryID, chunk index.ChunkID) []byte {
	key := make([]byte, 0, 1+16+16)
	key = append(key, prefixChunk)
	libBytes, _ := library.MarshalBinary()
	chunkBytes, _ := chunk.MarshalBinary()
	key = append(key, libBytes...)
	key = append(key, chunkBytes...)
	return key
}

// Put stores a chunk record, overwriting any existing record for the same
// (library, chunk) pair.
func (s *Store) Put(ctx context.Context, library index.LibraryID, chunk index.ChunkID, record Record) error {
	data, err := json.Marshal(chunkRecord{
		Text:         record.Text,
		DocumentName: record.DocumentName,
		Vector:       record.Vector,
		Metadata:     record.Metadata,
		Indexed:      len(record.Vector) > 0,
	})
	if err != nil {
		return fmt.Errorf("vectorcore/store: encode chunk: %w", err)
	}

	key := chunkKey(library, chunk)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Delete removes a chunk record. Idempotent: deleting a missing chunk is not
// an error.
func (s *Store) Delete(ctx context.Context, library index.LibraryID, chunk index.ChunkID) error {
	key := chunkKey(library, chunk)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("vectorcore/store: delete chunk: %w", err)
	}
	return nil
}

// GetChunk implements orchestrator.ChunkStore. found is false (not an error)
// when the chunk has been removed since it was indexed — spec.md §7's
// StoreFetchMiss, recovered by the orchestrator rather than surfaced.
func (s *Store) GetChunk(ctx context.Context, library index.LibraryID, chunk index.ChunkID) (record orchestrator.ChunkRecord, found bool, err error) {
	key := chunkKey(library, chunk)
	var decoded chunkRecord
	txErr := s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &decoded)
		})
	})
	if txErr != nil {
		return orchestrator.ChunkRecord{}, false, fmt.Errorf("vectorcore/store: get chunk: %w", txErr)
	}
	if !found {
		return orchestrator.ChunkRecord{}, false, nil
	}
	return orchestrator.ChunkRecord{Text: decoded.Text, DocumentName: decoded.DocumentName}, true, nil
}

// IndexedVector pairs a chunk id with the vector and metadata to replay into
// an index at rehydration time.
type IndexedVector struct {
	ChunkID  index.ChunkID
	Vector   index.Vector
	Metadata index.Metadata
}

// ForEachIndexed iterates every stored chunk for library whose record is
// marked Indexed, invoking fn for each. It is the rehydration reader that
// cmd/vectorcore's stats and rehydrate commands use to rebuild in-memory
// indexes for one library from durable storage; chunks written before they were successfully embedded (Indexed
// false) are skipped rather than replayed as zero vectors.
func (s *Store) ForEachIndexed(ctx context.Context, library index.LibraryID, fn func(IndexedVector) error) error {
	prefix := make([]byte, 0, 1+16)
	prefix = append(prefix, prefixChunk)
	libBytes, _ := library.MarshalBinary()
	prefix = append(prefix, libBytes...)

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := it.Item().KeyCopy(nil)
			chunkIDBytes := key[1+16:]
			var cid index.ChunkID
			if err := cid.UnmarshalBinary(chunkIDBytes); err != nil {
				continue
			}

			var decoded chunkRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &decoded)
			}); err != nil {
				continue
			}
			if !decoded.Indexed {
				continue
			}

			if err := fn(IndexedVector{ChunkID: cid, Vector: decoded.Vector, Metadata: decoded.Metadata}); err != nil {
				return err
			}
		}
		return nil
	})
}
