// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memory persists deduplicated enrichment records and answers
// similarity queries over them.
// Implements: prd002-section-memory (R1-R5);
//
//	docs/ARCHITECTURE § Section Memory.
package memory

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/enrichdoc/internal/embedding"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

const (
	dbFile         = "enrichdoc.db"
	defaultStorage = "storage"
)

// Store manages the persistent memory SQLite database. Records survive
// process restarts; they are removed only by explicit Clear calls (R3.3).
type Store struct {
	db *sql.DB
}

// Open opens or creates the memory database under cfg.StorageDir, creating
// the schema if it does not exist (R1.2). Failure here is the only
// storage-related condition that aborts a run.
func Open(cfg types.MemoryConfig) (*Store, error) {
	dir := cfg.StorageDir
	if dir == "" {
		dir = defaultStorage
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening memory database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection, flushing the WAL.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			topic TEXT NOT NULL,
			payload TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_doc_kind ON records(document_id, kind)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Match pairs a stored record with its similarity to a query vector.
type Match struct {
	Record     types.MemoryRecord
	Similarity float64
}

// Upsert inserts rec or, when the id already exists, refreshes its payload,
// embedding, and updated_at timestamp.
func (s *Store) Upsert(ctx context.Context, rec types.MemoryRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, document_id, kind, topic, payload, embedding, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`,
		rec.ID, rec.DocumentID, string(rec.Kind), rec.Topic, rec.Payload,
		encodeVector(rec.Embedding),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", rec.ID, err)
	}
	return nil
}

// Touch refreshes only the updated_at timestamp of an existing record.
// Used by the dedup path: a near-duplicate insert updates recency instead
// of creating a new record (R2.2).
func (s *Store) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE records SET updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("touching record %s: %w", id, err)
	}
	return nil
}

// Query returns at most k records of the given kind in the document's
// namespace with similarity >= minSim to vec, ordered by similarity
// descending with ties broken by most recent updated_at (R4.2). An empty
// result is not an error.
func (s *Store) Query(ctx context.Context, documentID string, kind types.RecordKind, vec embedding.Vector, k int, minSim float64) ([]Match, error) {
	recs, err := s.load(ctx, documentID, kind)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, rec := range recs {
		sim := embedding.Cosine(vec, rec.Embedding)
		if sim >= minSim {
			matches = append(matches, Match{Record: rec, Similarity: sim})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Record.UpdatedAt.After(matches[j].Record.UpdatedAt)
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// List returns all records for a document, newest first, optionally
// filtered by kind. Used by the CLI memory commands.
func (s *Store) List(ctx context.Context, documentID string, kind types.RecordKind) ([]types.MemoryRecord, error) {
	recs, err := s.load(ctx, documentID, kind)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	return recs, nil
}

// Clear deletes all records for a document, or for one kind within it when
// kind is non-empty. Memory is garbage-collected only through this call
// (R3.3). It returns the number of records removed.
func (s *Store) Clear(ctx context.Context, documentID string, kind types.RecordKind) (int64, error) {
	var res sql.Result
	var err error
	if kind == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM records WHERE document_id = ?`, documentID)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM records WHERE document_id = ? AND kind = ?`, documentID, string(kind))
	}
	if err != nil {
		return 0, fmt.Errorf("clearing records: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// load reads all records for (documentID, kind); an empty kind loads the
// whole document namespace.
func (s *Store) load(ctx context.Context, documentID string, kind types.RecordKind) ([]types.MemoryRecord, error) {
	query := `SELECT id, document_id, kind, topic, payload, embedding, created_at, updated_at
		FROM records WHERE document_id = ?`
	args := []any{documentID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var recs []types.MemoryRecord
	for rows.Next() {
		var (
			rec                  types.MemoryRecord
			kindStr              string
			blob                 []byte
			createdAt, updatedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &kindStr, &rec.Topic, &rec.Payload, &blob, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Kind = types.RecordKind(kindStr)
		rec.Embedding = decodeVector(blob)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			rec.UpdatedAt = t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// encodeVector packs a float32 vector into a little-endian byte blob.
func encodeVector(vec embedding.Vector) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(vec)*4))
	for _, f := range vec {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

// decodeVector unpacks a little-endian byte blob into a float32 vector.
func decodeVector(blob []byte) embedding.Vector {
	vec := make(embedding.Vector, 0, len(blob)/4)
	for i := 0; i+4 <= len(blob); i += 4 {
		vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(blob[i:i+4])))
	}
	return vec
}
