package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no cgo

	"github.com/raildex/retrieval-engine/internal/embedding"
	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/validation"
)

// sqliteConn is shared by SQLiteVectorStore and SQLiteMetadataStore so
// operators can point both at one on-disk file; closeOnce keeps either
// store's Close from double-closing the underlying *sql.DB.
type sqliteConn struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

func (c *sqliteConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

// SQLiteVectorStore is an on-disk VectorStore for operators who need
// embeddings to survive a process restart instead of re-embedding from
// scratch. It has no native vector index: similarity is computed in Go
// over every row matching the filter, same as MemoryVectorStore, which
// is fine at the row counts a single-repo index holds.
type SQLiteVectorStore struct {
	conn *sqliteConn
}

// SQLiteMetadataStore is an on-disk MetadataStore companion to
// SQLiteVectorStore.
type SQLiteMetadataStore struct {
	conn *sqliteConn
}

// NewSQLiteStores opens (creating if absent) a SQLite database at path
// and returns a vector store and a metadata store sharing the
// connection. Pass ":memory:" for an ephemeral database, used by tests
// that want this backend's exact SQL behavior without a tmp file.
func NewSQLiteStores(path string) (*SQLiteVectorStore, *SQLiteMetadataStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("store: open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		// A pooled connection would hand goroutines separate in-memory
		// databases; pin to one so schema and rows are visible everywhere.
		db.SetMaxOpenConns(1)
	}
	conn := &sqliteConn{db: db}
	if err := initSchema(db); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteVectorStore{conn: conn}, &SQLiteMetadataStore{conn: conn}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS vectors (
		id TEXT PRIMARY KEY,
		vector TEXT NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS metadata_records (
		id TEXT PRIMARY KEY,
		metadata TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_updated_at ON vectors(updated_at);
	CREATE INDEX IF NOT EXISTS idx_metadata_records_updated_at ON metadata_records(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteVectorStore) Upsert(ctx context.Context, id string, vector embedding.Vector, metadata map[string]any) error {
	if id == "" {
		return rerr.New(rerr.KindValidation, "store.SQLiteVectorStore.Upsert", fmt.Errorf("empty id"))
	}
	if err := validation.ValidateFilters(subsetAllowed(metadata)); err != nil {
		return err
	}
	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("store: marshal vector: %w", err)
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata: %w", err)
	}
	now := time.Now().Unix()
	_, err = s.conn.db.ExecContext(ctx, `
		INSERT INTO vectors (id, vector, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET vector = excluded.vector, metadata = excluded.metadata, updated_at = excluded.updated_at
	`, id, string(vectorJSON), string(metadataJSON), now, now)
	if err != nil {
		return fmt.Errorf("store: upsert vector %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteVectorStore) UpsertBatch(ctx context.Context, items []VectorUpsert) error {
	tx, err := s.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin batch upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, vector, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET vector = excluded.vector, metadata = excluded.metadata, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("store: prepare batch upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if item.ID == "" {
			return rerr.New(rerr.KindValidation, "store.SQLiteVectorStore.UpsertBatch", fmt.Errorf("empty id"))
		}
		vectorJSON, err := json.Marshal(item.Vector)
		if err != nil {
			return fmt.Errorf("store: marshal vector %s: %w", item.ID, err)
		}
		metadataJSON, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("store: marshal metadata %s: %w", item.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, item.ID, string(vectorJSON), string(metadataJSON), now, now); err != nil {
			return fmt.Errorf("store: upsert %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteVectorStore) Search(ctx context.Context, vector embedding.Vector, filters map[string]any, limit int) ([]VectorRecord, error) {
	if err := validation.ValidateFilters(filters); err != nil {
		return nil, err
	}
	rows, err := s.conn.db.QueryContext(ctx, `SELECT id, vector, metadata FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("store: search vectors: %w", err)
	}
	defer rows.Close()

	var results []VectorRecord
	for rows.Next() {
		var id, vectorJSON string
		var metadataJSON sql.NullString
		if err := rows.Scan(&id, &vectorJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("store: scan vector row: %w", err)
		}
		md, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("store: decode metadata %s: %w", id, err)
		}
		if !matchesFilters(md, filters) {
			continue
		}
		var candidate embedding.Vector
		if err := json.Unmarshal([]byte(vectorJSON), &candidate); err != nil {
			return nil, fmt.Errorf("store: decode vector %s: %w", id, err)
		}
		results = append(results, VectorRecord{ID: id, Similarity: cosineSimilarity(vector, candidate), Metadata: md})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate vector rows: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *SQLiteVectorStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.conn.db.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete vector %s: %w", id, err)
		}
	}
	return nil
}

func (s *SQLiteVectorStore) DeleteByFilter(ctx context.Context, filters map[string]any) error {
	if err := validation.ValidateFilters(filters); err != nil {
		return err
	}
	rows, err := s.conn.db.QueryContext(ctx, `SELECT id, metadata FROM vectors`)
	if err != nil {
		return fmt.Errorf("store: delete by filter: %w", err)
	}
	var toDelete []string
	for rows.Next() {
		var id string
		var metadataJSON sql.NullString
		if err := rows.Scan(&id, &metadataJSON); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan vector row: %w", err)
		}
		md, err := decodeMetadata(metadataJSON)
		if err != nil {
			rows.Close()
			return fmt.Errorf("store: decode metadata %s: %w", id, err)
		}
		if matchesFilters(md, filters) {
			toDelete = append(toDelete, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate vector rows: %w", err)
	}
	return s.Delete(ctx, toDelete)
}

func (s *SQLiteVectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.conn.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count vectors: %w", err)
	}
	return count, nil
}

func (s *SQLiteVectorStore) Close() error { return s.conn.Close() }

func (s *SQLiteMetadataStore) Upsert(ctx context.Context, id string, metadata map[string]any) error {
	if id == "" {
		return rerr.New(rerr.KindValidation, "store.SQLiteMetadataStore.Upsert", fmt.Errorf("empty id"))
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata: %w", err)
	}
	now := time.Now().Unix()
	_, err = s.conn.db.ExecContext(ctx, `
		INSERT INTO metadata_records (id, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata, updated_at = excluded.updated_at
	`, id, string(metadataJSON), now, now)
	if err != nil {
		return fmt.Errorf("store: upsert metadata %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteMetadataStore) Find(ctx context.Context, id string) (map[string]any, error) {
	var metadataJSON sql.NullString
	err := s.conn.db.QueryRowContext(ctx, `SELECT metadata FROM metadata_records WHERE id = ?`, id).Scan(&metadataJSON)
	if err == sql.ErrNoRows {
		return nil, rerr.New(rerr.KindNotFound, "store.SQLiteMetadataStore.Find", fmt.Errorf("id %q not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("store: find metadata %s: %w", id, err)
	}
	return decodeMetadata(metadataJSON)
}

func (s *SQLiteMetadataStore) SearchKeywords(ctx context.Context, keywords []string, fields []string, filters map[string]any, limit int) ([]MetadataRecord, error) {
	if err := validation.ValidateFilters(filters); err != nil {
		return nil, err
	}
	escaped, err := sanitizeKeywords(keywords)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = KeywordFields
	}

	all, err := s.allRecords(ctx)
	if err != nil {
		return nil, err
	}

	var results []MetadataRecord
	for id, md := range all {
		if !matchesFilters(md, filters) {
			continue
		}
		matched := matchedFields(md, fields, escaped)
		if len(matched) == 0 {
			continue
		}
		results = append(results, MetadataRecord{
			ID:            id,
			MatchScore:    matchScore(len(matched)),
			MatchedFields: matched,
			Metadata:      md,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		pi, pj := bestFieldPriority(results[i].MatchedFields), bestFieldPriority(results[j].MatchedFields)
		if pi != pj {
			return pi < pj
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *SQLiteMetadataStore) Query(ctx context.Context, filters map[string]any, limit int) ([]string, error) {
	if err := validation.ValidateFilters(filters); err != nil {
		return nil, err
	}
	all, err := s.allRecords(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, md := range all {
		if matchesFilters(md, filters) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *SQLiteMetadataStore) ListByType(ctx context.Context, typ string, limit int) ([]string, error) {
	return s.Query(ctx, map[string]any{"type": typ}, limit)
}

func (s *SQLiteMetadataStore) Delete(ctx context.Context, id string) error {
	if _, err := s.conn.db.ExecContext(ctx, `DELETE FROM metadata_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete metadata %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteMetadataStore) Close() error { return s.conn.Close() }

func (s *SQLiteMetadataStore) allRecords(ctx context.Context) (map[string]map[string]any, error) {
	rows, err := s.conn.db.QueryContext(ctx, `SELECT id, metadata FROM metadata_records`)
	if err != nil {
		return nil, fmt.Errorf("store: query metadata records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]any)
	for rows.Next() {
		var id string
		var metadataJSON sql.NullString
		if err := rows.Scan(&id, &metadataJSON); err != nil {
			return nil, fmt.Errorf("store: scan metadata row: %w", err)
		}
		md, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("store: decode metadata %s: %w", id, err)
		}
		out[id] = md
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate metadata rows: %w", err)
	}
	return out, nil
}

func decodeMetadata(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return map[string]any{}, nil
	}
	md := make(map[string]any)
	if err := json.Unmarshal([]byte(raw.String), &md); err != nil {
		return nil, err
	}
	return md, nil
}
