package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/vectormath"
)

// Store is the unified SQLite-based storage providing the manifest and
// vector store interfaces through wrapper types over one connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.corpora/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".corpora", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ManifestStore returns a ManifestStore interface backed by this store.
func (s *Store) ManifestStore() driven.ManifestStore {
	return &manifestStore{store: s}
}

// VectorStore returns a VectorStore interface backed by this store.
func (s *Store) VectorStore() driven.VectorStore {
	return &vectorStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Manifest Store ====================

// manifestStore implements driven.ManifestStore.
type manifestStore struct {
	store *Store
}

var _ driven.ManifestStore = (*manifestStore)(nil)

// Save stores or updates a manifest entry.
func (s *manifestStore) Save(ctx context.Context, entry domain.ManifestEntry) error {
	if entry.IngestedAt.IsZero() {
		entry.IngestedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO manifest (file_id, path, content_hash, version, doc_type, chunk_count, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			path = excluded.path,
			content_hash = excluded.content_hash,
			version = excluded.version,
			doc_type = excluded.doc_type,
			chunk_count = excluded.chunk_count,
			ingested_at = excluded.ingested_at
	`, entry.FileID, entry.Path, entry.ContentHash, entry.Version,
		string(entry.DocType), entry.ChunkCount, entry.IngestedAt)

	if err != nil {
		return fmt.Errorf("saving manifest entry: %w", err)
	}
	return nil
}

// GetByPath retrieves the entry for a source path.
func (s *manifestStore) GetByPath(ctx context.Context, path string) (*domain.ManifestEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_id, path, content_hash, version, doc_type, chunk_count, ingested_at
		FROM manifest WHERE path = ?
	`, path)

	return scanManifestEntry(row)
}

// Get retrieves the entry for a file ID.
func (s *manifestStore) Get(ctx context.Context, fileID string) (*domain.ManifestEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_id, path, content_hash, version, doc_type, chunk_count, ingested_at
		FROM manifest WHERE file_id = ?
	`, fileID)

	return scanManifestEntry(row)
}

// Delete removes the entry for a file ID.
func (s *manifestStore) Delete(ctx context.Context, fileID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM manifest WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting manifest entry: %w", err)
	}
	return nil
}

// List returns all entries ordered by path.
func (s *manifestStore) List(ctx context.Context) ([]domain.ManifestEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file_id, path, content_hash, version, doc_type, chunk_count, ingested_at
		FROM manifest ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying manifest: %w", err)
	}
	defer rows.Close()

	var entries []domain.ManifestEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.ManifestEntry
		var docType string
		var ingestedAt sql.NullTime
		if err := rows.Scan(&entry.FileID, &entry.Path, &entry.ContentHash,
			&entry.Version, &docType, &entry.ChunkCount, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning manifest entry: %w", err)
		}
		entry.DocType = domain.DocType(docType)
		if ingestedAt.Valid {
			entry.IngestedAt = ingestedAt.Time
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manifest: %w", err)
	}

	return entries, nil
}

// scanManifestEntry scans a single manifest row.
func scanManifestEntry(row *sql.Row) (*domain.ManifestEntry, error) {
	var entry domain.ManifestEntry
	var docType string
	var ingestedAt sql.NullTime

	if err := row.Scan(&entry.FileID, &entry.Path, &entry.ContentHash,
		&entry.Version, &docType, &entry.ChunkCount, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning manifest entry: %w", err)
	}

	entry.DocType = domain.DocType(docType)
	if ingestedAt.Valid {
		entry.IngestedAt = ingestedAt.Time
	}
	return &entry, nil
}

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore with brute-force cosine
// scans. Ingestion order is the table rowid; an upsert keeps the
// original rowid, so tie-breaks stay stable across replacements.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// Upsert stores records keyed by chunk ID.
func (s *vectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (chunk_id, file_id, position, text, embed_text, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			file_id = excluded.file_id,
			position = excluded.position,
			text = excluded.text,
			embed_text = excluded.embed_text,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}

		embeddingBlob := float32SliceToBytes(r.Vector)

		if _, err := stmt.ExecContext(ctx, r.ChunkID, r.FileID, r.Position,
			r.Text, r.EmbedText, embeddingBlob, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteByFileID removes every record belonging to a file ID.
func (s *vectorStore) DeleteByFileID(ctx context.Context, fileID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM records WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

// QueryTopK returns the k nearest records by cosine similarity.
func (s *vectorStore) QueryTopK(ctx context.Context, vector []float32, k int) ([]domain.QueryResult, error) {
	results, err := s.QueryThreshold(ctx, vector, -1)
	if err != nil {
		return nil, err
	}
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// QueryThreshold returns all records scoring at least minScore, ordered
// by descending score with rowid tie break.
func (s *vectorStore) QueryThreshold(ctx context.Context, vector []float32, minScore float64) ([]domain.QueryResult, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.QueryResult, 0, len(records))
	for _, r := range records {
		score := vectormath.Cosine(vector, r.Vector)
		if score >= minScore {
			results = append(results, domain.QueryResult{Record: r, Score: score})
		}
	}
	// ListAll returns rowid order, so a stable sort keeps it as the tie
	// break.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// QueryExact returns records whose text contains the literal substring.
func (s *vectorStore) QueryExact(ctx context.Context, substring string) ([]domain.VectorRecord, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.VectorRecord
	for _, r := range records {
		if strings.Contains(r.Text, substring) || strings.Contains(r.EmbedText, substring) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListAll returns every record in rowid (ingestion) order.
func (s *vectorStore) ListAll(ctx context.Context) ([]domain.VectorRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, file_id, position, text, embed_text, embedding, metadata
		FROM records ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.VectorRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// Count returns the number of stored records.
func (s *vectorStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// UpdateMetadata overwrites the named metadata fields on the given
// chunks in one transaction, leaving other fields untouched.
func (s *vectorStore) UpdateMetadata(ctx context.Context, chunkIDs []string, fields map[string]any) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range chunkIDs {
		var metadataJSON string
		row := tx.QueryRowContext(ctx, "SELECT metadata FROM records WHERE chunk_id = ?", id)
		if err := row.Scan(&metadataJSON); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, id)
			}
			return fmt.Errorf("reading metadata: %w", err)
		}

		metadata := make(map[string]any)
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
				return fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		for k, v := range fields {
			metadata[k] = v
		}

		merged, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE records SET metadata = ? WHERE chunk_id = ?", string(merged), id); err != nil {
			return fmt.Errorf("updating metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the connection.
func (s *vectorStore) Close() error {
	return nil
}

// scanRecord scans a record from a rows cursor.
func scanRecord(rows *sql.Rows) (*domain.VectorRecord, error) {
	var record domain.VectorRecord
	var embeddingBlob []byte
	var metadataJSON string

	if err := rows.Scan(&record.ChunkID, &record.FileID, &record.Position,
		&record.Text, &record.EmbedText, &embeddingBlob, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	record.Vector = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &record.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &record, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
