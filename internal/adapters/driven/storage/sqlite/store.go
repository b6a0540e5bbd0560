package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DBFile is the database file name inside the data directory.
const DBFile = "index.db"

// Ensure Store implements the interfaces.
var (
	_ driven.VectorIndex  = (*Store)(nil)
	_ driven.SizeReporter = (*Store)(nil)
)

// Store is a SQLite-backed vector index.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the index in dataDir.
// If dataDir is empty, defaults to ~/.docqa/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
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

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_chunks.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// Upsert writes the batch in one transaction.
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, doc_id, text, metadata, embedding, dimensions)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_id = excluded.doc_id,
			text = excluded.text,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		if string(metadataJSON) == "null" {
			metadataJSON = []byte("{}")
		}
		docID := storage.MetadataString(r.Metadata[domain.MetaDocID])
		if _, err := stmt.ExecContext(ctx, r.ID, docID, r.Text, string(metadataJSON),
			float32SliceToBytes(r.Vector), len(r.Vector)); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query scans matching rows and keeps the k nearest.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]driven.VectorHit, error) {
	where, args := whereClause(filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, metadata, embedding FROM chunks"+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var (
			id, text, metadataJSON string
			blob                   []byte
		)
		if err := rows.Scan(&id, &text, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		d, err := storage.CosineDistance(vector, bytesToFloat32Slice(blob))
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		meta, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		hits = append(hits, driven.VectorHit{ID: id, Text: text, Metadata: meta, Distance: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return storage.TopK(hits, k), nil
}

// Delete removes ids in one transaction.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("deleting chunk %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// IDsWhere returns ids whose metadata key equals value.
func (s *Store) IDsWhere(ctx context.Context, key, value string) ([]string, error) {
	where, args := whereClause(map[string]string{key: value})
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM chunks"+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Peek returns up to limit chunks in insertion order, without vectors.
func (s *Store) Peek(ctx context.Context, limit int) ([]driven.VectorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, metadata FROM chunks ORDER BY rowid LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("peeking chunks: %w", err)
	}
	defer rows.Close()

	var out []driven.VectorRecord
	for rows.Next() {
		var id, text, metadataJSON string
		if err := rows.Scan(&id, &text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		meta, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		out = append(out, driven.VectorRecord{ID: id, Text: text, Metadata: meta})
	}
	return out, rows.Err()
}

// SizeBytes returns the on-disk size of the database including its WAL.
func (s *Store) SizeBytes(_ context.Context) (int64, error) {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal"} {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", p, err)
		}
		total += info.Size()
	}
	return total, nil
}

// metadataEquals renders a metadata value as text the way
// storage.MetadataString does. json_extract turns JSON booleans into 1 and 0,
// so they are spelled out from json_type instead.
const metadataEquals = `CASE json_type(metadata, ?)
	WHEN 'true' THEN 'true'
	WHEN 'false' THEN 'false'
	ELSE CAST(json_extract(metadata, ?) AS TEXT)
END = ?`

// whereClause builds an AND of metadata equality tests. doc_id uses its
// indexed column; other keys compare the JSON value as text.
func whereClause(filter map[string]string) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		if k == domain.MetaDocID {
			conds = append(conds, "doc_id = ?")
			args = append(args, filter[k])
			continue
		}
		conds = append(conds, metadataEquals)
		path := `$."` + k + `"`
		args = append(args, path, path, filter[k])
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodeMetadata(raw string) (map[string]any, error) {
	meta := make(map[string]any)
	if raw == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return meta, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
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
