package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docuchat/docuchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// document and session store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docuchat/data/docuchat.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docuchat", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "docuchat.db")

	// Open database with WAL mode for better concurrency. Transactions
	// take the write lock immediately so racing turn appends serialize
	// instead of failing with a snapshot conflict.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate")
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

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// SessionStore returns a SessionStore interface backed by this store.
func (s *Store) SessionStore() driven.SessionStore {
	return &sessionStore{store: s}
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

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores a document with its pages and passages in one
// transaction. Documents are immutable, so an existing id is rejected.
func (s *documentStore) SaveDocument(
	ctx context.Context,
	doc *domain.Document,
	pages []domain.Page,
	passages []domain.Passage,
) error {
	if doc.ID == "" {
		return fmt.Errorf("saving document: empty id: %w", domain.ErrInvalidInput)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE id = ?", doc.ID).Scan(&count); err != nil {
		return fmt.Errorf("checking document id: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("document %s already exists: %w", doc.ID, domain.ErrInvalidInput)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, page_count, created_at)
		VALUES (?, ?, ?, ?)
	`, doc.ID, doc.Filename, doc.PageCount, doc.CreatedAt); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (document_id, number, text) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing page statement: %w", err)
	}
	defer pageStmt.Close()

	for _, page := range pages {
		if _, err := pageStmt.ExecContext(ctx, doc.ID, page.Number, page.Text); err != nil {
			return fmt.Errorf("saving page %d: %w", page.Number, err)
		}
	}

	passageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (id, document_id, page, start_offset, end_offset, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing passage statement: %w", err)
	}
	defer passageStmt.Close()

	for _, p := range passages {
		embeddingBlob := float32SliceToBytes(p.Embedding)
		if _, err := passageStmt.ExecContext(ctx, p.ID, doc.ID, p.Page,
			p.StartOffset, p.EndOffset, p.Text, embeddingBlob); err != nil {
			return fmt.Errorf("saving passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, filename, page_count, created_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.PageCount, &doc.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	return &doc, nil
}

// GetPassages retrieves all passages of a document in page and offset order.
func (s *documentStore) GetPassages(ctx context.Context, documentID string) ([]domain.Passage, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, page, start_offset, end_offset, text, embedding
		FROM passages WHERE document_id = ?
		ORDER BY page, start_offset
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.Passage
		var embeddingBlob []byte
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Page,
			&p.StartOffset, &p.EndOffset, &p.Text, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		p.Embedding = bytesToFloat32Slice(embeddingBlob)
		passages = append(passages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}

	return passages, nil
}

// GetPassage retrieves a specific passage by ID.
func (s *documentStore) GetPassage(ctx context.Context, id string) (*domain.Passage, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, page, start_offset, end_offset, text, embedding
		FROM passages WHERE id = ?
	`, id)

	var p domain.Passage
	var embeddingBlob []byte
	if err := row.Scan(&p.ID, &p.DocumentID, &p.Page,
		&p.StartOffset, &p.EndOffset, &p.Text, &embeddingBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning passage: %w", err)
	}
	p.Embedding = bytesToFloat32Slice(embeddingBlob)

	return &p, nil
}

// ListDocuments returns all documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, filename, page_count, created_at
		FROM documents ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.PageCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document; pages and passages cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// CreateSession creates an empty session.
func (s *sessionStore) CreateSession(ctx context.Context) (*domain.Session, error) {
	session := &domain.Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at) VALUES (?, ?)
	`, session.ID, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return session, nil
}

// GetSession retrieves a session by ID.
func (s *sessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM sessions WHERE id = ?
	`, id)

	var session domain.Session
	if err := row.Scan(&session.ID, &session.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	return &session, nil
}

// DeleteSession removes a session; turns cascade.
func (s *sessionStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendTurn appends a turn to a session and returns its id. The check
// for an existing pending assistant turn and the insert run in one
// write transaction, so of two racing appends exactly one wins.
func (s *sessionStore) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) (string, error) {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	citationsJSON, err := json.Marshal(citationsOrEmpty(turn.Citations))
	if err != nil {
		return "", fmt.Errorf("marshalling citations: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE id = ?", sessionID).Scan(&exists); err != nil {
		return "", fmt.Errorf("checking session: %w", err)
	}
	if exists == 0 {
		return "", domain.ErrNotFound
	}

	if turn.Status == domain.TurnPending {
		var pending int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM turns WHERE session_id = ? AND status = ?
		`, sessionID, domain.TurnPending).Scan(&pending); err != nil {
			return "", fmt.Errorf("checking pending turns: %w", err)
		}
		if pending > 0 {
			return "", fmt.Errorf("session %s already has a pending turn: %w", sessionID, domain.ErrTurnState)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, role, content, citations, status, fail_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, turn.ID, sessionID, string(turn.Role), turn.Content, string(citationsJSON),
		string(turn.Status), turn.FailReason, turn.CreatedAt); err != nil {
		return "", fmt.Errorf("appending turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}
	return turn.ID, nil
}

// AppendExchange appends a completed user turn and a pending assistant
// turn in one write transaction. A session that already has a pending
// turn fails the whole exchange, so the loser of a race records
// nothing.
func (s *sessionStore) AppendExchange(ctx context.Context, sessionID string, userText string) (string, error) {
	now := time.Now().UTC()
	userID := uuid.New().String()
	assistantID := uuid.New().String()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE id = ?", sessionID).Scan(&exists); err != nil {
		return "", fmt.Errorf("checking session: %w", err)
	}
	if exists == 0 {
		return "", domain.ErrNotFound
	}

	var pending int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM turns WHERE session_id = ? AND status = ?
	`, sessionID, domain.TurnPending).Scan(&pending); err != nil {
		return "", fmt.Errorf("checking pending turns: %w", err)
	}
	if pending > 0 {
		return "", fmt.Errorf("session %s already has a pending turn: %w", sessionID, domain.ErrTurnState)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, role, content, citations, status, fail_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, sessionID, string(domain.RoleUser), userText, "[]",
		string(domain.TurnComplete), "", now); err != nil {
		return "", fmt.Errorf("appending user turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, role, content, citations, status, fail_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, assistantID, sessionID, string(domain.RoleAssistant), "", "[]",
		string(domain.TurnPending), "", now); err != nil {
		return "", fmt.Errorf("appending assistant turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}
	return assistantID, nil
}

// GetHistory returns the most recent maxTurns turns of a session in
// chronological order. maxTurns <= 0 returns the full history.
func (s *sessionStore) GetHistory(ctx context.Context, sessionID string, maxTurns int) ([]domain.Turn, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	limit := maxTurns
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	// Insertion order is the conversation order; rowid preserves it.
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, citations, status, fail_reason, created_at
		FROM (
			SELECT rowid AS rid, id, session_id, role, content, citations, status, fail_reason, created_at
			FROM turns WHERE session_id = ?
			ORDER BY rid DESC LIMIT ?
		) ORDER BY rid ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn //nolint:prealloc // size unknown from query
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, *turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return turns, nil
}

// AppendToTurn appends incremental text to a pending turn.
func (s *sessionStore) AppendToTurn(ctx context.Context, turnID string, delta string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE turns SET content = content || ? WHERE id = ? AND status = ?
	`, delta, turnID, domain.TurnPending)
	if err != nil {
		return fmt.Errorf("appending to turn: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("appending to turn: %w", err)
	}
	if affected == 0 {
		return s.turnUpdateError(ctx, turnID)
	}
	return nil
}

// FinalizeTurn freezes a pending turn to complete or failed.
func (s *sessionStore) FinalizeTurn(
	ctx context.Context,
	turnID string,
	status domain.TurnStatus,
	reason string,
	citations []string,
) error {
	if status != domain.TurnComplete && status != domain.TurnFailed {
		return fmt.Errorf("finalize to %q: %w", status, domain.ErrInvalidInput)
	}

	citationsJSON, err := json.Marshal(citationsOrEmpty(citations))
	if err != nil {
		return fmt.Errorf("marshalling citations: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE turns SET status = ?, fail_reason = ?, citations = ?
		WHERE id = ? AND status = ?
	`, string(status), reason, string(citationsJSON), turnID, domain.TurnPending)
	if err != nil {
		return fmt.Errorf("finalizing turn: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalizing turn: %w", err)
	}
	if affected == 0 {
		return s.turnUpdateError(ctx, turnID)
	}
	return nil
}

// turnUpdateError distinguishes a missing turn from a turn that is no
// longer pending after a zero-row update.
func (s *sessionStore) turnUpdateError(ctx context.Context, turnID string) error {
	var status string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT status FROM turns WHERE id = ?", turnID).Scan(&status)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking turn status: %w", err)
	}
	return fmt.Errorf("turn %s is %s, not pending: %w", turnID, status, domain.ErrTurnState)
}

// ==================== Helper Functions ====================

// citationsOrEmpty normalises nil citations to an empty slice so the
// stored JSON is always an array.
func citationsOrEmpty(citations []string) []string {
	if citations == nil {
		return []string{}
	}
	return citations
}

// scanTurn scans a turn from *sql.Rows.
func scanTurn(rows *sql.Rows) (*domain.Turn, error) {
	var turn domain.Turn
	var role, status, citationsJSON string

	if err := rows.Scan(&turn.ID, &turn.SessionID, &role, &turn.Content,
		&citationsJSON, &status, &turn.FailReason, &turn.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning turn: %w", err)
	}

	turn.Role = domain.TurnRole(role)
	turn.Status = domain.TurnStatus(status)
	if err := json.Unmarshal([]byte(citationsJSON), &turn.Citations); err != nil {
		return nil, fmt.Errorf("unmarshaling citations: %w", err)
	}

	return &turn, nil
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
