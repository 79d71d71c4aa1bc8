package conversation

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds conversation store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig stores the database under the user's home directory so
// conversations survive across projects and process restarts.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".responsible-vibe")}
}

// Store persists conversation records and interaction logs in SQLite.
//
// Writes are atomic at single-record granularity; no cross-record
// transactions are used, since one call mutates at most one conversation
// row and appends at most one log row. Concurrent updates to the same
// conversation are last-write-wins.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func Open(cfg Config, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, apperr.Persistence("creating data directory", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "conversations.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, apperr.Persistence("opening database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, apperr.Persistence(fmt.Sprintf("pragma %q", p), err)
		}
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		return nil, apperr.Persistence("running migrations", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the additive-only schema. Opening a database written by an
// older version adds whatever is missing and never drops or renames what is
// already there — conversation records must stay readable indefinitely.
//
// interaction_logs deliberately has no foreign key on conversation_id:
// reset hard-deletes the conversation row while its logs must survive as
// history.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversation_states (
			conversation_id TEXT PRIMARY KEY,
			project_path    TEXT NOT NULL,
			git_branch      TEXT NOT NULL,
			current_phase   TEXT NOT NULL,
			plan_file_path  TEXT NOT NULL,
			workflow_name   TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_conv_identity
			ON conversation_states(project_path, git_branch);

		CREATE TABLE IF NOT EXISTS interaction_logs (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			tool_name       TEXT NOT NULL,
			input_params    TEXT NOT NULL,
			response_data   TEXT NOT NULL,
			current_phase   TEXT NOT NULL,
			timestamp       TEXT NOT NULL,
			is_reset        INTEGER NOT NULL DEFAULT 0,
			reset_at        TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_logs_conversation ON interaction_logs(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_logs_active ON interaction_logs(conversation_id, is_reset);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Columns added after the first schema version. ALTER TABLE ADD COLUMN
	// is SQLite's additive migration primitive; existing rows get the
	// declared defaults.
	added := []struct {
		table, column, ddl string
	}{
		{"conversation_states", "require_reviews", "INTEGER NOT NULL DEFAULT 0"},
		{"conversation_states", "commit_behaviour", "TEXT NOT NULL DEFAULT 'none'"},
		{"interaction_logs", "reset_reason", "TEXT"},
	}
	for _, a := range added {
		if err := s.ensureColumn(a.table, a.column, a.ddl); err != nil {
			return err
		}
	}
	return nil
}

// ensureColumn adds a column if the table does not have it yet.
func (s *Store) ensureColumn(table, column, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if exists {
		return nil
	}

	s.log.Info("adding column", zap.String("table", table), zap.String("column", column))
	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddl))
	return err
}

// ─── Conversation records ────────────────────────────────────────────────────

const stateColumns = `conversation_id, project_path, git_branch, current_phase,
	plan_file_path, workflow_name, require_reviews, commit_behaviour,
	created_at, updated_at`

// Get retrieves a conversation record by id. Returns (nil, nil) when absent.
func (s *Store) Get(id string) (*State, error) {
	row := s.db.QueryRow(
		"SELECT "+stateColumns+" FROM conversation_states WHERE conversation_id = ?", id)
	return scanState(row)
}

// FindByProjectAndBranch retrieves a conversation record by its identity
// pair. Returns (nil, nil) when absent.
func (s *Store) FindByProjectAndBranch(projectPath, gitBranch string) (*State, error) {
	row := s.db.QueryRow(
		"SELECT "+stateColumns+" FROM conversation_states WHERE project_path = ? AND git_branch = ?",
		projectPath, gitBranch)
	return scanState(row)
}

// Put inserts or replaces a conversation record.
func (s *Store) Put(state *State) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO conversation_states
			(conversation_id, project_path, git_branch, current_phase,
			 plan_file_path, workflow_name, require_reviews, commit_behaviour,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.ConversationID, state.ProjectPath, state.GitBranch, state.CurrentPhase,
		state.PlanFilePath, state.WorkflowName, boolToInt(state.RequireReviews),
		string(state.GitCommit.Behaviour), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return apperr.Persistence("writing conversation record", err)
	}
	return nil
}

// Delete hard-deletes a conversation record. Interaction logs are not
// touched; they survive the record they belong to.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(
		"DELETE FROM conversation_states WHERE conversation_id = ?", id); err != nil {
		return apperr.Persistence("deleting conversation record", err)
	}
	return nil
}

// ─── Interaction logs ────────────────────────────────────────────────────────

// AppendLog appends one interaction-log entry. A missing id or timestamp is
// filled in by the store.
func (s *Store) AppendLog(entry *LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = now()
	}
	_, err := s.db.Exec(`
		INSERT INTO interaction_logs
			(id, conversation_id, tool_name, input_params, response_data,
			 current_phase, timestamp, is_reset, reset_at, reset_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL)`,
		entry.ID, entry.ConversationID, entry.ToolName, entry.InputParams,
		entry.ResponseData, entry.CurrentPhase, entry.Timestamp)
	if err != nil {
		return apperr.Persistence("appending interaction log", err)
	}
	return nil
}

// ListActiveLogs returns the non-reset log entries for a conversation,
// oldest first.
func (s *Store) ListActiveLogs(conversationID string) ([]LogEntry, error) {
	return s.listLogs(conversationID, false)
}

// ListAllLogs returns every log entry for a conversation, including
// soft-deleted ones, oldest first.
func (s *Store) ListAllLogs(conversationID string) ([]LogEntry, error) {
	return s.listLogs(conversationID, true)
}

func (s *Store) listLogs(conversationID string, includeReset bool) ([]LogEntry, error) {
	query := `
		SELECT id, conversation_id, tool_name, input_params, response_data,
		       current_phase, timestamp, is_reset, reset_at, reset_reason
		FROM interaction_logs WHERE conversation_id = ?`
	if !includeReset {
		query += " AND is_reset = 0"
	}
	query += " ORDER BY timestamp, id"

	rows, err := s.db.Query(query, conversationID)
	if err != nil {
		return nil, apperr.Persistence("listing interaction logs", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			e       LogEntry
			isReset int
		)
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.ToolName, &e.InputParams,
			&e.ResponseData, &e.CurrentPhase, &e.Timestamp, &isReset,
			&e.ResetAt, &e.ResetReason); err != nil {
			return nil, apperr.Persistence("scanning interaction log", err)
		}
		e.IsReset = isReset != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating interaction logs", err)
	}
	return entries, nil
}

// SoftDeleteLogs marks all currently-active entries for a conversation as
// reset, stamping reset_at and the optional reason. Rows are never removed.
func (s *Store) SoftDeleteLogs(conversationID, reason string) error {
	var reasonVal any
	if reason != "" {
		reasonVal = reason
	}
	_, err := s.db.Exec(`
		UPDATE interaction_logs
		SET is_reset = 1, reset_at = ?, reset_reason = ?
		WHERE conversation_id = ? AND is_reset = 0`,
		now(), reasonVal, conversationID)
	if err != nil {
		return apperr.Persistence("soft-deleting interaction logs", err)
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*State, error) {
	var (
		st              State
		requireReviews  int
		commitBehaviour string
	)
	err := row.Scan(&st.ConversationID, &st.ProjectPath, &st.GitBranch, &st.CurrentPhase,
		&st.PlanFilePath, &st.WorkflowName, &requireReviews, &commitBehaviour,
		&st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("reading conversation record", err)
	}
	st.RequireReviews = requireReviews != 0
	st.GitCommit.Behaviour = behaviourFromColumn(commitBehaviour)
	return &st, nil
}

// behaviourFromColumn tolerates unknown stored values: data written by a
// newer version degrades to "none" instead of failing the read.
func behaviourFromColumn(v string) gitcommit.Behaviour {
	b := gitcommit.Behaviour(v)
	if gitcommit.ValidateBehaviour(b) != nil {
		return gitcommit.BehaviourNone
	}
	return b
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
