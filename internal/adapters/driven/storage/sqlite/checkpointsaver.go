package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Ensure CheckpointSaver implements the interface.
var _ driven.CheckpointSaver = (*CheckpointSaver)(nil)

const checkpointColumns = "thread_id, checkpoint_id, parent_id, checkpoint, metadata"

// checkpointRow is one row of the checkpoints table.
type checkpointRow struct {
	ThreadID     string `db:"thread_id"`
	CheckpointID string `db:"checkpoint_id"`
	ParentID     string `db:"parent_id"`
	Checkpoint   string `db:"checkpoint"`
	Metadata     string `db:"metadata"`
	Source       string `db:"source"`
	Step         int    `db:"step"`
	MessageCount int    `db:"message_count"`
	CreatedAt    string `db:"created_at"`
}

// CheckpointSaver stores checkpoints in a SQLite database.
type CheckpointSaver struct {
	db   *sqlx.DB
	path string
}

// DefaultPath returns ~/.chatbot/data/checkpoints.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".chatbot", "data", "checkpoints.db"), nil
}

// NewCheckpointSaver opens (creating if needed) the database at dbPath and
// applies pending migrations. An empty dbPath uses DefaultPath.
func NewCheckpointSaver(dbPath string) (*CheckpointSaver, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Debug("sqlite: opened checkpoint database %s", dbPath)
	return &CheckpointSaver{db: db, path: dbPath}, nil
}

func migrate(db *sqlx.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(context.Background())
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Debug("sqlite: applied migration %s", r.Source.Path)
	}
	return nil
}

// Path returns the database file location.
func (s *CheckpointSaver) Path() string {
	return s.path
}

// Put stores a checkpoint with cfg.CheckpointID as its parent.
// Storing an existing ID again replaces it.
func (s *CheckpointSaver) Put(
	ctx context.Context,
	cfg domain.ThreadConfig,
	cp domain.Checkpoint,
	md domain.CheckpointMetadata,
) (domain.ThreadConfig, error) {
	if cfg.ThreadID == "" || cp.ID == "" {
		return cfg, fmt.Errorf("%w: thread id and checkpoint id are required", domain.ErrInvalidInput)
	}

	cpJSON, err := json.Marshal(cp)
	if err != nil {
		return cfg, fmt.Errorf("encode checkpoint: %w", err)
	}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return cfg, fmt.Errorf("encode metadata: %w", err)
	}

	row := checkpointRow{
		ThreadID:     cfg.ThreadID,
		CheckpointID: cp.ID,
		ParentID:     cfg.CheckpointID,
		Checkpoint:   string(cpJSON),
		Metadata:     string(mdJSON),
		Source:       md.Source,
		Step:         md.Step,
		MessageCount: len(cp.Messages),
		CreatedAt:    cp.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO checkpoints
			(thread_id, checkpoint_id, parent_id, checkpoint, metadata, source, step, message_count, created_at)
		VALUES
			(:thread_id, :checkpoint_id, :parent_id, :checkpoint, :metadata, :source, :step, :message_count, :created_at)
		ON CONFLICT (thread_id, checkpoint_id) DO UPDATE SET
			parent_id = excluded.parent_id,
			checkpoint = excluded.checkpoint,
			metadata = excluded.metadata,
			source = excluded.source,
			step = excluded.step,
			message_count = excluded.message_count,
			created_at = excluded.created_at`, row)
	if err != nil {
		return cfg, fmt.Errorf("store checkpoint %s: %w", cp.ID, err)
	}

	logger.Debug("sqlite: stored checkpoint %s for thread %s", cp.ID, cfg.ThreadID)
	return domain.ThreadConfig{ThreadID: cfg.ThreadID, CheckpointID: cp.ID}, nil
}

// GetTuple returns the addressed checkpoint, or the latest one in the thread.
func (s *CheckpointSaver) GetTuple(ctx context.Context, cfg domain.ThreadConfig) (*domain.CheckpointTuple, error) {
	var (
		row checkpointRow
		err error
	)
	if cfg.CheckpointID == "" {
		err = s.db.GetContext(ctx, &row,
			"SELECT "+checkpointColumns+" FROM checkpoints WHERE thread_id = ? ORDER BY checkpoint_id DESC LIMIT 1",
			cfg.ThreadID)
	} else {
		err = s.db.GetContext(ctx, &row,
			"SELECT "+checkpointColumns+" FROM checkpoints WHERE thread_id = ? AND checkpoint_id = ?",
			cfg.ThreadID, cfg.CheckpointID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return decodeRow(row)
}

// List returns checkpoints newest first. A nil cfg lists every thread.
func (s *CheckpointSaver) List(
	ctx context.Context,
	cfg *domain.ThreadConfig,
	opts domain.ListOptions,
) ([]domain.CheckpointTuple, error) {
	var (
		where []string
		args  []any
	)
	if cfg != nil {
		where = append(where, "thread_id = ?")
		args = append(args, cfg.ThreadID)
	}
	if opts.Before != nil && opts.Before.CheckpointID != "" {
		where = append(where, "checkpoint_id < ?")
		args = append(args, opts.Before.CheckpointID)
	}

	query := "SELECT " + checkpointColumns + " FROM checkpoints"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY checkpoint_id DESC, thread_id ASC"
	// Filters are applied after decoding, so the limit can only be pushed
	// down when there is none.
	if opts.Limit > 0 && len(opts.Filter) == 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var rows []checkpointRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	tuples := make([]domain.CheckpointTuple, 0, len(rows))
	for _, row := range rows {
		tuple, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		if !opts.Admits(tuple.Config.CheckpointID, tuple.Metadata) {
			continue
		}
		tuples = append(tuples, *tuple)
		if opts.Limit > 0 && len(tuples) == opts.Limit {
			break
		}
	}

	logger.Debug("sqlite: listed %d checkpoint(s)", len(tuples))
	return tuples, nil
}

// Threads summarises every stored thread, most recently updated first.
func (s *CheckpointSaver) Threads(ctx context.Context) ([]domain.ThreadSummary, error) {
	var rows []checkpointRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT c.thread_id, c.checkpoint_id, c.message_count, c.created_at
		FROM checkpoints c
		JOIN (
			SELECT thread_id, MAX(checkpoint_id) AS latest
			FROM checkpoints
			GROUP BY thread_id
		) l ON c.thread_id = l.thread_id AND c.checkpoint_id = l.latest
		ORDER BY c.checkpoint_id DESC, c.thread_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	summaries := make([]domain.ThreadSummary, 0, len(rows))
	for _, row := range rows {
		updated, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", row.CheckpointID, err)
		}
		summaries = append(summaries, domain.ThreadSummary{
			ThreadID:           row.ThreadID,
			LatestCheckpointID: row.CheckpointID,
			UpdatedAt:          updated,
			MessageCount:       row.MessageCount,
		})
	}
	return summaries, nil
}

// DeleteThread removes every checkpoint of a thread.
func (s *CheckpointSaver) DeleteThread(ctx context.Context, threadID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE thread_id = ?", threadID)
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
	}
	logger.Debug("sqlite: deleted %d checkpoint(s) of thread %s", n, threadID)
	return nil
}

// Ping validates the database is usable.
func (s *CheckpointSaver) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCheckpointUnavailable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *CheckpointSaver) Close() error {
	return s.db.Close()
}

func decodeRow(row checkpointRow) (*domain.CheckpointTuple, error) {
	tuple := &domain.CheckpointTuple{
		Config: domain.ThreadConfig{ThreadID: row.ThreadID, CheckpointID: row.CheckpointID},
	}
	if err := json.Unmarshal([]byte(row.Checkpoint), &tuple.Checkpoint); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", row.CheckpointID, err)
	}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &tuple.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", row.CheckpointID, err)
		}
	}
	if row.ParentID != "" {
		tuple.ParentConfig = &domain.ThreadConfig{ThreadID: row.ThreadID, CheckpointID: row.ParentID}
	}
	return tuple, nil
}
