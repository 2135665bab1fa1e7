package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mathvoice/mathvoice/internal/config"
	"github.com/mathvoice/mathvoice/internal/protocol"
)

// ErrNotFound reports a lookup for an unknown response id.
var ErrNotFound = errors.New("exchange not found")

// Exchange is one question/answer round trip.
type Exchange struct {
	ID         int64
	ResponseID string
	SessionID  string
	Transcript string
	Text       string
	MathOp     *protocol.MathOperation
	CreatedAt  time.Time
}

// Store wraps a SQLite-backed exchange log.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the history store according to config. In ephemeral mode
// the store is a no-op shell with no database behind it.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("history vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS exchanges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    response_id TEXT NOT NULL UNIQUE,
    session_id TEXT NOT NULL,
    transcript TEXT,
    response_text TEXT,
    math_op BLOB,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one completed exchange.
func (s *Store) Append(ctx context.Context, ex Exchange) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = s.clock().UTC()
	}
	var mathOp []byte
	if ex.MathOp != nil {
		data, err := json.Marshal(ex.MathOp)
		if err != nil {
			return fmt.Errorf("encode math op: %w", err)
		}
		mathOp = data
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges(response_id, session_id, transcript, response_text, math_op, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		ex.ResponseID, ex.SessionID, ex.Transcript, ex.Text, mathOp, ex.CreatedAt)
	return err
}

// GetByResponseID retrieves a single exchange by its response id.
func (s *Store) GetByResponseID(ctx context.Context, responseID string) (Exchange, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return Exchange{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, response_id, session_id, transcript, response_text, math_op, created_at
		 FROM exchanges WHERE response_id = ?`, responseID)
	ex, err := scanExchange(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Exchange{}, ErrNotFound
	}
	return ex, err
}

// ListRecent retrieves up to limit exchanges, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Exchange, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, response_id, session_id, transcript, response_text, math_op, created_at
		 FROM exchanges ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		ex, err := scanExchange(rows.Scan)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

func scanExchange(scan func(...any) error) (Exchange, error) {
	var ex Exchange
	var mathOp []byte
	var created string
	if err := scan(&ex.ID, &ex.ResponseID, &ex.SessionID, &ex.Transcript, &ex.Text, &mathOp, &created); err != nil {
		return Exchange{}, err
	}
	if len(mathOp) > 0 {
		var op protocol.MathOperation
		if err := json.Unmarshal(mathOp, &op); err == nil {
			ex.MathOp = &op
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		ex.CreatedAt = ts
	}
	return ex, nil
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM exchanges WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxExchanges > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM exchanges WHERE id IN (
			SELECT id FROM exchanges ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxExchanges)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
