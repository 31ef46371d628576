package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/shared"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		state TEXT NOT NULL DEFAULT 'idle',
		swap_kind TEXT NOT NULL DEFAULT '',
		deposit_coin TEXT NOT NULL DEFAULT '',
		deposit_network TEXT NOT NULL DEFAULT '',
		settle_coin TEXT NOT NULL DEFAULT '',
		settle_network TEXT NOT NULL DEFAULT '',
		deposit_amount TEXT NOT NULL DEFAULT '',
		settle_address TEXT NOT NULL DEFAULT '',
		refund_address TEXT NOT NULL DEFAULT '',
		quote_id TEXT NOT NULL DEFAULT '',
		swap_id TEXT NOT NULL DEFAULT '',
		extra_json TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS swaps (
		order_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		deposit_coin TEXT NOT NULL,
		deposit_network TEXT NOT NULL,
		settle_coin TEXT NOT NULL,
		settle_network TEXT NOT NULL,
		deposit_amount TEXT NOT NULL DEFAULT '',
		settle_amount TEXT NOT NULL DEFAULT '',
		rate TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'waiting',
		deposit_address TEXT NOT NULL DEFAULT '',
		deposit_memo TEXT NOT NULL DEFAULT '',
		settle_address TEXT NOT NULL DEFAULT '',
		refund_address TEXT NOT NULL DEFAULT '',
		refund_memo TEXT NOT NULL DEFAULT '',
		deposit_hash TEXT NOT NULL DEFAULT '',
		settle_hash TEXT NOT NULL DEFAULT '',
		commission TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_swaps_user ON swaps(user_id);
	CREATE INDEX IF NOT EXISTS idx_swaps_status ON swaps(status);
	CREATE INDEX IF NOT EXISTS idx_swaps_created ON swaps(created_at);

	CREATE TABLE IF NOT EXISTS price_alerts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		from_coin TEXT NOT NULL,
		from_network TEXT NOT NULL,
		to_coin TEXT NOT NULL,
		to_network TEXT NOT NULL,
		target_rate TEXT NOT NULL,
		direction TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		triggered_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_user ON price_alerts(user_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_active ON price_alerts(active);

	CREATE TABLE IF NOT EXISTS rate_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_coin TEXT NOT NULL,
		from_network TEXT NOT NULL,
		to_coin TEXT NOT NULL,
		to_network TEXT NOT NULL,
		rate TEXT NOT NULL,
		observed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rate_history_observed ON rate_history(observed_at);
	CREATE INDEX IF NOT EXISTS idx_rate_history_pair ON rate_history(from_coin, to_coin);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// execRetry runs fn, retrying with exponential backoff on SQLite
// concurrency errors (SQLITE_BUSY / database is locked).
func execRetry(fn func() error) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			return err
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "attempt", i+1, "delay", delay)
		time.Sleep(delay)
	}
	return err
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	err := execRetry(func() error {
		_, err := s.db.ExecContext(ctx, query,
			user.UserID, user.Username, user.LastSeenAt.Unix(),
			user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// GetSession retrieves a user's conversation session.
func (s *SQLiteStore) GetSession(ctx context.Context, userID string) (*domain.UserSession, error) {
	query := `
		SELECT user_id, state, swap_kind, deposit_coin, deposit_network,
		       settle_coin, settle_network, deposit_amount, settle_address,
		       refund_address, quote_id, swap_id, extra_json, created_at, updated_at
		FROM sessions WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var sess domain.UserSession
	var extraJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&sess.UserID, &sess.State, &sess.Kind,
		&sess.DepositCoin, &sess.DepositNetwork,
		&sess.SettleCoin, &sess.SettleNetwork,
		&sess.DepositAmount, &sess.SettleAddress, &sess.RefundAddress,
		&sess.QuoteID, &sess.SwapID, &extraJSON,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)

	// Corrupt extension data is tolerated as empty, never fatal.
	sess.Extra = map[string]string{}
	if extraJSON != "" {
		if err := json.Unmarshal([]byte(extraJSON), &sess.Extra); err != nil {
			slog.Warn("failed to decode session extension data, treating as empty",
				"user_id", userID, "error", err)
			sess.Extra = map[string]string{}
		}
	}

	return &sess, nil
}

// SaveSession creates or replaces a user's conversation session.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.UserSession) error {
	extra := session.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("encode session extension data: %w", err)
	}

	query := `
	INSERT INTO sessions (
		user_id, state, swap_kind, deposit_coin, deposit_network,
		settle_coin, settle_network, deposit_amount, settle_address,
		refund_address, quote_id, swap_id, extra_json, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		state = excluded.state,
		swap_kind = excluded.swap_kind,
		deposit_coin = excluded.deposit_coin,
		deposit_network = excluded.deposit_network,
		settle_coin = excluded.settle_coin,
		settle_network = excluded.settle_network,
		deposit_amount = excluded.deposit_amount,
		settle_address = excluded.settle_address,
		refund_address = excluded.refund_address,
		quote_id = excluded.quote_id,
		swap_id = excluded.swap_id,
		extra_json = excluded.extra_json,
		updated_at = excluded.updated_at`

	err = execRetry(func() error {
		_, err := s.db.ExecContext(ctx, query,
			session.UserID, string(session.State), string(session.Kind),
			session.DepositCoin, session.DepositNetwork,
			session.SettleCoin, session.SettleNetwork,
			session.DepositAmount, session.SettleAddress, session.RefundAddress,
			session.QuoteID, session.SwapID, string(extraJSON),
			session.CreatedAt.Unix(), time.Now().Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ClearSession removes a user's conversation session.
func (s *SQLiteStore) ClearSession(ctx context.Context, userID string) error {
	err := execRetry(func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

const swapColumns = `
	order_id, user_id, kind, deposit_coin, deposit_network,
	settle_coin, settle_network, deposit_amount, settle_amount, rate,
	status, deposit_address, deposit_memo, settle_address,
	refund_address, refund_memo, deposit_hash, settle_hash,
	commission, last_error, created_at, updated_at, expires_at`

func scanSwap(row interface{ Scan(...any) error }) (*domain.SwapRecord, error) {
	var sw domain.SwapRecord
	var createdAt, updatedAt int64
	var expiresAt sql.NullInt64

	err := row.Scan(
		&sw.OrderID, &sw.UserID, &sw.Kind,
		&sw.DepositCoin, &sw.DepositNetwork,
		&sw.SettleCoin, &sw.SettleNetwork,
		&sw.DepositAmount, &sw.SettleAmount, &sw.Rate,
		&sw.Status, &sw.DepositAddress, &sw.DepositMemo, &sw.SettleAddress,
		&sw.RefundAddress, &sw.RefundMemo, &sw.DepositHash, &sw.SettleHash,
		&sw.Commission, &sw.LastError, &createdAt, &updatedAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}

	sw.CreatedAt = time.Unix(createdAt, 0)
	sw.UpdatedAt = time.Unix(updatedAt, 0)
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0)
		sw.ExpiresAt = &t
	}
	return &sw, nil
}

// SaveSwap persists a newly created swap record.
func (s *SQLiteStore) SaveSwap(ctx context.Context, swap *domain.SwapRecord) error {
	query := `
	INSERT INTO swaps (` + swapColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var expiresAt interface{}
	if swap.ExpiresAt != nil {
		expiresAt = swap.ExpiresAt.Unix()
	}

	err := execRetry(func() error {
		_, err := s.db.ExecContext(ctx, query,
			swap.OrderID, swap.UserID, string(swap.Kind),
			swap.DepositCoin, swap.DepositNetwork,
			swap.SettleCoin, swap.SettleNetwork,
			swap.DepositAmount, swap.SettleAmount, swap.Rate,
			string(swap.Status), swap.DepositAddress, swap.DepositMemo, swap.SettleAddress,
			swap.RefundAddress, swap.RefundMemo, swap.DepositHash, swap.SettleHash,
			swap.Commission, swap.LastError,
			swap.CreatedAt.Unix(), swap.UpdatedAt.Unix(), expiresAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save swap: %w", err)
	}
	return nil
}

// GetSwap retrieves a swap by its external order ID.
func (s *SQLiteStore) GetSwap(ctx context.Context, orderID string) (*domain.SwapRecord, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps WHERE order_id = ?`
	sw, err := scanSwap(s.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan swap row: %w", err)
	}
	return sw, nil
}

// ListActiveSwaps returns every swap whose status is non-terminal.
func (s *SQLiteStore) ListActiveSwaps(ctx context.Context) ([]*domain.SwapRecord, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps
		WHERE status NOT IN ('settled', 'refunded', 'expired')
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active swaps: %w", err)
	}
	defer closeRows(rows, "active swaps")

	var swaps []*domain.SwapRecord
	for rows.Next() {
		sw, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active swap row: %w", err)
		}
		swaps = append(swaps, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active swaps: %w", err)
	}
	return swaps, nil
}

// ListUserSwaps returns a user's swaps, newest first.
func (s *SQLiteStore) ListUserSwaps(ctx context.Context, userID string, limit int) ([]*domain.SwapRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + swapColumns + ` FROM swaps
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query user swaps: %w", err)
	}
	defer closeRows(rows, "user swaps")

	var swaps []*domain.SwapRecord
	for rows.Next() {
		sw, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user swap row: %w", err)
		}
		swaps = append(swaps, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user swaps: %w", err)
	}
	return swaps, nil
}

// UpdateSwapStatus records a status transition. The WHERE clause refuses to
// move a record out of a terminal status, so transitions stay monotonic even
// if two processes race.
func (s *SQLiteStore) UpdateSwapStatus(ctx context.Context, orderID string, status domain.SwapStatus, depositHash, settleHash, lastError string) (int64, error) {
	query := `
	UPDATE swaps SET
		status = ?,
		deposit_hash = COALESCE(NULLIF(?, ''), deposit_hash),
		settle_hash = COALESCE(NULLIF(?, ''), settle_hash),
		last_error = ?,
		updated_at = ?
	WHERE order_id = ?
	  AND status NOT IN ('settled', 'refunded', 'expired')`

	var rows int64
	err := execRetry(func() error {
		result, err := s.db.ExecContext(ctx, query,
			string(status), depositHash, settleHash, lastError,
			time.Now().Unix(), orderID,
		)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("update swap status: %w", err)
	}
	return rows, nil
}

const alertColumns = `
	id, user_id, from_coin, from_network, to_coin, to_network,
	target_rate, direction, active, created_at, triggered_at`

func scanAlert(row interface{ Scan(...any) error }) (*domain.PriceAlert, error) {
	var a domain.PriceAlert
	var targetRate string
	var active int
	var createdAt int64
	var triggeredAt sql.NullInt64

	err := row.Scan(
		&a.ID, &a.UserID,
		&a.Pair.FromCoin, &a.Pair.FromNetwork, &a.Pair.ToCoin, &a.Pair.ToNetwork,
		&targetRate, &a.Direction, &active, &createdAt, &triggeredAt,
	)
	if err != nil {
		return nil, err
	}

	rate, err := decimal.NewFromString(targetRate)
	if err != nil {
		return nil, fmt.Errorf("decode target rate %q: %w", targetRate, err)
	}
	a.TargetRate = rate
	a.Active = active != 0
	a.CreatedAt = time.Unix(createdAt, 0)
	if triggeredAt.Valid {
		t := time.Unix(triggeredAt.Int64, 0)
		a.TriggeredAt = &t
	}
	return &a, nil
}

// CreateAlert persists a new price alert.
func (s *SQLiteStore) CreateAlert(ctx context.Context, alert *domain.PriceAlert) error {
	query := `
	INSERT INTO price_alerts (` + alertColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	active := 0
	if alert.Active {
		active = 1
	}
	var triggeredAt interface{}
	if alert.TriggeredAt != nil {
		triggeredAt = alert.TriggeredAt.Unix()
	}

	err := execRetry(func() error {
		_, err := s.db.ExecContext(ctx, query,
			alert.ID, alert.UserID,
			alert.Pair.FromCoin, alert.Pair.FromNetwork,
			alert.Pair.ToCoin, alert.Pair.ToNetwork,
			alert.TargetRate.String(), string(alert.Direction),
			active, alert.CreatedAt.Unix(), triggeredAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) listAlerts(ctx context.Context, where string, args ...any) ([]*domain.PriceAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM price_alerts ` + where

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer closeRows(rows, "alerts")

	var alerts []*domain.PriceAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// ListActiveAlerts returns every active alert.
func (s *SQLiteStore) ListActiveAlerts(ctx context.Context) ([]*domain.PriceAlert, error) {
	return s.listAlerts(ctx, `WHERE active = 1`)
}

// ListUserAlerts returns a user's active alerts, newest first.
func (s *SQLiteStore) ListUserAlerts(ctx context.Context, userID string) ([]*domain.PriceAlert, error) {
	return s.listAlerts(ctx, `WHERE user_id = ? AND active = 1 ORDER BY created_at DESC`, userID)
}

// DeactivateAlert marks an alert inactive. The active = 1 guard makes the
// deactivation a one-shot operation: a second caller sees 0 rows changed.
func (s *SQLiteStore) DeactivateAlert(ctx context.Context, alertID string) (int64, error) {
	query := `
	UPDATE price_alerts SET active = 0, triggered_at = ?
	WHERE id = ? AND active = 1`

	var rows int64
	err := execRetry(func() error {
		result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), alertID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("deactivate alert: %w", err)
	}
	return rows, nil
}

// SaveRateSample appends one rate observation to the history log.
func (s *SQLiteStore) SaveRateSample(ctx context.Context, sample *domain.RateSample) error {
	query := `
	INSERT INTO rate_history (from_coin, from_network, to_coin, to_network, rate, observed_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	err := execRetry(func() error {
		_, err := s.db.ExecContext(ctx, query,
			sample.Pair.FromCoin, sample.Pair.FromNetwork,
			sample.Pair.ToCoin, sample.Pair.ToNetwork,
			sample.Rate.String(), sample.ObservedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save rate sample: %w", err)
	}
	return nil
}

// ListRateHistory returns a pair's samples observed after since, newest first.
func (s *SQLiteStore) ListRateHistory(ctx context.Context, pair domain.Pair, since time.Time) ([]*domain.RateSample, error) {
	query := `
	SELECT from_coin, from_network, to_coin, to_network, rate, observed_at
	FROM rate_history
	WHERE from_coin = ? AND from_network = ? AND to_coin = ? AND to_network = ?
	  AND observed_at > ?
	ORDER BY observed_at DESC`

	rows, err := s.db.QueryContext(ctx, query,
		pair.FromCoin, pair.FromNetwork, pair.ToCoin, pair.ToNetwork, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query rate history: %w", err)
	}
	defer closeRows(rows, "rate history")

	var samples []*domain.RateSample
	for rows.Next() {
		var sample domain.RateSample
		var rate string
		var observedAt int64
		if err := rows.Scan(
			&sample.Pair.FromCoin, &sample.Pair.FromNetwork,
			&sample.Pair.ToCoin, &sample.Pair.ToNetwork,
			&rate, &observedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rate history row: %w", err)
		}
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("decode rate %q: %w", rate, err)
		}
		sample.Rate = d
		sample.ObservedAt = time.Unix(observedAt, 0)
		samples = append(samples, &sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate history: %w", err)
	}
	return samples, nil
}

// GetUserStats aggregates a user's swap history.
func (s *SQLiteStore) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	query := `
	SELECT
		COUNT(*) AS total_swaps,
		COUNT(CASE WHEN status = 'settled' THEN 1 END) AS completed_swaps,
		COUNT(CASE WHEN status NOT IN ('settled', 'refunded', 'expired') THEN 1 END) AS active_swaps,
		COUNT(CASE WHEN status = 'refunded' THEN 1 END) AS refunded_swaps,
		COALESCE(SUM(CASE WHEN status = 'settled' THEN CAST(deposit_amount AS REAL) ELSE 0 END), 0) AS total_volume
	FROM swaps WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var stats domain.UserStats
	var volume float64
	if err := row.Scan(
		&stats.TotalSwaps, &stats.CompletedSwaps,
		&stats.ActiveSwaps, &stats.RefundedSwaps, &volume,
	); err != nil {
		return nil, fmt.Errorf("scan user stats: %w", err)
	}
	stats.TotalVolume = decimal.NewFromFloat(volume).String()
	return &stats, nil
}

// CleanupOldData prunes rate history older than keep and idle sessions
// untouched for over a week.
func (s *SQLiteStore) CleanupOldData(ctx context.Context, keep time.Duration) (int64, error) {
	var removed int64

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_history WHERE observed_at < ?`,
		time.Now().Add(-keep).Unix())
	if err != nil {
		return 0, fmt.Errorf("cleanup rate history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup rate history rows affected: %w", err)
	}
	removed += n

	result, err = s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE state = 'idle' AND updated_at < ?`,
		time.Now().Add(-7*24*time.Hour).Unix())
	if err != nil {
		return 0, fmt.Errorf("cleanup idle sessions: %w", err)
	}
	n, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup idle sessions rows affected: %w", err)
	}
	removed += n

	return removed, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}
