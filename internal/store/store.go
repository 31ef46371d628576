// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
)

// Repository defines the interface for persisting users, sessions, swaps,
// price alerts and rate history. All writes are atomic per record.
type Repository interface {
	// GetUser retrieves a user by ID. Returns (nil, nil) when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetSession retrieves a user's conversation session.
	// Returns (nil, nil) when the user has no persisted session.
	GetSession(ctx context.Context, userID string) (*domain.UserSession, error)

	// SaveSession creates or replaces a user's conversation session.
	SaveSession(ctx context.Context, session *domain.UserSession) error

	// ClearSession removes a user's conversation session entirely.
	ClearSession(ctx context.Context, userID string) error

	// SaveSwap persists a newly created swap record.
	SaveSwap(ctx context.Context, swap *domain.SwapRecord) error

	// GetSwap retrieves a swap by its external order ID.
	GetSwap(ctx context.Context, orderID string) (*domain.SwapRecord, error)

	// ListActiveSwaps returns every swap whose status is non-terminal.
	ListActiveSwaps(ctx context.Context) ([]*domain.SwapRecord, error)

	// ListUserSwaps returns a user's swaps, newest first.
	ListUserSwaps(ctx context.Context, userID string, limit int) ([]*domain.SwapRecord, error)

	// UpdateSwapStatus records a status transition plus any newly observed
	// transaction hashes and error message. The update is refused when the
	// record already carries a terminal status; the returned count is 0 in
	// that case and 1 when the transition was recorded.
	UpdateSwapStatus(ctx context.Context, orderID string, status domain.SwapStatus, depositHash, settleHash, lastError string) (int64, error)

	// CreateAlert persists a new price alert.
	CreateAlert(ctx context.Context, alert *domain.PriceAlert) error

	// ListActiveAlerts returns every active alert.
	ListActiveAlerts(ctx context.Context) ([]*domain.PriceAlert, error)

	// ListUserAlerts returns a user's active alerts, newest first.
	ListUserAlerts(ctx context.Context, userID string) ([]*domain.PriceAlert, error)

	// DeactivateAlert marks an alert inactive and stamps the trigger time.
	// Returns the number of rows changed: 0 means the alert was already
	// inactive, so the caller must not notify.
	DeactivateAlert(ctx context.Context, alertID string) (int64, error)

	// SaveRateSample appends one rate observation to the history log.
	SaveRateSample(ctx context.Context, sample *domain.RateSample) error

	// ListRateHistory returns a pair's samples observed after since,
	// newest first.
	ListRateHistory(ctx context.Context, pair domain.Pair, since time.Time) ([]*domain.RateSample, error)

	// GetUserStats aggregates a user's swap history.
	GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error)

	// CleanupOldData prunes rate history older than keep and idle sessions
	// untouched for over a week. Returns the number of rows removed.
	CleanupOldData(ctx context.Context, keep time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
