package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// alertCycleLockKey identifies the alert processing cycle in
// pg_try_advisory_lock. Advisory locks are session scoped, so the lock
// holds a dedicated connection for as long as it is held.
const alertCycleLockKey int64 = 74120091

// AdvisoryLock guards the alert cycle across processes using a Postgres
// advisory lock.
type AdvisoryLock struct {
	db *sql.DB

	mu   sync.Mutex
	conn *sql.Conn
}

// NewAdvisoryLock constructs a lock backed by db.
func NewAdvisoryLock(db *sql.DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// TryLock attempts to take the cycle lock without blocking. It reports
// false when another session already holds it.
func (l *AdvisoryLock) TryLock(ctx context.Context) (bool, error) {
	if l == nil || l.db == nil {
		return false, errors.New("advisory lock: nil db")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, alertCycleLockKey).Scan(&acquired); err != nil {
		_ = conn.Close()
		return false, err
	}
	if !acquired {
		_ = conn.Close()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Unlock releases the cycle lock and returns its connection to the pool.
func (l *AdvisoryLock) Unlock(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	if conn == nil {
		return nil
	}

	_, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, alertCycleLockKey)
	if closeErr := conn.Close(); err == nil {
		err = closeErr
	}
	return err
}
