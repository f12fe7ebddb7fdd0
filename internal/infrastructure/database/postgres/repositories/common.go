package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/grantsync/pkg/errors"
)

// conn abstracts *pgxpool.Conn so a store operation can run against any
// single connection.
type conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// acquireFunc borrows a connection for the duration of one operation.  The
// returned release func must be called exactly once.
type acquireFunc func(ctx context.Context) (conn, func(), error)

func poolAcquirer(pool *pgxpool.Pool) acquireFunc {
	return func(ctx context.Context) (conn, func(), error) {
		c, err := pool.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Release, nil
	}
}

// classify maps a driver error onto the store error codes.  Errors reported
// by the server are query failures; anything else means the connection or
// transport broke.
func classify(err error, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errors.Wrap(err, errors.ErrCodeDBQuery, message)
	}
	return errors.Wrap(err, errors.ErrCodeDBConnection, message)
}
