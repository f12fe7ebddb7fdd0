// Package repositories provides the PostgreSQL implementation of the patent
// store.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Schema
// ─────────────────────────────────────────────────────────────────────────────

const createPatentsTable = `
CREATE TABLE IF NOT EXISTS patents (
	patent_number             TEXT PRIMARY KEY,
	patent_application_number TEXT NOT NULL,
	assignee_entity_name      TEXT,
	filing_date               DATE NOT NULL,
	grant_date                DATE NOT NULL,
	invention_title           TEXT NOT NULL
)`

const createGrantDateIndex = `CREATE INDEX IF NOT EXISTS idx_patents_grant_date ON patents (grant_date)`

const insertPatent = `
INSERT INTO patents (
	patent_number, patent_application_number, assignee_entity_name,
	filing_date, grant_date, invention_title
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (patent_number) DO NOTHING`

const selectPatentsByGrantDate = `
SELECT patent_number, patent_application_number, assignee_entity_name,
       filing_date, grant_date, invention_title
FROM patents
WHERE grant_date BETWEEN $1 AND $2
ORDER BY grant_date, patent_number`

const truncatePatents = `TRUNCATE TABLE patents`

// ─────────────────────────────────────────────────────────────────────────────
// PatentStore
// ─────────────────────────────────────────────────────────────────────────────

// PatentStore keeps patents in the "patents" table keyed by patent number.
// Each operation acquires its own connection from the pool and returns it
// before completing, so a store value is safe for concurrent use.
//
// Load returns records ordered by (grant_date, patent_number).
type PatentStore struct {
	acquire acquireFunc
	logger  logging.Logger
}

// NewPatentStore constructs a PatentStore over pool.
func NewPatentStore(pool *pgxpool.Pool, log logging.Logger) *PatentStore {
	return newPatentStore(poolAcquirer(pool), log)
}

func newPatentStore(acquire acquireFunc, log logging.Logger) *PatentStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PatentStore{acquire: acquire, logger: log.Named("postgres_store")}
}

// EnsureSchema creates the patents table and its grant_date index when they
// do not already exist.
func (s *PatentStore) EnsureSchema(ctx context.Context) error {
	c, release, err := s.acquire(ctx)
	if err != nil {
		return classify(err, "failed to acquire connection")
	}
	defer release()

	for _, ddl := range []string{createPatentsTable, createGrantDateIndex} {
		if _, err := c.Exec(ctx, ddl); err != nil {
			return classify(err, "failed to create patents schema")
		}
	}
	return nil
}

// Save inserts patents inside one transaction.  Rows whose patent_number is
// already stored are skipped.  Either every new row is committed or none is.
func (s *PatentStore) Save(ctx context.Context, patents []patent.Patent) error {
	if len(patents) == 0 {
		return nil
	}

	c, release, err := s.acquire(ctx)
	if err != nil {
		return classify(err, "failed to acquire connection")
	}
	defer release()

	start := time.Now()
	tx, err := c.Begin(ctx)
	if err != nil {
		return classify(err, "failed to begin transaction")
	}

	var inserted int64
	for i := range patents {
		p := &patents[i]
		tag, err := tx.Exec(ctx, insertPatent,
			p.PatentNumber,
			p.PatentApplicationNumber,
			p.AssigneeEntityName,
			p.FilingDate.Time(),
			p.GrantDate.Time(),
			p.InventionTitle,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			s.logger.Error("insert patent failed",
				logging.String("patent_number", p.PatentNumber),
				logging.Err(err),
			)
			return classify(err, "failed to insert patent")
		}
		inserted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err, "failed to commit transaction")
	}

	s.logger.Debug("saved patents",
		logging.Int("received", len(patents)),
		logging.Int64("inserted", inserted),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Load returns every stored patent granted within [start, end].
func (s *PatentStore) Load(ctx context.Context, start, end patent.Date) ([]patent.Patent, error) {
	c, release, err := s.acquire(ctx)
	if err != nil {
		return nil, classify(err, "failed to acquire connection")
	}
	defer release()

	rows, err := c.Query(ctx, selectPatentsByGrantDate, start.Time(), end.Time())
	if err != nil {
		return nil, classify(err, "failed to query patents")
	}
	defer rows.Close()

	out := make([]patent.Patent, 0)
	for rows.Next() {
		var (
			p          patent.Patent
			assignee   *string
			filingDate time.Time
			grantDate  time.Time
		)
		if err := rows.Scan(
			&p.PatentNumber,
			&p.PatentApplicationNumber,
			&assignee,
			&filingDate,
			&grantDate,
			&p.InventionTitle,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDBQuery, "failed to scan patent row")
		}
		p.AssigneeEntityName = assignee
		p.FilingDate = patent.DateOf(filingDate)
		p.GrantDate = patent.DateOf(grantDate)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate patent rows")
	}
	return out, nil
}

// Clear removes every stored patent.
func (s *PatentStore) Clear(ctx context.Context) error {
	c, release, err := s.acquire(ctx)
	if err != nil {
		return classify(err, "failed to acquire connection")
	}
	defer release()

	if _, err := c.Exec(ctx, truncatePatents); err != nil {
		return classify(err, "failed to clear patents")
	}
	s.logger.Info("cleared patents table")
	return nil
}

var _ patent.Store = (*PatentStore)(nil)
