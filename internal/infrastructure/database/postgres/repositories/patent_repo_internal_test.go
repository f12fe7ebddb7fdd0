package repositories

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/pkg/errors"
)

var patentColumns = []string{
	"patent_number", "patent_application_number", "assignee_entity_name",
	"filing_date", "grant_date", "invention_title",
}

func newMockStore(t *testing.T) (*PatentStore, pgxmock.PgxConnIface, *int) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mock.Close(context.Background()) })

	releases := 0
	acquire := func(ctx context.Context) (conn, func(), error) {
		return mock, func() { releases++ }, nil
	}
	return newPatentStore(acquire, logging.NewNopLogger()), mock, &releases
}

func fixturePatents() []patent.Patent {
	return []patent.Patent{
		{
			PatentNumber:            "09532496",
			PatentApplicationNumber: "US14585764",
			AssigneeEntityName:      patent.StringPtr("Precision Planting LLC"),
			FilingDate:              patent.MustParseDate("2014-12-30"),
			GrantDate:               patent.MustParseDate("2017-01-03"),
			InventionTitle:          "Dynamic supplemental downforce control system for planter row units",
		},
		{
			PatentNumber:            "09532504",
			PatentApplicationNumber: "US15065125",
			FilingDate:              patent.MustParseDate("2016-03-09"),
			GrantDate:               patent.MustParseDate("2017-01-03"),
			InventionTitle:          "Control arrangement and method for controlling a position of a transfer device of a harvesting machine",
		},
	}
}

func insertArgs(p patent.Patent) []interface{} {
	return []interface{}{
		p.PatentNumber,
		p.PatentApplicationNumber,
		p.AssigneeEntityName,
		p.FilingDate.Time(),
		p.GrantDate.Time(),
		p.InventionTitle,
	}
}

func TestPatentStore_EnsureSchema(t *testing.T) {
	store, mock, releases := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS patents")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_patents_grant_date")).
		WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, *releases)
}

func TestPatentStore_Save_SingleTransaction(t *testing.T) {
	store, mock, releases := newMockStore(t)
	patents := fixturePatents()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patents")).
		WithArgs(insertArgs(patents[0])...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patents")).
		WithArgs(insertArgs(patents[1])...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), patents))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, *releases)
}

func TestPatentStore_Save_EmptyIsNoop(t *testing.T) {
	store, mock, releases := newMockStore(t)

	require.NoError(t, store.Save(context.Background(), nil))
	require.NoError(t, store.Save(context.Background(), []patent.Patent{}))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, *releases)
}

func TestPatentStore_Save_InsertFailureRollsBack(t *testing.T) {
	store, mock, releases := newMockStore(t)
	patents := fixturePatents()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patents")).
		WithArgs(insertArgs(patents[0])...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patents")).
		WithArgs(insertArgs(patents[1])...).
		WillReturnError(&pgconn.PgError{Code: "23502", Message: "null value in column"})
	mock.ExpectRollback()

	err := store.Save(context.Background(), patents)
	require.Error(t, err)
	assert.True(t, errors.IsQuery(err))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, *releases)
}

func TestPatentStore_Save_BeginFailureIsConnectionError(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectBegin().WillReturnError(stderrors.New("conn closed"))

	err := store.Save(context.Background(), fixturePatents())
	require.Error(t, err)
	assert.True(t, errors.IsConnection(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatentStore_Save_AcquireFailure(t *testing.T) {
	store := newPatentStore(func(ctx context.Context) (conn, func(), error) {
		return nil, nil, stderrors.New("dial tcp 127.0.0.1:5432: connection refused")
	}, nil)

	err := store.Save(context.Background(), fixturePatents())
	require.Error(t, err)
	assert.True(t, errors.IsConnection(err))
}

func TestPatentStore_Load(t *testing.T) {
	store, mock, releases := newMockStore(t)
	start := patent.MustParseDate("2017-01-01")
	end := patent.MustParseDate("2017-01-07")
	want := fixturePatents()

	rows := pgxmock.NewRows(patentColumns).
		AddRow(want[0].PatentNumber, want[0].PatentApplicationNumber, want[0].AssigneeEntityName,
			want[0].FilingDate.Time(), want[0].GrantDate.Time(), want[0].InventionTitle).
		AddRow(want[1].PatentNumber, want[1].PatentApplicationNumber, (*string)(nil),
			want[1].FilingDate.Time(), want[1].GrantDate.Time(), want[1].InventionTitle)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE grant_date BETWEEN $1 AND $2")).
		WithArgs(start.Time(), end.Time()).
		WillReturnRows(rows)

	got, err := store.Load(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "record %d", i)
	}
	assert.Nil(t, got[1].AssigneeEntityName)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, *releases)
}

func TestPatentStore_Load_EmptyIsNonNil(t *testing.T) {
	store, mock, _ := newMockStore(t)
	day := patent.MustParseDate("2017-01-03")

	mock.ExpectQuery(regexp.QuoteMeta("FROM patents")).
		WithArgs(day.Time(), day.Time()).
		WillReturnRows(pgxmock.NewRows(patentColumns))

	got, err := store.Load(context.Background(), day, day)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPatentStore_Load_QueryError(t *testing.T) {
	store, mock, _ := newMockStore(t)
	day := patent.DateOf(time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(regexp.QuoteMeta("FROM patents")).
		WithArgs(day.Time(), day.Time()).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "patents" does not exist`})

	_, err := store.Load(context.Background(), day, day)
	require.Error(t, err)
	assert.True(t, errors.IsQuery(err), "got %v", err)
	assert.False(t, errors.IsConnection(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatentStore_Clear(t *testing.T) {
	store, mock, releases := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("TRUNCATE TABLE patents")).
		WillReturnResult(pgxmock.NewResult("TRUNCATE TABLE", 0))

	require.NoError(t, store.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, *releases)
}

func TestClassify(t *testing.T) {
	assert.True(t, errors.IsQuery(classify(&pgconn.PgError{Code: "23505"}, "x")))
	assert.True(t, errors.IsConnection(classify(stderrors.New("broken pipe"), "x")))
	assert.Nil(t, classify(nil, "x"))
}
