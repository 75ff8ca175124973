package ogdb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// fakeRow lets us unit-test PostgresAdapter.LookupComputer's scan and
// error-classification logic without a live database, the same way the
// teacher's tests substitute a mockKafkaClient for the real broker.
type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeQuerier struct {
	row      fakeRow
	lastSQL  string
	lastArgs []any
	closed   bool
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.lastArgs = args
	return f.row
}
func (f *fakeQuerier) Close() { f.closed = true }

func TestPostgresAdapter_LookupComputer_Found(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*uint64)) = 42
		*(dest[1].(*string)) = "lab-pc-01"
		*(dest[2].(*uint64)) = 7
		*(dest[3].(*uint64)) = 3
		*(dest[4].(*uint64)) = 1
		return nil
	}}}
	a := &PostgresAdapter{pool: q}

	c, err := a.LookupComputer(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	require.Equal(t, uint64(42), c.ID)
	require.Equal(t, "lab-pc-01", c.Name)
	require.Equal(t, uint64(7), c.RoomID)
	require.Equal(t, uint64(3), c.ProcedureID)
	require.Equal(t, uint64(1), c.CenterID)

	require.Equal(t, []any{"10.0.0.5"}, q.lastArgs)
	require.True(t, strings.Contains(q.lastSQL, "FROM computers"))
}

func TestPostgresAdapter_LookupComputer_NotFound(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		return pgx.ErrNoRows
	}}}
	a := &PostgresAdapter{pool: q}

	_, err := a.LookupComputer(context.Background(), "10.0.0.5")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresAdapter_LookupComputer_QueryError(t *testing.T) {
	t.Parallel()

	want := errors.New("connection reset")
	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		return want
	}}}
	a := &PostgresAdapter{pool: q}

	_, err := a.LookupComputer(context.Background(), "10.0.0.5")
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	require.ErrorIs(t, err, want)
}

func TestPostgresAdapter_Close(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{}
	a := &PostgresAdapter{pool: q}
	require.NoError(t, a.Close(context.Background()))
	require.True(t, q.closed)
}

func TestPostgresConfig_ConnString(t *testing.T) {
	t.Parallel()

	cfg := PostgresConfig{Host: "db", Port: "5432", Database: "ogserver", Username: "og", Password: "secret"}
	require.Equal(t, "postgres://og:secret@db:5432/ogserver?sslmode=disable", cfg.connString())
}
