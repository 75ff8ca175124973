package ogdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig mirrors the shape of the teacher's lake/api/config
// connection settings: host/port/database/user/password plus pool
// sizing, adapted from ClickHouse/Postgres config loading to this
// server's single computer-lookup adapter.
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (c *PostgresConfig) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
}

func (c PostgresConfig) connString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// querier is the subset of *pgxpool.Pool this package depends on, kept
// narrow so PostgresAdapter can be exercised in tests against a fake
// without a live database, the same shape as the teacher's KafkaClient
// interface in telemetry/flow-ingest.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresAdapter implements Adapter against a Postgres schema shaped
// like the source's ordenadores/aulas/centros join: a computers table
// referencing rooms and centers.
type PostgresAdapter struct {
	pool querier
}

// OpenPostgres connects to Postgres and verifies the connection with a
// Ping, grounded on the teacher's LoadPostgres (pgxpool.ParseConfig +
// pool-size tuning + Ping before returning).
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresAdapter, error) {
	cfg.setDefaults()

	poolConfig, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresAdapter{pool: pool}, nil
}

const lookupComputerQuery = `
SELECT computers.id,
       computers.name,
       computers.room_id,
       computers.procedure_id,
       rooms.center_id
FROM computers
INNER JOIN rooms ON rooms.id = computers.room_id
INNER JOIN centers ON centers.id = rooms.center_id
WHERE computers.ip = $1`

// LookupComputer runs the computers/rooms/centers join for ipv4,
// mirroring dbi_get_computer_info's single-row fetch.
func (a *PostgresAdapter) LookupComputer(ctx context.Context, ipv4 string) (*Computer, error) {
	row := a.pool.QueryRow(ctx, lookupComputerQuery, ipv4)

	var c Computer
	err := row.Scan(&c.ID, &c.Name, &c.RoomID, &c.ProcedureID, &c.CenterID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &QueryError{Op: "lookup_computer", Err: err}
	}
	if len(c.Name) > ComputerNameMaxLen {
		c.Name = c.Name[:ComputerNameMaxLen]
	}
	return &c, nil
}

// Close releases the underlying connection pool.
func (a *PostgresAdapter) Close(ctx context.Context) error {
	a.pool.Close()
	return nil
}
