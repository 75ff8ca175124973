// Package ogdb defines the DB adapter collaborator (spec.md §4.9 / C10):
// an opaque handle that resolves an IPv4 address to a single computer
// descriptor. The core only ever calls LookupComputer; everything about
// schema, driver, and connection management lives behind this
// interface, exactly as spec.md §1 scopes "the relational database
// adapter (only its query/row interface is referenced)" out of the
// core's concern.
package ogdb

import (
	"context"
	"errors"
)

// ComputerNameMaxLen bounds Computer.Name, mirroring the source's
// OG_DB_COMPUTER_NAME_MAXLEN truncation of the nombreordenador column.
const ComputerNameMaxLen = 100

// Computer is the single-row descriptor returned by a successful
// lookup, matching the join the original dbi_get_computer_info performs
// across ordenadores/aulas/centros (spec.md §3 "row").
type Computer struct {
	ID          uint64
	Name        string
	CenterID    uint64
	RoomID      uint64
	ProcedureID uint64
}

// ErrNotFound is returned when no computer is registered for the given
// IP — the source's "client does not exist in database" case.
var ErrNotFound = errors.New("ogdb: computer not found")

// QueryError wraps a lower-level driver/query failure, kept distinct
// from ErrNotFound so callers can tell "no such row" from "the database
// itself is unhappy" (spec.md §7 DbError).
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return "ogdb: " + e.Op + ": " + e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }

// Adapter is the only interface the core depends on.
type Adapter interface {
	// LookupComputer resolves ipv4 to its registered computer row, or
	// ErrNotFound if no such computer exists.
	LookupComputer(ctx context.Context, ipv4 string) (*Computer, error)
	Close(ctx context.Context) error
}
