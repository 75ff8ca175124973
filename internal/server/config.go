package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/javsanpar/ogServer/internal/command"
	"github.com/javsanpar/ogServer/internal/ogdb"
	"github.com/javsanpar/ogServer/internal/ogpeer"
	"github.com/javsanpar/ogServer/internal/slot"
	"github.com/javsanpar/ogServer/internal/timeoutmgr"
)

// DefaultSlotCount is the size of the keepalive table when Config
// doesn't override it. A single slot reproduces the source's literal
// "every agent maps to slot 0" behavior (spec.md §9 Open Question (a)).
const DefaultSlotCount = 1

// TimeoutFunc decides the read deadline to arm before a peer's next
// Read, given the current time; see package timeoutmgr. Exposed on
// Config so tests can shorten the real 10s/30s constants without
// waiting them out.
type TimeoutFunc func(role ogpeer.Role, receiving bool, now time.Time) time.Time

// Config holds everything the server needs to run. Validate fills in
// defaults and is grounded on the teacher's
// telemetry/flow-ingest/internal/server.Config.Validate.
type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock

	RESTAddr  string
	AgentAddr string

	DB       ogdb.Adapter
	Commands command.Queue

	RequestDispatcher  RequestDispatcher
	ResponseDispatcher ResponseDispatcher

	SlotFunc  slot.SlotFunc
	SlotCount int

	Timeout TimeoutFunc
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.RESTAddr == "" {
		return errors.New("rest listen address is required")
	}
	if c.AgentAddr == "" {
		return errors.New("agent listen address is required")
	}
	if c.DB == nil {
		return errors.New("db adapter is required")
	}
	if c.Commands == nil {
		c.Commands = command.NewMemoryQueue()
	}
	if c.RequestDispatcher == nil {
		c.RequestDispatcher = PingDispatcher{DB: c.DB}
	}
	if c.ResponseDispatcher == nil {
		c.ResponseDispatcher = NoopResponseDispatcher{}
	}
	if c.SlotCount == 0 {
		c.SlotCount = DefaultSlotCount
	}
	if c.SlotCount < 0 {
		return errors.New("slot count must be >= 0")
	}
	if c.SlotFunc == nil {
		c.SlotFunc = slot.FixedSlot(0)
	}
	if c.Timeout == nil {
		c.Timeout = timeoutmgr.Deadline
	}
	return nil
}
