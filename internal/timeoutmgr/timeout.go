// Package timeoutmgr decides the read deadline to arm before a peer's
// next Read, reproducing the C original's per-role ev_timer semantics
// (spec.md §4.7) as a pure function instead of an explicit timer that
// must be armed/rearmed/stopped by hand.
package timeoutmgr

import (
	"time"

	"github.com/javsanpar/ogServer/internal/ogpeer"
)

// RESTClientTimeout is the idle deadline for REST-client connections
// (spec.md OG_CLIENT_TIMEOUT).
const RESTClientTimeout = 10 * time.Second

// AgentTimeout is the idle deadline for an agent actively receiving a
// message (spec.md OG_AGENT_CLIENT_TIMEOUT).
const AgentTimeout = 30 * time.Second

// Deadline returns the absolute time at which the next Read on this
// peer's connection should give up, given the current wall-clock time
// now.
//
// A REST-client connection always gets RESTClientTimeout: it is
// transient and never exempt (spec.md invariant I3).
//
// An agent connection gets AgentTimeout while actively receiving a
// message, and the zero time.Time — meaning "no deadline, block
// forever" — while idling between messages in keepalive mode
// (invariant I5, property P6). The zero value is a valid argument to
// net.Conn.SetReadDeadline and clears any previously armed deadline.
func Deadline(role ogpeer.Role, receiving bool, now time.Time) time.Time {
	if role == ogpeer.RoleAgent {
		if !receiving {
			return time.Time{}
		}
		return now.Add(AgentTimeout)
	}
	return now.Add(RESTClientTimeout)
}
