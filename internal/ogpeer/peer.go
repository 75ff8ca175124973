// Package ogpeer defines the connection-scoped Peer entity shared by the
// REST-client and agent state machines: a fixed receive buffer, parser
// state, and the handful of fields the framer and keepalive slot table
// need (spec.md §3).
package ogpeer

import (
	"net"
)

// Role identifies which of the two listening sockets accepted a peer.
type Role int

const (
	RoleRESTClient Role = iota
	RoleAgent
)

func (r Role) String() string {
	if r == RoleAgent {
		return "agent"
	}
	return "rest_client"
}

// State is a peer's position in its role's state machine.
type State int

const (
	StateReceivingHeader State = iota
	StateReceivingPayload
	StateProcessing
)

// DefaultBufferCapacity is the fixed receive buffer size allotted to
// every peer. 8 KiB matches the example capacity named in spec.md §3.
const DefaultBufferCapacity = 8192

// TransientSlot is the keepalive_idx sentinel meaning "close after one
// message" (spec.md invariant I3).
const TransientSlot = -1

// Peer is mutated only by the goroutine that owns its connection; no
// field here is touched concurrently (the slot table holds only a
// pointer back-reference, guarded by its own mutex — see package slot).
type Peer struct {
	Conn   net.Conn
	Remote *net.TCPAddr
	Role   Role

	Buf []byte
	Len int

	State         State
	HeaderLen     int
	MsgLen        int
	ContentLength int
	AuthToken     string

	KeepaliveIdx int
	LastCmdID    int
}

// New allocates a Peer for a freshly accepted connection. keepaliveIdx
// should be TransientSlot for REST clients and the slot assignment
// (spec.md §9, Open Question (a)) for agents.
func New(conn net.Conn, remote *net.TCPAddr, role Role, keepaliveIdx int) *Peer {
	return &Peer{
		Conn:         conn,
		Remote:       remote,
		Role:         role,
		Buf:          make([]byte, DefaultBufferCapacity),
		State:        StateReceivingHeader,
		KeepaliveIdx: keepaliveIdx,
	}
}

// Reset returns a peer to RECEIVING_HEADER with an empty buffer, ready
// for the next message on a keepalive connection (spec.md
// og_client_reset_state / og_agent_reset_state).
func (p *Peer) Reset() {
	p.State = StateReceivingHeader
	p.Len = 0
	p.HeaderLen = 0
	p.ContentLength = 0
	p.MsgLen = 0
	p.AuthToken = ""
}

// IP returns the dotted remote address, or "" if unknown.
func (p *Peer) IP() string {
	if p.Remote == nil {
		return ""
	}
	return p.Remote.IP.String()
}

// Receiving reports whether the peer is in the middle of accumulating a
// message, as opposed to idling between messages in keepalive mode.
// Used by the timeout manager (spec.md invariant I5 / property P6).
func (p *Peer) Receiving() bool {
	return p.State != StateReceivingHeader || p.Len > 0
}
