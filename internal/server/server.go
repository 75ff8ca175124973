// Package server implements the two listening sockets, the per-peer
// state machines, and the keepalive slot table that together make up
// ogServer: a REST-client-facing control plane and an agent-facing
// keepalive plane, bridged by a pending-command queue. Grounded on the
// shape of the teacher's telemetry/flow-ingest/internal/server package
// (Config, Server, Run(ctx), one accept loop per listener).
package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/javsanpar/ogServer/internal/ogmetrics"
	"github.com/javsanpar/ogServer/internal/ogpeer"
	"github.com/javsanpar/ogServer/internal/outbound"
	"github.com/javsanpar/ogServer/internal/slot"
)

// Server owns both listeners and the shared keepalive slot table.
type Server struct {
	cfg   Config
	slots *slot.Table

	restLn  net.Listener
	agentLn net.Listener

	wg    sync.WaitGroup
	ready chan struct{}
}

// New validates cfg and constructs a Server. The listeners aren't
// bound until Run is called.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Server{
		cfg:   cfg,
		slots: slot.New(cfg.SlotCount),
		ready: make(chan struct{}),
	}, nil
}

// Ready is closed once both listeners are bound, letting tests (or a
// supervisor) learn the ephemeral addresses chosen when RESTAddr /
// AgentAddr use port 0.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// RESTListenAddr returns the bound REST listener's address. Only valid after
// Ready is closed.
func (s *Server) RESTListenAddr() net.Addr {
	return s.restLn.Addr()
}

// AgentListenAddr returns the bound agent listener's address. Only
// valid after Ready is closed.
func (s *Server) AgentListenAddr() net.Addr {
	return s.agentLn.Addr()
}

// Run binds both listeners and serves until ctx is canceled or either
// listener fails, at which point both listeners are closed. It blocks
// until every accept loop and every peer's receive loop has returned;
// open peer connections are not closed by Run itself.
func (s *Server) Run(ctx context.Context) error {
	restLn, err := bindReuse(ctx, "tcp", s.cfg.RESTAddr)
	if err != nil {
		return fmt.Errorf("listen rest: %w", err)
	}
	s.restLn = restLn

	agentLn, err := bindReuse(ctx, "tcp", s.cfg.AgentAddr)
	if err != nil {
		_ = restLn.Close()
		return fmt.Errorf("listen agent: %w", err)
	}
	s.agentLn = agentLn
	close(s.ready)

	errCh := make(chan error, 2)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		errCh <- s.acceptLoop(ctx, restLn, ogpeer.RoleRESTClient)
	}()
	go func() {
		defer s.wg.Done()
		errCh <- s.acceptLoop(ctx, agentLn, ogpeer.RoleAgent)
	}()

	go func() {
		<-ctx.Done()
		_ = restLn.Close()
		_ = agentLn.Close()
	}()

	err = <-errCh
	_ = restLn.Close()
	_ = agentLn.Close()
	s.wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, role ogpeer.Role) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.onAccept(ctx, conn, role)
	}
}

// onAccept builds the Peer for a freshly accepted connection, assigns
// a keepalive slot for agents, sends the mandatory refresh to agents
// before any inbound byte is processed (spec.md property P7), and
// hands the connection to its role's receive loop on its own
// goroutine — the Go stand-in for the source's single-threaded
// ev_io/ev_timer callbacks (spec.md §9 Design Notes).
func (s *Server) onAccept(ctx context.Context, conn net.Conn, role ogpeer.Role) {
	ogmetrics.ConnectionsAccepted.WithLabelValues(role.String()).Inc()

	remote, _ := conn.RemoteAddr().(*net.TCPAddr)

	keepaliveIdx := ogpeer.TransientSlot
	if role == ogpeer.RoleAgent {
		ip := ""
		if remote != nil {
			ip = remote.IP.String()
		}
		keepaliveIdx = s.cfg.SlotFunc(ip)
	}

	p := ogpeer.New(conn, remote, role, keepaliveIdx)

	if role == ogpeer.RoleAgent {
		s.slots.Install(p, s.evictPeer)
		if err := outbound.SendRefresh(conn, p.IP()); err != nil {
			s.cfg.Logger.Warn("send refresh failed", "remote", p.IP(), "err", err)
			s.teardownPeer(p)
			return
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if role == ogpeer.RoleAgent {
			s.serveAgent(ctx, p)
		} else {
			s.serveClient(ctx, p)
		}
	}()
}

// evictPeer is called by the slot table when a newer connection takes
// over an occupied slot (spec.md property P4, "newest connection
// wins"). The displaced peer's connection is closed; its own receive
// loop will observe the closed socket and return.
func (s *Server) evictPeer(old *ogpeer.Peer) {
	ogmetrics.ConnectionsClosed.WithLabelValues(old.Role.String(), "evicted").Inc()
	_ = old.Conn.Close()
}
