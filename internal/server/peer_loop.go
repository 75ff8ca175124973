package server

import (
	"context"
	"io"
	"net"

	"github.com/javsanpar/ogServer/internal/httpframe"
	"github.com/javsanpar/ogServer/internal/ogmetrics"
	"github.com/javsanpar/ogServer/internal/ogpeer"
)

// onComplete is invoked once a full message has been framed. It
// returns an error only when the dispatcher itself failed; the
// decision to keep the connection open afterwards is structural
// (ogpeer.Peer.KeepaliveIdx), not something the dispatcher controls,
// matching spec.md invariant I3.
type onComplete func(ctx context.Context, p *ogpeer.Peer) error

// serve runs a peer's receive loop until the connection closes, is
// timed out, or a message fails to frame. It is the Go translation of
// the source's og_client_read_cb / og_agent_read_cb: the inner loop
// re-enters the same state switch after every partial read instead of
// waiting for a fresh callback, reproducing the original's
// fall-through between RECEIVING_HEADER, RECEIVING_PAYLOAD and
// PROCESSING_* without needing another I/O wait.
func (s *Server) serve(ctx context.Context, p *ogpeer.Peer, complete onComplete) {
	role := p.Role.String()
	defer func() {
		s.teardownPeer(p)
	}()

	// Until its first message completes a peer is not idling in
	// keepalive, so it stays subject to its role's receive deadline.
	completed := false

readLoop:
	for {
		deadline := s.cfg.Timeout(p.Role, p.Receiving() || !completed, s.cfg.Clock.Now())
		if err := p.Conn.SetReadDeadline(deadline); err != nil {
			s.closeReason(p, "deadline_error")
			return
		}

		n, err := p.Conn.Read(p.Buf[p.Len:])
		if err != nil {
			reason := "io_error"
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				reason = "timeout"
				ogmetrics.TimeoutsTotal.WithLabelValues(role).Inc()
			} else if err == io.EOF {
				reason = "eof"
			}
			s.closeReason(p, reason)
			return
		}
		p.Len += n

		for {
			switch p.State {
			case ogpeer.StateReceivingHeader:
				res := httpframe.Frame(p.Buf, p.Len, len(p.Buf), p.Role == ogpeer.RoleRESTClient)
				switch res.Status {
				case httpframe.Incomplete:
					ogmetrics.FramerOutcomes.WithLabelValues(role, "incomplete").Inc()
					continue readLoop
				case httpframe.Malformed:
					ogmetrics.FramerOutcomes.WithLabelValues(role, "malformed").Inc()
					if p.Len >= len(p.Buf) {
						s.rejectOversize(p)
					} else {
						s.closeReason(p, "malformed")
					}
					return
				}
				ogmetrics.FramerOutcomes.WithLabelValues(role, "framed").Inc()
				p.HeaderLen = res.HeaderLen
				p.MsgLen = res.MsgLen
				p.ContentLength = res.ContentLength
				p.AuthToken = res.AuthToken
				p.State = ogpeer.StateReceivingPayload

			case ogpeer.StateReceivingPayload:
				if p.Len < p.MsgLen && p.Len >= len(p.Buf) {
					// Content-Length claims more body than the buffer
					// can ever hold; this can never complete.
					s.rejectOversize(p)
					return
				}
				if p.Len < p.MsgLen {
					continue readLoop
				}
				p.State = ogpeer.StateProcessing

			case ogpeer.StateProcessing:
				if err := complete(ctx, p); err != nil {
					s.closeReason(p, "handler_error")
					return
				}
				completed = true
				if p.KeepaliveIdx < 0 {
					s.closeReason(p, "done")
					return
				}
				s.slots.Install(p, s.evictPeer)
				p.Reset()
				continue readLoop
			}
		}
	}
}

// rejectOversize writes the literal 413 response for REST clients
// (spec.md §6); agents get no response body, just a close, since the
// agent protocol has no framed error path (spec.md §4.6).
func (s *Server) rejectOversize(p *ogpeer.Peer) {
	if p.Role == ogpeer.RoleRESTClient {
		_, _ = io.WriteString(p.Conn, payloadTooLarge)
	}
	s.closeReason(p, "oversize")
}

// closeReason counts why a peer is being closed and logs every reason
// other than an orderly close ("done", "eof") at error level.
func (s *Server) closeReason(p *ogpeer.Peer, reason string) {
	ogmetrics.ConnectionsClosed.WithLabelValues(p.Role.String(), reason).Inc()
	if reason != "done" && reason != "eof" {
		s.cfg.Logger.Error("closing peer", "role", p.Role.String(), "remote", p.IP(), "reason", reason)
	}
}

// teardownPeer releases the peer's keepalive slot (if any, and if it
// still owns it — spec.md invariant I5 / property P5) and closes the
// socket.
func (s *Server) teardownPeer(p *ogpeer.Peer) {
	s.slots.Release(p)
	_ = p.Conn.Close()
}
