package server

import (
	"context"

	"github.com/javsanpar/ogServer/internal/ogmetrics"
	"github.com/javsanpar/ogServer/internal/ogpeer"
	"github.com/javsanpar/ogServer/internal/outbound"
)

// completeAgentResponse hands a fully framed agent message to the
// configured ResponseDispatcher, then — on success — pulls at most one
// pending command for this agent and writes it out as a new outbound
// request (spec.md §4.5 PROCESSING_RESPONSE, property P8).
func (s *Server) completeAgentResponse(ctx context.Context, p *ogpeer.Peer) error {
	raw := p.Buf[:p.Len]
	resp := AgentResponse{
		Body:      raw[p.HeaderLen:p.Len],
		Remote:    p.IP(),
		LastCmdID: p.LastCmdID,
	}

	if err := s.cfg.ResponseDispatcher.Dispatch(ctx, resp); err != nil {
		return err
	}

	cmd, ok := s.cfg.Commands.Find(p.IP())
	if !ok {
		return nil
	}
	defer s.cfg.Commands.Release(cmd)

	if err := outbound.SendRequest(p.Conn, cmd.Method, cmd.Type, cmd.Params, cmd.JSONBody); err != nil {
		return err
	}
	p.LastCmdID = cmd.ID
	ogmetrics.CommandsDelivered.Inc()
	return nil
}

// serveAgent runs the receive loop for an agent connection. Agents
// always hold a keepalive slot (p.KeepaliveIdx >= 0), so serve
// re-installs and resets the peer after every completed message
// instead of closing (spec.md invariant I3, property P4).
func (s *Server) serveAgent(ctx context.Context, p *ogpeer.Peer) {
	s.serve(ctx, p, s.completeAgentResponse)
}
