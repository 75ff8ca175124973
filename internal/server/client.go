package server

import (
	"context"

	"github.com/javsanpar/ogServer/internal/ogpeer"
)

// completeRESTRequest builds a RESTRequest out of a fully framed REST
// message and hands it to the configured RequestDispatcher, writing
// the dispatcher's response straight back to the connection (spec.md
// §4.3 PROCESSING_REQUEST).
func (s *Server) completeRESTRequest(ctx context.Context, p *ogpeer.Peer) error {
	raw := p.Buf[:p.Len]
	method, path := parseRequestLine(raw)
	body := raw[p.HeaderLen:p.Len]

	req := RESTRequest{
		Method: method,
		Path:   path,
		Auth:   p.AuthToken,
		Body:   body,
		Remote: p.IP(),
	}
	return s.cfg.RequestDispatcher.Dispatch(ctx, req, p.Conn)
}

// serveClient runs the receive loop for a REST-client connection.
// REST clients never hold a keepalive slot (p.KeepaliveIdx stays
// ogpeer.TransientSlot), so serve always closes after one request
// completes (spec.md invariant I3).
func (s *Server) serveClient(ctx context.Context, p *ogpeer.Peer) {
	s.serve(ctx, p, s.completeRESTRequest)
}
