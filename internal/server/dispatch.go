package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/javsanpar/ogServer/internal/ogdb"
	"github.com/javsanpar/ogServer/internal/ogmetrics"
)

// payloadTooLarge is the exact 413 response the server writes when a
// REST client fills its buffer without completing the message
// (spec.md §6 "Wire format — outbound (413)"). Other malformed
// messages are closed without a response.
const payloadTooLarge = "HTTP/1.1 413 Payload Too Large\r\nContent-Length: 0\r\n\r\n"

// RESTRequest is everything a RequestDispatcher needs: the method and
// path from the request line, the extracted Authorization token, the
// body bytes named by Content-Length, and the remote address. The framer (package httpframe) does not parse the request
// line or other headers — that's this layer's job, delegated further
// to the dispatcher (spec.md §4.3 "No decoding of the request line,
// method, URI... delegated to the request dispatcher collaborator").
type RESTRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
	Remote string
}

// RequestDispatcher handles a complete REST-client request, writing its
// response to w. It returns only ok (nil) or an error: whether the
// connection stays open is decided by the peer's keepalive slot, not by
// the dispatcher, and per spec.md invariant I3 REST clients never
// occupy a slot, so the connection is closed after every request.
type RequestDispatcher interface {
	Dispatch(ctx context.Context, req RESTRequest, w io.Writer) error
}

// AgentResponse is the framed payload from an agent connection once a
// message completes.
type AgentResponse struct {
	Body      []byte
	Remote    string
	LastCmdID int
}

// ResponseDispatcher handles a complete agent response. A nil error
// return means "ok, no follow-up needed beyond the normal pending-
// command pull" (spec.md §4.5's ok_no_followup / return value 0).
type ResponseDispatcher interface {
	Dispatch(ctx context.Context, resp AgentResponse) error
}

// parseRequestLine splits the first line of a raw HTTP message into
// method and path, the minimal decoding the framer itself declines to
// do (spec.md §4.3).
func parseRequestLine(raw []byte) (method, path string) {
	r := bufio.NewReader(strings.NewReader(string(raw)))
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", ""
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", ""
	}
	return fields[0], fields[1]
}

// PingDispatcher is the default RequestDispatcher: it answers any
// request with 200 OK and an empty body, after resolving the caller
// against the DB adapter (spec.md §4.9) so the outcome shows up in
// DBLookupOutcomes the way a real endpoint's computer lookup would.
// Real endpoint logic (the business rules behind each REST operation)
// is an external collaborator per spec.md §1; this exists so the
// server has a working default out of the box.
type PingDispatcher struct {
	DB ogdb.Adapter
}

func (d PingDispatcher) Dispatch(ctx context.Context, req RESTRequest, w io.Writer) error {
	if d.DB != nil && req.Remote != "" {
		_, err := d.DB.LookupComputer(ctx, req.Remote)
		switch {
		case err == nil:
			ogmetrics.DBLookupOutcomes.WithLabelValues("found").Inc()
		case errors.Is(err, ogdb.ErrNotFound):
			ogmetrics.DBLookupOutcomes.WithLabelValues("not_found").Inc()
		default:
			ogmetrics.DBLookupOutcomes.WithLabelValues("error").Inc()
		}
	}

	resp := "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"
	_, err := io.WriteString(w, resp)
	return err
}

// NoopResponseDispatcher is the default ResponseDispatcher: it accepts
// every agent response with no side effect beyond the normal pending-
// command pull that follows a successful dispatch.
type NoopResponseDispatcher struct{}

func (NoopResponseDispatcher) Dispatch(ctx context.Context, resp AgentResponse) error {
	return nil
}
