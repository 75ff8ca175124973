// Package outbound serializes HTTP/1.1 requests onto an agent's open
// keepalive socket — the push half of the protocol, used both to
// deliver queued commands and to send the refresh-on-connect request
// (spec.md §4.8 / C9).
package outbound

import (
	"encoding/json"
	"fmt"
	"io"
)

// SendRequest writes an HTTP/1.1 request line, a Content-Length header,
// and a JSON body to w. If jsonBody is nil and params is non-nil,
// params is marshaled to JSON and used as the body; if both are nil the
// request carries no body.
//
// cmdType becomes the request path ("/" + cmdType), matching the
// source's GET /refresh convention for og_cmd.type values.
func SendRequest(w io.Writer, method, cmdType string, params any, jsonBody []byte) error {
	body := jsonBody
	if body == nil && params != nil {
		var err error
		body, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal command params: %w", err)
		}
	}

	req := fmt.Sprintf("%s /%s HTTP/1.1\r\nContent-Length: %d\r\n\r\n", method, cmdType, len(body))
	if _, err := io.WriteString(w, req); err != nil {
		return fmt.Errorf("write request line: %w", err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("write request body: %w", err)
		}
	}
	return nil
}

// refreshParams is the body shape for the GET /refresh convenience
// request: a single-element ips array naming the agent being refreshed,
// mirroring og_agent_send_refresh's params.ips_array.
type refreshParams struct {
	IPs []string `json:"ips"`
}

// SendRefresh sends "GET /refresh" with the agent's own IP, invoked
// immediately on every agent accept (spec.md §4.2, property P7).
func SendRefresh(w io.Writer, agentIP string) error {
	return SendRequest(w, "GET", "refresh", refreshParams{IPs: []string{agentIP}}, nil)
}
