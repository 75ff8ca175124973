// Package httpframe implements the minimal incremental HTTP/1.1 message
// framer shared by the REST-client and agent state machines: given the
// bytes received so far on a connection, it decides whether a full
// message has arrived, how long it is, and extracts the handful of
// headers the server actually cares about.
//
// Frame never touches the network; it is a pure function over a byte
// slice so it can be driven directly from table tests (see frame_test.go)
// without a socket in sight.
package httpframe

import (
	"bytes"
	"strconv"
)

// Status is the outcome of framing an in-progress message.
type Status int

const (
	// Incomplete means more bytes are needed before the message can be
	// classified; the caller should read more and call Frame again.
	Incomplete Status = iota
	// HeadersDone means the header block has been found and MsgLen is
	// now valid; the caller still may need to wait for more body bytes
	// (Result.MsgLen > n).
	HeadersDone
	// Malformed means the message can never be completed: either the
	// buffer filled up without a header terminator (oversize) or a
	// header value violates the framer's contract (negative
	// Content-Length).
	Malformed
)

const headerSep = "\r\n\r\n"

// authHeaderMaxLen is the cap the original protocol places on the
// Authorization token; longer tokens are silently truncated, not
// rejected (spec Open Question (b)).
const authHeaderMaxLen = 63

// Result is the outcome of a single Frame call.
type Result struct {
	Status Status

	// HeaderLen is the offset of the byte following the header
	// terminator. Valid once Status == HeadersDone.
	HeaderLen int

	// ContentLength is the parsed `Content-Length:` value, or 0 if the
	// header was absent. Valid once Status == HeadersDone.
	ContentLength int

	// MsgLen is the total message length (headers + body). Valid once
	// Status == HeadersDone.
	MsgLen int

	// AuthToken is the `Authorization:` header value, truncated to
	// authHeaderMaxLen bytes, extracted only when extractAuth is set by
	// the caller (REST-client role). Empty otherwise.
	AuthToken string
}

// Frame classifies the message currently held in buf[:n]. capacity is
// the total size of the peer's receive buffer: Frame needs it to tell
// "still incomplete" apart from "oversize, will never complete" when no
// header terminator has appeared yet.
//
// extractAuth should be true only for REST-client connections; the
// agent protocol never carries an Authorization header (spec.md §4.5).
func Frame(buf []byte, n int, capacity int, extractAuth bool) Result {
	data := buf[:n]

	sepIdx := bytes.Index(data, []byte(headerSep))
	if sepIdx < 0 {
		if n >= capacity {
			return Result{Status: Malformed}
		}
		return Result{Status: Incomplete}
	}

	headerLen := sepIdx + len(headerSep)
	res := Result{
		Status:    HeadersDone,
		HeaderLen: headerLen,
		MsgLen:    headerLen,
	}

	if cl, ok := findContentLength(data[:headerLen]); ok {
		if cl < 0 {
			return Result{Status: Malformed}
		}
		res.ContentLength = cl
		res.MsgLen = headerLen + cl
	}

	if extractAuth {
		res.AuthToken = findAuthToken(data[:headerLen])
	}

	return res
}

// findContentLength locates the first "Content-Length: " header and
// parses the decimal integer that follows, stopping at the first CR or
// LF. Matches the original sscanf("Content-Length: %i[^\r\n]", ...)
// contract: first occurrence wins, value may be negative (caller
// decides that's fatal).
func findContentLength(header []byte) (int, bool) {
	const key = "Content-Length: "
	idx := bytes.Index(header, []byte(key))
	if idx < 0 {
		return 0, false
	}
	rest := header[idx+len(key):]
	end := indexCRLF(rest)
	v, err := strconv.Atoi(string(rest[:end]))
	if err != nil {
		// Not a parseable integer: treat as absent rather than fatal,
		// the same leniency sscanf affords to garbage input it can't
		// match at all.
		return 0, false
	}
	return v, true
}

// findAuthToken locates the first "Authorization: " header and copies
// up to authHeaderMaxLen bytes, stopping at the first CR or LF.
func findAuthToken(header []byte) string {
	const key = "Authorization: "
	idx := bytes.Index(header, []byte(key))
	if idx < 0 {
		return ""
	}
	rest := header[idx+len(key):]
	end := indexCRLF(rest)
	if end > authHeaderMaxLen {
		end = authHeaderMaxLen
	}
	return string(rest[:end])
}

// indexCRLF returns the offset of the first CR or LF in b, or len(b) if
// neither appears.
func indexCRLF(b []byte) int {
	for i, c := range b {
		if c == '\r' || c == '\n' {
			return i
		}
	}
	return len(b)
}
