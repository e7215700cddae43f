package http1

import (
	"bytes"
	"strings"
)

// Header is a single request header line.
type Header struct {
	Key   string
	Value string
}

// Request is one framed request message.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers []Header
	Body    []byte

	// Raw is the complete message as it came off the wire.
	Raw []byte

	// ConnID identifies the connection the request arrived on.
	ConnID string
}

// ParseRequest splits a framed message into its parts. It never fails:
// a request line with fewer than two tokens yields a Request for which
// Valid reports false.
func ParseRequest(msg []byte) *Request {
	req := &Request{Raw: msg}

	head := msg
	if i := bytes.Index(msg, headerTerminator); i >= 0 {
		head = msg[:i]
		req.Body = msg[i+len(headerTerminator):]
	}

	lines := strings.Split(string(head), crlf)
	fields := strings.Fields(lines[0])
	if len(fields) > 0 {
		req.Method = fields[0]
	}
	if len(fields) > 1 {
		req.Path = fields[1]
	}
	if len(fields) > 2 {
		req.Version = fields[2]
	}

	for _, line := range lines[1:] {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		req.Headers = append(req.Headers, Header{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	}

	return req
}

// Valid reports whether the request line carried at least a method and a path.
func (r *Request) Valid() bool {
	return r.Method != "" && r.Path != ""
}

// HeaderValues returns the values of every header whose key matches name
// case-insensitively, in arrival order.
func (r *Request) HeaderValues(name string) []string {
	var values []string
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, name) {
			values = append(values, h.Value)
		}
	}
	return values
}

// Header returns the value of the first header whose key matches name
// case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, name) {
			return h.Value, true
		}
	}
	return "", false
}
