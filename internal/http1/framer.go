// Package http1 implements the wire side of the server: framing requests
// out of a connection's byte stream, parsing them and encoding responses.
package http1

import (
	"bytes"
	"strconv"
)

const (
	crlf = "\r\n"
)

var (
	headerTerminator = []byte("\r\n\r\n")
	contentLengthKey = []byte("content-length:")
)

// Extract pulls one complete message off the front of buf.
//
// A message is the header block, its blank-line terminator and exactly
// Content-Length body bytes. When buf does not yet hold a whole message ok
// is false and buf should be kept for the next read. On success msg is the
// consumed prefix and rest is whatever follows it, which may already be the
// start of a pipelined request.
func Extract(buf []byte) (msg, rest []byte, ok bool) {
	headerEnd := bytes.Index(buf, headerTerminator)
	if headerEnd == -1 {
		return nil, buf, false
	}

	bodyStart := headerEnd + len(headerTerminator)
	n := declaredLength(buf[:headerEnd])
	if len(buf)-bodyStart < n {
		return nil, buf, false
	}
	total := bodyStart + n

	return buf[:total:total], buf[total:], true
}

// declaredLength scans a header block for Content-Length. A missing,
// malformed or negative value counts as zero; the last occurrence wins.
func declaredLength(header []byte) int {
	n := 0
	for _, line := range bytes.Split(header, []byte(crlf)) {
		if len(line) < len(contentLengthKey) || !bytes.EqualFold(line[:len(contentLengthKey)], contentLengthKey) {
			continue
		}
		v, err := strconv.Atoi(string(bytes.TrimSpace(line[len(contentLengthKey):])))
		if err != nil || v < 0 {
			n = 0
			continue
		}
		n = v
	}
	return n
}
