package http1

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Status codes produced by the server.
const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusInternalServerError = 500
)

var reasons = map[int]string{
	StatusOK:                  "OK",
	StatusCreated:             "Created",
	StatusBadRequest:          "Bad Request",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusInternalServerError: "Internal Server Error",
}

// FilesPrefix is the path prefix whose 200 responses are sent as
// application/octet-stream.
const FilesPrefix = "/files/"

// Response is what a handler hands back before encoding.
type Response struct {
	Status int
	Reason string
	Body   []byte

	// Binary marks raw file content. Binary bodies are never compressed.
	Binary bool
}

// Text builds a textual response with the conventional reason phrase.
func Text(status int, body string) Response {
	return Response{Status: status, Reason: reasons[status], Body: []byte(body)}
}

// Bytes builds a response carrying raw bytes.
func Bytes(status int, body []byte) Response {
	return Response{Status: status, Reason: reasons[status], Body: body, Binary: true}
}

// Encode renders resp as wire bytes for req and reports whether the
// connection must be closed once they are written.
//
// Both the gzip and the close checks are plain substring searches:
// "gzip" anywhere in any Accept-Encoding value, "connection: close"
// anywhere in the lower-cased raw request.
func Encode(req *Request, resp Response) ([]byte, bool, error) {
	body := resp.Body
	headers := make([]string, 0, 5)
	headers = append(headers, "HTTP/1.1 "+strconv.Itoa(resp.Status)+" "+resp.Reason)

	success := resp.Status == StatusOK || resp.Status == StatusCreated
	switch {
	case resp.Status == StatusOK && strings.HasPrefix(req.Path, FilesPrefix):
		headers = append(headers, "Content-Type: application/octet-stream")
	case success:
		headers = append(headers, "Content-Type: text/plain")
	}

	if acceptsGzip(req) && !resp.Binary {
		compressed, err := compress(body)
		if err != nil {
			return nil, false, err
		}
		body = compressed
		headers = append(headers, "Content-Encoding: gzip")
	}

	if success {
		headers = append(headers, "Content-Length: "+strconv.Itoa(len(body)))
	}

	closeAfter := bytes.Contains(bytes.ToLower(req.Raw), []byte("connection: close"))
	if closeAfter {
		headers = append(headers, "Connection: close")
	}

	var out bytes.Buffer
	out.Grow(len(body) + 128)
	for _, h := range headers {
		out.WriteString(h)
		out.WriteString(crlf)
	}
	out.WriteString(crlf)
	out.Write(body)

	return out.Bytes(), closeAfter, nil
}

func acceptsGzip(req *Request) bool {
	for _, v := range req.HeaderValues("Accept-Encoding") {
		if strings.Contains(v, "gzip") {
			return true
		}
	}
	return false
}

func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(body); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
