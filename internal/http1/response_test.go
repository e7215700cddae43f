package http1

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func split(t *testing.T, wire []byte) (head []string, body []byte) {
	t.Helper()
	i := bytes.Index(wire, []byte("\r\n\r\n"))
	if i < 0 {
		t.Fatalf("no header terminator in %q", wire)
	}
	return strings.Split(string(wire[:i]), "\r\n"), wire[i+4:]
}

func TestEncode(t *testing.T) {
	testCases := []struct {
		name      string
		request   string
		response  Response
		wantHead  []string
		wantBody  string
		wantClose bool
	}{
		{
			name:     "echo text",
			request:  "GET /echo/abc HTTP/1.1\r\n\r\n",
			response: Text(StatusOK, "abc"),
			wantHead: []string{"HTTP/1.1 200 OK", "Content-Type: text/plain", "Content-Length: 3"},
			wantBody: "abc",
		},
		{
			name:     "file bytes",
			request:  "GET /files/data.txt HTTP/1.1\r\n\r\n",
			response: Bytes(StatusOK, []byte("abc")),
			wantHead: []string{"HTTP/1.1 200 OK", "Content-Type: application/octet-stream", "Content-Length: 3"},
			wantBody: "abc",
		},
		{
			name:     "created",
			request:  "POST /files/a HTTP/1.1\r\nContent-Length: 1\r\n\r\nx",
			response: Text(StatusCreated, "Saved to a"),
			wantHead: []string{"HTTP/1.1 201 Created", "Content-Type: text/plain", "Content-Length: 10"},
			wantBody: "Saved to a",
		},
		{
			name:     "not found has no content headers",
			request:  "GET /files/missing.txt HTTP/1.1\r\n\r\n",
			response: Bytes(StatusNotFound, nil),
			wantHead: []string{"HTTP/1.1 404 Not Found"},
			wantBody: "",
		},
		{
			name:     "method not allowed keeps body",
			request:  "GET /upload/a HTTP/1.1\r\n\r\n",
			response: Text(StatusMethodNotAllowed, "Only POST supported here"),
			wantHead: []string{"HTTP/1.1 405 Method Not Allowed"},
			wantBody: "Only POST supported here",
		},
		{
			name:      "close anywhere in raw text",
			request:   "GET / HTTP/1.1\r\nX-Note: CONNECTION: Close\r\n\r\n",
			response:  Text(StatusOK, ""),
			wantHead:  []string{"HTTP/1.1 200 OK", "Content-Type: text/plain", "Content-Length: 0", "Connection: close"},
			wantBody:  "",
			wantClose: true,
		},
		{
			name:     "binary body ignores gzip",
			request:  "GET /files/a HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n",
			response: Bytes(StatusOK, []byte{0, 1, 2}),
			wantHead: []string{"HTTP/1.1 200 OK", "Content-Type: application/octet-stream", "Content-Length: 3"},
			wantBody: "\x00\x01\x02",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := ParseRequest([]byte(tc.request))
			wire, closeAfter, err := Encode(req, tc.response)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			head, body := split(t, wire)
			if strings.Join(head, "|") != strings.Join(tc.wantHead, "|") {
				t.Errorf("expected headers %q, got %q", tc.wantHead, head)
			}
			if string(body) != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, body)
			}
			if closeAfter != tc.wantClose {
				t.Errorf("expected close=%v, got %v", tc.wantClose, closeAfter)
			}
		})
	}
}

func TestEncodeGzip(t *testing.T) {
	req := ParseRequest([]byte("GET /echo/hello HTTP/1.1\r\nAccept-Encoding: deflate, gzip\r\n\r\n"))

	wire, _, err := Encode(req, Text(StatusOK, "hello"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	head, body := split(t, wire)

	want := []string{
		"HTTP/1.1 200 OK",
		"Content-Type: text/plain",
		"Content-Encoding: gzip",
		"Content-Length: " + strconv.Itoa(len(body)),
	}
	if strings.Join(head, "|") != strings.Join(want, "|") {
		t.Fatalf("expected headers %q, got %q", want, head)
	}

	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("gzip.NewReader failed: %v", err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if string(plain) != "hello" {
		t.Errorf("expected hello, got %q", plain)
	}
}

func TestEncodeNoGzipWithoutHeader(t *testing.T) {
	req := ParseRequest([]byte("GET /echo/hello HTTP/1.1\r\nAccept-Encoding: br\r\n\r\n"))

	wire, _, err := Encode(req, Text(StatusOK, "hello"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if bytes.Contains(wire, []byte("Content-Encoding")) {
		t.Errorf("unexpected Content-Encoding in %q", wire)
	}
}

func TestEncodeGzipInRepeatedHeader(t *testing.T) {
	req := ParseRequest([]byte("GET /echo/hello HTTP/1.1\r\nAccept-Encoding: br\r\naccept-encoding: gzip\r\n\r\n"))

	wire, _, err := Encode(req, Text(StatusOK, "hello"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Contains(wire, []byte("Content-Encoding: gzip\r\n")) {
		t.Errorf("expected gzip from the second Accept-Encoding header, got %q", wire)
	}
}
