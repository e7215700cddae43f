// Package handlers implements the fixed set of routes served by rawhttp.
package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goceleris/rawhttp/internal/http1"
	"github.com/goceleris/rawhttp/internal/router"
)

const (
	echoPrefix      = "/echo/"
	defaultUpload   = "upload.txt"
	methodNotPost   = "Only POST supported here"
	userAgentHeader = "User-Agent"
)

// Ledger records completed uploads. It may be nil.
type Ledger interface {
	Record(name string, size int, connID string) error
}

// Root answers "/" with an empty 200.
type Root struct{}

// Serve returns 200 with no body.
func (Root) Serve(*http1.Request) http1.Response {
	return http1.Text(http1.StatusOK, "")
}

// Echo returns the path after /echo/ unchanged.
type Echo struct{}

// Serve echoes the path suffix as text.
func (Echo) Serve(req *http1.Request) http1.Response {
	return http1.Text(http1.StatusOK, after(req.Path, echoPrefix))
}

// UserAgent returns the client's User-Agent header.
type UserAgent struct{}

// Serve answers 400 when the request has no User-Agent header.
func (UserAgent) Serve(req *http1.Request) http1.Response {
	ua, ok := req.Header(userAgentHeader)
	if !ok {
		return http1.Text(http1.StatusBadRequest, "")
	}
	return http1.Text(http1.StatusOK, ua)
}

// FileRead serves files from Dir.
type FileRead struct {
	Dir string
}

// Serve returns the named file as raw bytes, or 404 when it is not a regular file under Dir.
func (h FileRead) Serve(req *http1.Request) http1.Response {
	path, ok := resolve(h.Dir, after(req.Path, http1.FilesPrefix))
	if !ok {
		return http1.Bytes(http1.StatusNotFound, nil)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return http1.Bytes(http1.StatusNotFound, nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return http1.Bytes(http1.StatusNotFound, nil)
		}
		return http1.Bytes(http1.StatusInternalServerError, nil)
	}
	return http1.Bytes(http1.StatusOK, data)
}

// Upload stores POSTed bodies in Dir under the last path segment.
// Concurrent uploads of the same name are not serialized; the last
// write wins.
type Upload struct {
	Dir    string
	Ledger Ledger
	Logger *slog.Logger
}

// Serve writes the body to Dir and records it in the Ledger when one is set.
func (h Upload) Serve(req *http1.Request) http1.Response {
	if req.Method != "POST" {
		return http1.Text(http1.StatusMethodNotAllowed, methodNotPost)
	}

	name := req.Path[strings.LastIndex(req.Path, "/")+1:]
	if name == "" {
		name = defaultUpload
	}

	if err := os.WriteFile(filepath.Join(h.Dir, name), req.Body, 0644); err != nil {
		h.logger().Warn("upload failed", "file", name, "conn_id", req.ConnID, "error", err)
		return http1.Text(http1.StatusInternalServerError, "")
	}

	if h.Ledger != nil {
		if err := h.Ledger.Record(name, len(req.Body), req.ConnID); err != nil {
			h.logger().Warn("failed to record upload", "file", name, "error", err)
		}
	}

	return http1.Text(http1.StatusCreated, "Saved to "+name)
}

func (h Upload) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Routes builds the route table served under dir.
func Routes(dir string, ledger Ledger, logger *slog.Logger) (*router.Registry, error) {
	return router.New(
		router.Entry{Prefix: router.RootPrefix, Handler: Root{}},
		router.Entry{Prefix: echoPrefix, Handler: Echo{}},
		router.Entry{Prefix: "/user-agent", Handler: UserAgent{}},
		router.Entry{Prefix: router.FilesPrefix, Handler: FileRead{Dir: dir}},
		router.Entry{Prefix: router.UploadPrefix, Handler: Upload{Dir: dir, Ledger: ledger, Logger: logger}},
	)
}

// after returns what follows prefix in path, or "" when path is not longer
// than prefix.
func after(path, prefix string) string {
	if len(path) <= len(prefix) {
		return ""
	}
	return path[len(prefix):]
}

// resolve joins name onto dir and refuses results outside dir.
func resolve(dir, name string) (string, bool) {
	full := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}
