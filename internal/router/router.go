// Package router maps request paths to handlers by longest registered prefix.
package router

import (
	"fmt"
	"sort"

	"github.com/goceleris/rawhttp/internal/http1"
)

// Well-known prefixes with special matching rules.
const (
	RootPrefix   = "/"
	FilesPrefix  = "/files"
	UploadPrefix = "/upload"
)

// Handler serves one route.
type Handler interface {
	Serve(req *http1.Request) http1.Response
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(req *http1.Request) http1.Response

// Serve calls f(req).
func (f HandlerFunc) Serve(req *http1.Request) http1.Response {
	return f(req)
}

// Outcome is the result of a routing decision.
type Outcome int

const (
	Matched Outcome = iota
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NotFound:
		return "not_found"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Entry binds a path prefix to its handler.
type Entry struct {
	Prefix  string
	Handler Handler
}

// Registry is an immutable routing table. It is safe for concurrent use.
type Registry struct {
	entries []Entry // longest prefix first
	upload  Handler
}

// New builds a Registry from entries. Prefixes must be unique and non-empty.
func New(entries ...Entry) (*Registry, error) {
	seen := make(map[string]bool, len(entries))
	sorted := make([]Entry, 0, len(entries))
	r := &Registry{}

	for _, e := range entries {
		if e.Prefix == "" {
			return nil, fmt.Errorf("empty route prefix")
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("route %q has no handler", e.Prefix)
		}
		if seen[e.Prefix] {
			return nil, fmt.Errorf("duplicate route prefix %q", e.Prefix)
		}
		seen[e.Prefix] = true
		sorted = append(sorted, e)
		if e.Prefix == UploadPrefix {
			r.upload = e.Handler
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i].Prefix) != len(sorted[j].Prefix) {
			return len(sorted[i].Prefix) > len(sorted[j].Prefix)
		}
		return sorted[i].Prefix < sorted[j].Prefix
	})
	r.entries = sorted

	return r, nil
}

// Route selects the handler for method and path.
//
// The root prefix only matches "/" itself. A POST under the files prefix
// goes to the upload handler when one is registered.
func (r *Registry) Route(method, path string) (Handler, Outcome) {
	for _, e := range r.entries {
		if !matches(e.Prefix, path) {
			continue
		}
		if e.Prefix == FilesPrefix && method == "POST" && r.upload != nil {
			return r.upload, Matched
		}
		return e.Handler, Matched
	}
	return nil, NotFound
}

// Prefixes returns the registered prefixes in match order.
func (r *Registry) Prefixes() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Prefix
	}
	return out
}

func matches(prefix, path string) bool {
	if prefix == path {
		return true
	}
	if prefix == RootPrefix {
		return false
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix
}
