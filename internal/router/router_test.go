package router

import (
	"testing"

	"github.com/goceleris/rawhttp/internal/http1"
)

func named(name string) Handler {
	return HandlerFunc(func(*http1.Request) http1.Response {
		return http1.Text(http1.StatusOK, name)
	})
}

func nameOf(h Handler) string {
	if h == nil {
		return ""
	}
	return string(h.Serve(&http1.Request{}).Body)
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(
		Entry{Prefix: "/", Handler: named("root")},
		Entry{Prefix: "/echo/", Handler: named("echo")},
		Entry{Prefix: "/user-agent", Handler: named("user-agent")},
		Entry{Prefix: "/files", Handler: named("files")},
		Entry{Prefix: "/upload", Handler: named("upload")},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestRoute(t *testing.T) {
	r := newTestRegistry(t)

	testCases := []struct {
		method  string
		path    string
		want    string
		outcome Outcome
	}{
		{"GET", "/", "root", Matched},
		{"GET", "/index.html", "", NotFound},
		{"GET", "/echo/hello", "echo", Matched},
		{"GET", "/echo/", "echo", Matched},
		{"GET", "/echo", "", NotFound},
		{"GET", "/user-agent", "user-agent", Matched},
		{"GET", "/user-agent/extra", "user-agent", Matched},
		{"GET", "/files/a.txt", "files", Matched},
		{"GET", "/files", "files", Matched},
		{"POST", "/files/a.txt", "upload", Matched},
		{"PUT", "/files/a.txt", "files", Matched},
		{"GET", "/upload/a.txt", "upload", Matched},
		{"POST", "/upload/a.txt", "upload", Matched},
		{"GET", "/nothing", "", NotFound},
		{"GET", "", "", NotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			h, outcome := r.Route(tc.method, tc.path)
			if outcome != tc.outcome {
				t.Fatalf("expected outcome %v, got %v", tc.outcome, outcome)
			}
			if got := nameOf(h); got != tc.want {
				t.Errorf("expected handler %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPrefixesLongestFirst(t *testing.T) {
	r := newTestRegistry(t)

	want := []string{"/user-agent", "/upload", "/echo/", "/files", "/"}
	got := r.Prefixes()
	if len(got) != len(want) {
		t.Fatalf("expected %d prefixes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestNewRejectsBadEntries(t *testing.T) {
	testCases := []struct {
		name    string
		entries []Entry
	}{
		{"empty prefix", []Entry{{Prefix: "", Handler: named("x")}}},
		{"nil handler", []Entry{{Prefix: "/x"}}},
		{"duplicate", []Entry{{Prefix: "/x", Handler: named("a")}, {Prefix: "/x", Handler: named("b")}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.entries...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFilesPostWithoutUpload(t *testing.T) {
	r, err := New(Entry{Prefix: "/files", Handler: named("files")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h, outcome := r.Route("POST", "/files/a")
	if outcome != Matched || nameOf(h) != "files" {
		t.Errorf("expected files handler, got %q (%v)", nameOf(h), outcome)
	}
}
