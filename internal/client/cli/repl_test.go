package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	open  bool
	calls []string
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) isOpen() bool                  { return s.open }
func (s *stubExec) Keygen(context.Context) error  { return s.record("keygen") }
func (s *stubExec) Open(context.Context) error    { return s.record("open") }
func (s *stubExec) Close(context.Context) error   { return s.record("close") }
func (s *stubExec) Post(context.Context) error    { return s.record("post") }
func (s *stubExec) Profile(context.Context) error { return s.record("profile") }
func (s *stubExec) Comment(context.Context) error { return s.record("comment") }
func (s *stubExec) List(context.Context) error    { return s.record("list") }
func (s *stubExec) Feed(context.Context) error    { return s.record("feed") }
func (s *stubExec) Show(context.Context) error    { return s.record("show") }
func (s *stubExec) Pull(context.Context) error    { return s.record("pull") }
func (s *stubExec) WhoIs(context.Context) error   { return s.record("whois") }

func runScript(t *testing.T, a *stubExec, script string) []string {
	t.Helper()

	var out []string
	orig := printlnFn
	printlnFn = func(args ...any) (int, error) {
		out = append(out, fmt.Sprintln(args...))
		return 0, nil
	}
	defer func() { printlnFn = orig }()

	scanner := bufio.NewScanner(strings.NewReader(script))
	runREPL(context.Background(), a, func() string { return "" }, scanner)
	return out
}

func TestREPLDispatch(t *testing.T) {
	a := &stubExec{open: true}
	runScript(t, a, "post\nprofile\ncomment\nlist\nfeed\nshow\npull\nwhois\nclose\nexit\n")
	assert.Equal(t, []string{"post", "profile", "comment", "list", "feed", "show", "pull", "whois", "close"}, a.calls)
}

func TestREPLRequiresOpenIdentity(t *testing.T) {
	a := &stubExec{open: false}
	out := runScript(t, a, "post\nlist\nkeygen\nexit\n")
	assert.Equal(t, []string{"keygen"}, a.calls)

	joined := strings.Join(out, "")
	assert.Contains(t, joined, "Open an identity first")
}

func TestREPLUnknownAndBlank(t *testing.T) {
	a := &stubExec{}
	out := runScript(t, a, "\n\nfrobnicate\nquit\n")
	assert.Empty(t, a.calls)
	assert.Contains(t, strings.Join(out, ""), "Unknown command:")
}

func TestREPLHelp(t *testing.T) {
	a := &stubExec{open: false}
	out := runScript(t, a, "help\nexit\n")
	assert.Contains(t, strings.Join(out, ""), "keygen")

	a = &stubExec{open: true}
	out = runScript(t, a, "help\nexit\n")
	assert.Contains(t, strings.Join(out, ""), "post")
}

func TestREPLExitsOnEOF(t *testing.T) {
	a := &stubExec{}
	runScript(t, a, "feed\n")
	assert.Equal(t, []string{"feed"}, a.calls)
}
