package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
	failOn   string
}

func (f *fakeExec) record(name string, args ...string) error {
	call := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.calls = append(f.calls, call)
	if f.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool                        { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error          { return f.record("register") }
func (f *fakeExec) RegisterLocal(context.Context) error     { return f.record("register-local") }
func (f *fakeExec) Login(context.Context) error             { f.loggedIn = true; return f.record("login") }
func (f *fakeExec) LoginLocal(context.Context) error        { f.loggedIn = true; return f.record("login-local") }
func (f *fakeExec) Logout(context.Context) error            { f.loggedIn = false; return f.record("logout") }
func (f *fakeExec) Report(context.Context) error            { return f.record("report") }
func (f *fakeExec) List(_ context.Context, a []string) error { return f.record("list", a...) }
func (f *fakeExec) More(context.Context) error              { return f.record("more") }
func (f *fakeExec) Filter(_ context.Context, a []string) error {
	return f.record("filter", a...)
}
func (f *fakeExec) Refresh(context.Context) error { return f.record("refresh") }
func (f *fakeExec) Stats(context.Context) error   { return f.record("stats") }
func (f *fakeExec) Status(_ context.Context, a []string) error {
	return f.record("status", a...)
}
func (f *fakeExec) Show(_ context.Context, a []string) error { return f.record("show", a...) }
func (f *fakeExec) Mine(context.Context) error              { return f.record("mine") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, fmt.Sprintln(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	captureOutput(t)

	input := strings.Join([]string{
		"login",
		"list",
		"l pending",
		"more",
		"filter RESOLVED",
		"status 7 IN_PROGRESS",
		"show 7",
		"mine",
		"stats",
		"refresh",
		"report",
		"",
		"logout",
		"exit",
		"list",
	}, "\n") + "\n"

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, rdr(input))

	assert.Equal(t, []string{
		"login", "list", "list pending", "more", "filter RESOLVED", "status 7 IN_PROGRESS",
		"show 7", "mine", "stats", "refresh", "report", "logout",
	}, f.calls)
}

func TestRunREPL_RequiresLogin(t *testing.T) {
	out := captureOutput(t)

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, rdr("list\nstatus 1 RESOLVED\nhelp\n"))

	assert.Empty(t, f.calls)
	joined := strings.Join(*out, "")
	assert.Equal(t, 2, strings.Count(joined, "Please login first"))
	assert.Contains(t, joined, "register, register-local, login, login-local")
}

func TestRunREPL_PrintsHandlerErrorsAndContinues(t *testing.T) {
	out := captureOutput(t)

	f := &fakeExec{loggedIn: true, failOn: "list"}
	runREPL(context.Background(), f, func() string { return "(alice user)" }, rdr("list\nbogus\nstats"))

	joined := strings.Join(*out, "")
	assert.Contains(t, joined, "Error: list failed")
	assert.Contains(t, joined, "Unknown command: bogus")
	assert.Contains(t, joined, "civic (alice user)> ")
	assert.Equal(t, []string{"list", "stats"}, f.calls, "a final line without newline still runs")
}
