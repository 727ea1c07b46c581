package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	RegisterLocal(ctx context.Context) error
	Login(ctx context.Context) error
	LoginLocal(ctx context.Context) error
	Logout(ctx context.Context) error
	Report(ctx context.Context) error
	List(ctx context.Context, args []string) error
	More(ctx context.Context) error
	Filter(ctx context.Context, args []string) error
	Refresh(ctx context.Context) error
	Stats(ctx context.Context) error
	Status(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Mine(ctx context.Context) error
}

// runREPL reads commands line by line from in and dispatches them to a
// until input ends or the user types exit or quit. Handler errors are
// printed and the loop goes on.
//
//	Not logged in: help, register, register-local, login, login-local, exit
//	Logged in:     help, list, more, filter <ALL|status>, refresh, stats,
//	               report, show <id>, mine, status <id> <status>, logout, exit
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("civic %s> ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, more, filter, refresh, stats, report, show, mine, status, logout, exit")
			} else {
				printlnFn("Available commands: register, register-local, login, login-local, exit")
			}
		case "register":
			cmdErr = a.Register(ctx)
		case "register-local":
			cmdErr = a.RegisterLocal(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "login-local":
			cmdErr = a.LoginLocal(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			if !a.isLoggedIn() {
				printlnFn("Please login first (type 'help' for commands)")
				continue
			}
			cmdErr = dispatchSession(ctx, a, cmd, args)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}

func dispatchSession(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "l", "list":
		return a.List(ctx, args)
	case "more":
		return a.More(ctx)
	case "filter":
		return a.Filter(ctx, args)
	case "refresh":
		return a.Refresh(ctx)
	case "stats":
		return a.Stats(ctx)
	case "report":
		return a.Report(ctx)
	case "status":
		return a.Status(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "mine":
		return a.Mine(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}
