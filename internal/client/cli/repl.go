package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	isOpen() bool
	Keygen(ctx context.Context) error
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Post(ctx context.Context) error
	Profile(ctx context.Context) error
	Comment(ctx context.Context) error
	List(ctx context.Context) error
	Feed(ctx context.Context) error
	Show(ctx context.Context) error
	Pull(ctx context.Context) error
	WhoIs(ctx context.Context) error
}

// runREPL reads a line from the scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit".
//
// Command handlers report their own errors; the loop ignores the returns to
// stay resilient.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sigfeed %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isOpen() {
				printlnFn("Available commands: post, profile, comment, list, feed, show, pull, whois, close, exit")
			} else {
				printlnFn("Available commands: keygen, open, feed, show, pull, whois, exit")
			}

		case "keygen":
			_ = a.Keygen(ctx)

		case "open":
			_ = a.Open(ctx)

		case "close":
			_ = a.Close(ctx)

		case "post":
			if !a.isOpen() {
				printlnFn("Open an identity first")
				continue
			}
			_ = a.Post(ctx)

		case "profile":
			if !a.isOpen() {
				printlnFn("Open an identity first")
				continue
			}
			_ = a.Profile(ctx)

		case "comment":
			if !a.isOpen() {
				printlnFn("Open an identity first")
				continue
			}
			_ = a.Comment(ctx)

		case "l", "list":
			if !a.isOpen() {
				printlnFn("Open an identity first")
				continue
			}
			_ = a.List(ctx)

		case "feed":
			_ = a.Feed(ctx)

		case "show":
			_ = a.Show(ctx)

		case "pull":
			_ = a.Pull(ctx)

		case "whois":
			_ = a.WhoIs(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
