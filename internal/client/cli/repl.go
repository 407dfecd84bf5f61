package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Learn(ctx context.Context) error
	StopLearn(ctx context.Context) error
	Defend(ctx context.Context) error
	Stop(ctx context.Context) error
	Users(ctx context.Context) error
	DeleteUser(ctx context.Context, userName string) error
}

// runREPL reads commands from scanner until EOF, "exit" or "quit". Errors
// returned by command handlers are ignored here; handlers report them
// themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("mousetrap %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			switch {
			case a.isAdmin():
				printlnFn("Available commands: users, deluser <name>, login, exit")
			case a.isLoggedIn():
				printlnFn("Available commands: learn, stoplearn, defend, stop, login, exit")
			default:
				printlnFn("Available commands: register, login, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "learn":
			_ = a.Learn(ctx)
		case "stoplearn":
			_ = a.StopLearn(ctx)
		case "defend":
			_ = a.Defend(ctx)
		case "stop":
			_ = a.Stop(ctx)
		case "users":
			_ = a.Users(ctx)
		case "deluser":
			name := ""
			if len(parts) > 1 {
				name = parts[1]
			}
			_ = a.DeleteUser(ctx, name)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
