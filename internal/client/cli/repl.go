package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	VerifyOTP(ctx context.Context, args []string) error
	Verify2FA(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context) error
	New(ctx context.Context) error
	Rename(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Purge(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Trash(ctx context.Context) error
	Restore(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: login, verify-otp [email] [code], verify-2fa [code], help, exit"
	helpLoggedIn  = "Available commands: (l)ist, new, rename <id> [title], delete <id>, purge <id>, " +
		"search [query], trash, restore <id>, show <id>, export <id> [format] [file], whoami, logout, exit"
)

// runREPL starts a read-eval-print loop for the WriteDesk CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and passes the remaining tokens to the handler. The loop exits on
// scanner EOF or when the user types "exit" or "quit".
//
// Workspace commands need a session; when logged out they print a hint
// instead of calling the handler. Errors returned by handlers are ignored
// here; handlers report their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("wd%s> ", withSpace(statusFn())))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			_ = a.Login(ctx)

		case "verify-otp":
			_ = a.VerifyOTP(ctx, args)

		case "verify-2fa":
			_ = a.Verify2FA(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if !isWorkspaceCommand(cmd) {
				printlnFn("Unknown command:", cmd)
				continue
			}
			if !a.isLoggedIn() {
				printlnFn("Please log in first.")
				continue
			}
			runWorkspaceCommand(ctx, a, cmd, args)
		}
	}
}

func isWorkspaceCommand(cmd string) bool {
	switch cmd {
	case "logout", "whoami", "l", "list", "new", "rename", "delete", "purge",
		"search", "trash", "restore", "show", "export":
		return true
	}
	return false
}

func runWorkspaceCommand(ctx context.Context, a execIface, cmd string, args []string) {
	switch cmd {
	case "logout":
		_ = a.Logout(ctx)
	case "whoami":
		_ = a.WhoAmI(ctx)
	case "l", "list":
		_ = a.List(ctx)
	case "new":
		_ = a.New(ctx)
	case "rename":
		_ = a.Rename(ctx, args)
	case "delete":
		_ = a.Delete(ctx, args)
	case "purge":
		_ = a.Purge(ctx, args)
	case "search":
		_ = a.Search(ctx, args)
	case "trash":
		_ = a.Trash(ctx)
	case "restore":
		_ = a.Restore(ctx, args)
	case "show":
		_ = a.Show(ctx, args)
	case "export":
		_ = a.Export(ctx, args)
	}
}

func withSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}
