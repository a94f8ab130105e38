package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dmitrijs2005/invisibledrop/internal/txsubmit"
)

// command is one REPL verb. minArgs positional arguments are required; usage
// is shown when fewer are given.
type command struct {
	name    string
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, args []string) error
}

// commander is what the REPL drives. The real App satisfies it; tests can
// provide a lightweight stub.
type commander interface {
	commands() []command
	getStatus() string
	output() io.Writer
}

// runREPL starts a simple read–eval–print loop for the InvisibleDrop CLI.
//
// It reads a line from the scanner, parses the first token as the command,
// and dispatches to the matching entry of c.commands(). Unknown commands and
// missing arguments are reported back to the user, and command errors are
// printed with txsubmit.FormatError so that revert reasons surface verbatim.
// The loop exits on scanner EOF, when ctx is done, or when the user types
// "exit" or "quit".
func runREPL(ctx context.Context, c commander, scanner *bufio.Scanner) {
	w := c.output()
	table := make(map[string]command)
	for _, cmd := range c.commands() {
		table[cmd.name] = cmd
	}

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "drop %s> ", c.getStatus())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		case "help":
			printHelp(w, table)
			continue
		}

		cmd, ok := table[name]
		if !ok {
			fmt.Fprintln(w, "Unknown command:", name)
			continue
		}
		if len(args) < cmd.minArgs {
			fmt.Fprintln(w, "Usage:", cmd.usage)
			continue
		}
		if err := cmd.run(ctx, args); err != nil {
			fmt.Fprintln(w, "Error:", txsubmit.FormatError(err))
		}
	}
}

func printHelp(w io.Writer, table map[string]command) {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Available commands:")
	for _, n := range names {
		fmt.Fprintf(w, "  %-28s %s\n", table[n].usage, table[n].help)
	}
	fmt.Fprintf(w, "  %-28s %s\n", "exit", "leave the program")
}
