// Package cli provides the line-oriented shell of sandboxdb. It reads from
// any io.Reader, so the same loop serves scripts, tests and the interactive
// front end in internal/cli.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sqlsandbox/sandboxdb/internal/logger"
	"github.com/sqlsandbox/sandboxdb/pkg/seed"
	"github.com/sqlsandbox/sandboxdb/pkg/sql"
)

const (
	// Version of sandboxdb
	Version = "0.1.0"

	// Prompt displayed to users
	Prompt = "sandbox> "

	// ContinuePrompt for multi-line statements
	ContinuePrompt = "     ... "
)

// Options configures a REPL.
type Options struct {
	Format         Format
	MaxColumnWidth int
	Prompt         string
	Quiet          bool // no banner, no prompts
}

// REPL provides a Read-Eval-Print Loop over one sandbox session.
type REPL struct {
	in      io.Reader
	out     io.Writer
	log     *logger.Logger
	session *sql.Session
	pack    *seed.Pack
	printer *Printer
	opts    Options

	buffer  strings.Builder
	running bool
}

// NewREPL creates a REPL. pack is re-applied by \reset.
func NewREPL(in io.Reader, out io.Writer, log *logger.Logger, session *sql.Session, pack *seed.Pack, opts Options) *REPL {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Prompt == "" {
		opts.Prompt = Prompt
	}
	return &REPL{
		in:      in,
		out:     out,
		log:     log.Named("repl"),
		session: session,
		pack:    pack,
		printer: &Printer{Out: out, Format: opts.Format, MaxWidth: opts.MaxColumnWidth},
		opts:    opts,
		running: true,
	}
}

// Run reads lines until EOF or \q.
func (r *REPL) Run() error {
	if !r.opts.Quiet {
		r.PrintWelcome()
	}

	scanner := bufio.NewScanner(r.in)
	for r.running {
		if !r.opts.Quiet {
			fmt.Fprint(r.out, r.CurrentPrompt())
		}
		if !scanner.Scan() {
			break
		}
		r.Feed(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	// A statement left without its semicolon still runs at EOF.
	if r.running && strings.TrimSpace(r.buffer.String()) != "" {
		r.executeSQL(r.buffer.String())
		r.buffer.Reset()
	}

	if !r.opts.Quiet {
		fmt.Fprintln(r.out, "Goodbye!")
	}
	return nil
}

// Running reports whether the REPL still accepts input.
func (r *REPL) Running() bool {
	return r.running
}

// Pending reports whether a statement is partially entered.
func (r *REPL) Pending() bool {
	return r.buffer.Len() > 0
}

// CurrentPrompt returns the prompt for the next line.
func (r *REPL) CurrentPrompt() string {
	if r.Pending() {
		return ContinuePrompt
	}
	return r.opts.Prompt
}

// Cancel discards a partially entered statement.
func (r *REPL) Cancel() {
	r.buffer.Reset()
}

// Feed processes one input line. Meta commands run at once; SQL is
// collected until a line ends with a semicolon.
func (r *REPL) Feed(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if !r.Pending() && strings.HasPrefix(trimmed, "\\") {
		r.metaCommand(trimmed)
		return
	}

	if r.Pending() {
		r.buffer.WriteString("\n")
	}
	r.buffer.WriteString(line)

	if !strings.HasSuffix(trimmed, ";") {
		return
	}
	input := r.buffer.String()
	r.buffer.Reset()
	r.executeSQL(input)
}

// PrintWelcome displays the welcome banner.
func (r *REPL) PrintWelcome() {
	name := "(none)"
	if r.pack != nil {
		name = r.pack.Name
	}
	fmt.Fprintf(r.out, "sandboxdb %s, seed %q\nType \\? for help, \\q to quit. End SQL statements with ;\n\n", Version, name)
}

func (r *REPL) metaCommand(input string) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(strings.TrimSuffix(parts[0], ";"))
	args := parts[1:]

	r.log.Debug("meta command", "cmd", cmd)

	switch cmd {
	case "\\q", "\\quit":
		r.running = false

	case "\\?", "\\h", "\\help":
		r.printHelp()

	case "\\dt":
		r.listTables()

	case "\\d":
		if len(args) != 1 {
			fmt.Fprintln(r.out, "Usage: \\d <table>")
			return
		}
		r.describeTable(strings.TrimSuffix(args[0], ";"))

	case "\\reset":
		r.reset()

	case "\\format":
		if len(args) == 0 {
			fmt.Fprintf(r.out, "Output format is %s\n", r.printer.Format)
			return
		}
		f, err := ParseFormat(args[0])
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return
		}
		r.printer.Format = f
		fmt.Fprintf(r.out, "Output format is %s\n", f)

	default:
		fmt.Fprintf(r.out, "Unknown command: %s\nType \\? for help\n", cmd)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, `SQL:
  CREATE TABLE name (col type [constraints], ...);
  DROP TABLE [IF EXISTS] name;
  INSERT INTO name [(cols)] VALUES (...), ...;
  SELECT ... FROM t [JOIN ...] [WHERE] [GROUP BY] [ORDER BY] [LIMIT];
  UPDATE name SET col = expr, ... [WHERE ...];
  DELETE FROM name [WHERE ...];
  EXPLAIN SELECT ...;

Meta commands:
  \dt                 List tables
  \d <table>          Describe a table
  \reset              Reload the seed pack
  \format table|json  Set the output format
  \?                  Show this help
  \q                  Quit`)
}

func (r *REPL) listTables() {
	names, err := r.session.Tables()
	if err != nil {
		r.printer.PrintError(err)
		return
	}
	counts := make([]int, len(names))
	for i, n := range names {
		if counts[i], err = r.session.RowCount(n); err != nil {
			r.printer.PrintError(err)
			return
		}
	}
	r.printer.PrintTables(names, counts)
}

func (r *REPL) describeTable(name string) {
	t, err := r.session.Describe(name)
	if err != nil {
		r.printer.PrintError(err)
		return
	}
	r.printer.PrintSchema(t)
}

func (r *REPL) reset() {
	if r.pack == nil {
		fmt.Fprintln(r.out, "No seed pack loaded.")
		return
	}
	if err := r.pack.Apply(r.session); err != nil {
		r.log.Warn("reset failed", "error", err)
		r.printer.PrintError(err)
		return
	}
	fmt.Fprintf(r.out, "Session reset from seed %q\n", r.pack.Name)
}

// executeSQL runs every statement of input and prints each outcome in turn.
func (r *REPL) executeSQL(input string) {
	for _, res := range r.session.ExecuteScript(input) {
		if res.Err != nil {
			r.printer.PrintError(res.Err)
			continue
		}
		r.printer.PrintOutcome(res.Outcome)
	}
}
