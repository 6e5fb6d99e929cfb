// Package cli is the interactive terminal front end of sandboxdb. It adds
// line editing, history and completion around the shell in pkg/cli.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sqlsandbox/sandboxdb/internal/config"
	"github.com/sqlsandbox/sandboxdb/internal/logger"
	shell "github.com/sqlsandbox/sandboxdb/pkg/cli"
	"github.com/sqlsandbox/sandboxdb/pkg/seed"
	"github.com/sqlsandbox/sandboxdb/pkg/sql"
)

// REPL drives a pkg/cli shell from a readline terminal.
type REPL struct {
	config  *config.Config
	log     *logger.Logger
	session *sql.Session
	pack    *seed.Pack
}

// NewREPL creates a new REPL instance
func NewREPL(cfg *config.Config, log *logger.Logger, session *sql.Session, pack *seed.Pack) *REPL {
	return &REPL{
		config:  cfg,
		log:     log,
		session: session,
		pack:    pack,
	}
}

// Run starts the REPL loop
func (r *REPL) Run() error {
	format, err := shell.ParseFormat(r.config.Shell.Format)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          r.config.Shell.Prompt,
		HistoryFile:     historyFile(r.config.Shell.HistoryFile),
		InterruptPrompt: "^C",
		EOFPrompt:       "\\q",
		AutoComplete:    newCompleter(r.session),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	sh := shell.NewREPL(nil, rl.Stdout(), r.log, r.session, r.pack, shell.Options{
		Format:         format,
		MaxColumnWidth: r.config.Shell.MaxColumnWidth,
		Prompt:         r.config.Shell.Prompt,
	})
	sh.PrintWelcome()

	for sh.Running() {
		rl.SetPrompt(sh.CurrentPrompt())

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// ^C drops a half-typed statement, otherwise it is ignored.
			sh.Cancel()
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		sh.Feed(line)
	}

	fmt.Fprintln(rl.Stdout(), "Goodbye!")
	return nil
}

// historyFile expands a leading ~ in the configured path.
func historyFile(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// newCompleter completes keywords, meta commands and the table names known
// when the shell starts.
func newCompleter(session *sql.Session) *readline.PrefixCompleter {
	tables, _ := session.Tables()
	tableItems := func() []readline.PrefixCompleterInterface {
		items := make([]readline.PrefixCompleterInterface, len(tables))
		for i, t := range tables {
			items[i] = readline.PcItem(t)
		}
		return items
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("SELECT"),
		readline.PcItem("INSERT", readline.PcItem("INTO", tableItems()...)),
		readline.PcItem("UPDATE", tableItems()...),
		readline.PcItem("DELETE", readline.PcItem("FROM", tableItems()...)),
		readline.PcItem("CREATE", readline.PcItem("TABLE")),
		readline.PcItem("DROP", readline.PcItem("TABLE", tableItems()...)),
		readline.PcItem("EXPLAIN", readline.PcItem("SELECT")),
		readline.PcItem("\\dt"),
		readline.PcItem("\\d", tableItems()...),
		readline.PcItem("\\reset"),
		readline.PcItem("\\format", readline.PcItem("table"), readline.PcItem("json")),
		readline.PcItem("\\?"),
		readline.PcItem("\\q"),
	)
}
