// sandboxdb - an in-memory SQL sandbox for learning SQL
// Main entry point for the shell and one-shot commands

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sqlsandbox/sandboxdb/internal/cli"
	"github.com/sqlsandbox/sandboxdb/internal/config"
	"github.com/sqlsandbox/sandboxdb/internal/logger"
	shell "github.com/sqlsandbox/sandboxdb/pkg/cli"
	"github.com/sqlsandbox/sandboxdb/pkg/seed"
	"github.com/sqlsandbox/sandboxdb/pkg/sql"
)

var (
	buildDate = "dev"
	cfgFile   string
	seedFile  string
	format    string
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sandboxdb",
		Short: "sandboxdb - an in-memory SQL sandbox",
		Long: `sandboxdb runs SQL against a small in-memory database that is
rebuilt from a seed pack every time it starts.

Start the interactive shell:
  sandboxdb

Run one statement against the seeded database:
  sandboxdb exec "SELECT * FROM users"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runShell,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&seedFile, "seed", "s", "", "seed pack (yaml, json or sql); overrides seed.path")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "output format: table or json")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE:  runShell,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "exec <sql>",
		Short: "Reset from the seed, run one statement and print its outcome",
		Args:  cobra.ExactArgs(1),
		RunE:  runExec,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run <file.sql>",
		Short: "Reset from the seed and run a script file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default sandboxdb.yaml and seed.yaml (from --seed when given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initSandbox,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sandboxdb %s (built %s)\n", shell.Version, buildDate)
		},
	})

	return rootCmd
}

// env is what every command needs: config, logger, and a seeded session.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	session *sql.Session
	pack    *seed.Pack
	printer *shell.Printer
}

func setup(out io.Writer) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if format != "" {
		cfg.Shell.Format = format
	}
	f, err := shell.ParseFormat(cfg.Shell.Format)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}

	pack, err := loadPack(cfg)
	if err != nil {
		return nil, err
	}

	session := sql.NewSession(sql.WithLogger(log))
	if err := pack.Apply(session); err != nil {
		log.Error("seed failed", "seed", pack.Name, "error", err)
		return nil, err
	}
	log.Info("sandbox ready", "seed", pack.Name, "session_id", session.ID())

	return &env{
		cfg:     cfg,
		log:     log,
		session: session,
		pack:    pack,
		printer: &shell.Printer{Out: out, Format: f, MaxWidth: cfg.Shell.MaxColumnWidth},
	}, nil
}

func loadPack(cfg *config.Config) (*seed.Pack, error) {
	path := cfg.Seed.Path
	if seedFile != "" {
		path = seedFile
	}
	if path == "" {
		return seed.Default(), nil
	}
	return seed.Load(path)
}

func runShell(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	e.cfg.Shell.Format = e.printer.Format.String()
	if err := cli.NewREPL(e.cfg, e.log, e.session, e.pack).Run(); err != nil {
		e.log.Error("REPL error", "error", err)
		return err
	}
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	out, err := e.session.Execute(args[0])
	if err != nil {
		e.printer.PrintError(err)
		return errStatementFailed
	}
	e.printer.PrintOutcome(out)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	failed := 0
	for _, res := range e.session.ExecuteScript(string(data)) {
		if res.Err != nil {
			failed++
			e.printer.PrintError(res.Err)
			continue
		}
		e.printer.PrintOutcome(res.Outcome)
	}
	if failed > 0 {
		return fmt.Errorf("%d statement(s) failed", failed)
	}
	return nil
}

var errStatementFailed = errors.New("statement failed")

func initSandbox(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := initialSeed()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	seedPath := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seedPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write seed pack: %w", err)
	}
	fmt.Fprintf(out, "Created seed pack: %s\n", seedPath)

	cfgPath := filepath.Join(dir, "sandboxdb.yaml")
	if err := config.CreateDefaultConfig(cfgPath, seedPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(out, "Created config file: %s\n", cfgPath)
	fmt.Fprintf(out, "Start the shell with: sandboxdb --config %s\n", cfgPath)
	return nil
}

// initialSeed is the built-in pack, or the --seed pack re-encoded as YAML.
func initialSeed() ([]byte, error) {
	if seedFile == "" {
		return seed.DefaultYAML(), nil
	}
	pack, err := seed.Load(seedFile)
	if err != nil {
		return nil, err
	}
	data, err := pack.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode seed pack: %w", err)
	}
	return data, nil
}
