package main

import (
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/nativebridge/internal/config"
	"github.com/vango-dev/nativebridge/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals carries the state set up by the root command for every
// subcommand.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg      *config.Config
	level    *slog.LevelVar
	logger   *slog.Logger
	out      *printer
	errStyle errors.Style
}

func main() {
	g := &globals{}
	if err := newRootCmd(g).Execute(); err != nil {
		errors.WriteError(os.Stderr, err, g.errStyle)
		os.Exit(1)
	}
}

func newRootCmd(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nativebridge",
		Short: "Drive native renderers from a host node tree",
		Long: `nativebridge mirrors a host node tree into a native renderer.

It flushes the tree as mutation batches or snapshots, encodes draw
commands for every frame and polls the renderer's event ring. The CLI
runs a demo scene, records the sync traffic and replays, verifies,
inspects or uploads recordings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Config file (default: nativebridge.{json,toml,yaml} in the working directory)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default from config)")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		demoCmd(g),
		serveCmd(g),
		replayCmd(g),
		verifyCmd(g),
		inspectCmd(g),
		uploadCmd(g),
		configCmd(g),
		versionCmd(g),
	)
	return rootCmd
}

// setup loads the configuration and builds the logger and printer.
func (g *globals) setup(cmd *cobra.Command) error {
	color := !g.noColor && os.Getenv("NO_COLOR") == "" && isTerminal(cmd.OutOrStdout())
	if !color {
		errors.DisableColors()
	}
	g.out = newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), color)
	g.errStyle = errorStyle(g.logFormat, isTerminal(cmd.ErrOrStderr()))

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	g.cfg = cfg

	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	format := cfg.Log.Format
	if g.logFormat != "" {
		format = g.logFormat
	}
	g.errStyle = errorStyle(format, isTerminal(cmd.ErrOrStderr()))
	g.level = new(slog.LevelVar)
	g.level.Set(config.ParseLevel(level))
	g.logger = newLogger(cmd.ErrOrStderr(), format, g.level)
	slog.SetDefault(g.logger)
	return nil
}

func (g *globals) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.New(), nil
	}
	cfg, err := config.Load(wd)
	if stderrors.Is(err, errors.New("B051")) {
		return config.New(), nil
	}
	return cfg, err
}

func newLogger(w io.Writer, format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// errorStyle matches the final error report to the log format: JSON logs
// get a JSON error, other non-terminal output gets one line.
func errorStyle(logFormat string, terminal bool) errors.Style {
	switch {
	case logFormat == "json":
		return errors.StyleJSON
	case !terminal:
		return errors.StyleCompact
	}
	return errors.StyleText
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// isSQLite reports whether path names a SQLite recording.
func isSQLite(path string) bool {
	switch filepath.Ext(path) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
