// Command h5view explores HDF5 files in the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/internal/config"
	"github.com/robert-malhotra/h5view/internal/raster"
	"github.com/robert-malhotra/h5view/internal/tree"
	"github.com/robert-malhotra/h5view/internal/ui"
)

var errNotTerminal = errors.New("stdout is not a terminal; use `h5view ls` for plain output")

func main() {
	var (
		configPath string
		startPath  string
	)

	rootCmd := &cobra.Command{
		Use:           "h5view <file>",
		Short:         "Browse the groups, datasets and images of an HDF5 file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplorer(cmd.Context(), configPath, args[0], startPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default $XDG_CONFIG_HOME/h5view/config.yaml)")
	rootCmd.Flags().StringVar(&startPath, "path", "", "Expand and select this path on start")

	rootCmd.AddCommand(newListCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "h5view:", err)
		os.Exit(1)
	}
}

// newLogger writes JSON records to the configured log file. The terminal
// belongs to the UI, so a file that cannot be opened disables logging.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err == nil {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), func() { f.Close() }
		}
	}
	return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}
}

func runExplorer(ctx context.Context, configPath, filename, startPath string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errNotTerminal
	}

	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()
	slog.SetDefault(logger)
	for _, w := range warnings {
		logger.Warn("config", "warning", w)
	}

	t, f, err := tree.Open(filename, logger,
		tree.WithPageChildren(cfg.Tree.PageChildren),
		tree.WithLinks(cfg.OpenOptions()...))
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pipe := raster.New(raster.FileSource(filename, logger, cfg.OpenOptions()...), raster.Config{
		QueueDepth: cfg.Raster.QueueDepth,
		Gray:       cfg.Gray(),
		Logger:     logger,
	})
	pipe.Start(ctx)
	defer pipe.Close()

	logger.Info("explorer started", "file", filename, "path", startPath)
	m := ui.New(t, ui.FileStore(f), pipe, ui.Options{
		Config:  cfg,
		Logger:  logger,
		Profile: termenv.NewOutput(os.Stdout).EnvColorProfile(),
		Path:    startPath,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("running explorer: %w", err)
	}
	logger.Info("explorer stopped", "nodes", t.Len(), "loads", t.Loads())
	return nil
}
