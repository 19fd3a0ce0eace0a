package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Johannes-Berggren/goblinswitch/internal/config"
	"github.com/Johannes-Berggren/goblinswitch/internal/git"
	"github.com/Johannes-Berggren/goblinswitch/internal/logging"
	"github.com/Johannes-Berggren/goblinswitch/internal/switcher"
	"github.com/Johannes-Berggren/goblinswitch/internal/telemetry"
	"github.com/Johannes-Berggren/goblinswitch/internal/ui"
	"github.com/Johannes-Berggren/goblinswitch/internal/watch"
)

var version = "dev"

func init() {
	// Query the background color before the program owns the terminal, or
	// the reply can show up as typed input.
	_ = lipgloss.HasDarkBackground()
}

// NewRootCmd builds the goblinswitch command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	v := viper.New()

	root := &cobra.Command{
		Use:   "goblinswitch [path]",
		Short: "Switch git branches from the terminal",
		Long: `goblinswitch lists the local branches of a repository, most recently
committed first, and checks out the selected one with live progress.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v.Set("path", args[0])
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./.goblinswitch.toml or ~/.config/goblinswitch/config.toml)")

	flags := root.Flags()
	flags.StringP("path", "p", "", "repository path (default: current directory)")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("log-file", "", "log file (default: ~/.goblinswitch/goblinswitch.log)")
	flags.String("trace-file", "", "write OpenTelemetry spans to this file")
	flags.String("remote", "", "remote to fetch from")

	_ = v.BindPFlag("path", flags.Lookup("path"))
	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindPFlag("log_file", flags.Lookup("log-file"))
	_ = v.BindPFlag("trace_file", flags.Lookup("trace-file"))
	_ = v.BindPFlag("git.remote", flags.Lookup("remote"))

	root.AddCommand(newConfigCmd(&cfgFile))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logFile, err := logPath(cfg)
	if err != nil {
		return err
	}
	closer, err := logging.Init(logFile, cfg.Debug)
	if err != nil {
		return err
	}
	defer closer.Close()

	shutdownTracing, err := telemetry.Setup(cfg.TraceFile, version)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}()

	// Fail before taking over the terminal when there is no repository.
	gitDir, err := git.FindGitDir(cfg.Path)
	if err != nil {
		return err
	}
	log.Info().Str("path", cfg.Path).Str("git_dir", gitDir).Str("version", version).Msg("starting")

	keyMap := switcher.DefaultKeyMap()
	keys := ui.NewKeys()
	program := tea.NewProgram(ui.NewScreen(keys), tea.WithAltScreen())
	renderer := ui.NewRenderer(program, keyMap, cfg.UI.ProgressWidth)

	open := func() (switcher.Repository, error) {
		repo, err := git.Discover(cfg.Path, cfg.GitOptions())
		if err != nil {
			return nil, err
		}
		log.Info().Str("root", repo.Root()).Str("remote", repo.RemoteName()).Msg("discovered repository")
		return repo, nil
	}
	engine := switcher.New(open, keys, renderer, switcher.Options{
		EventBuffer:   cfg.Engine.EventBuffer,
		WorkBuffer:    cfg.Engine.WorkBuffer,
		ProgressRate:  cfg.Engine.ProgressRate,
		ShutdownGrace: cfg.Engine.ShutdownGrace,
		ShowStatus:    cfg.UI.ShowStatus,
		Remote:        cfg.Git.Remote,
		Keys:          &keyMap,
	}, log.Logger)

	if cfg.UI.WatchRefs {
		engine.AddProducer(refsProducer(gitDir))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- engine.Run(ctx)
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		keys.Close()
		<-engineErr
		return fmt.Errorf("run terminal ui: %w", err)
	}
	keys.Close()

	if err := <-engineErr; err != nil {
		return err
	}
	log.Info().Msg("bye")
	return nil
}

// refsProducer runs the refs watcher; a watcher failure only disables
// automatic refresh.
func refsProducer(gitDir string) switcher.Producer {
	w := watch.NewRefs(gitDir, watch.DefaultDebounce, log.Logger)
	return func(ctx context.Context, events chan<- switcher.Event) error {
		if err := w.Run(ctx, events); err != nil {
			log.Warn().Err(err).Msg("refs watcher stopped")
		}
		return nil
	}
}

func logPath(cfg config.Config) (string, error) {
	if cfg.LogFile != "" {
		return cfg.LogFile, nil
	}
	dir, err := config.EnsureDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "goblinswitch.log"), nil
}
