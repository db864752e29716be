package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/attacca/attacca/internal/config"
	"github.com/attacca/attacca/internal/library"
	"github.com/attacca/attacca/internal/logging"
	"github.com/attacca/attacca/internal/perform"
	"github.com/attacca/attacca/internal/search"
	"github.com/attacca/attacca/internal/source"
	"github.com/attacca/attacca/internal/store"
	"github.com/attacca/attacca/internal/tui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	serverURL   string
	serverToken string
	setlistArg  string
	logLevel    string

	rootCmd = &cobra.Command{
		Use:   "attacca",
		Short: "Offline-first song library and performance viewer for the terminal",
		Long: "attacca keeps your song library cached locally so charts, lyrics and\n" +
			"sheet files stay available on stage, with or without a network.",
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          runTUI,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: "+config.ConfigFilePath()+")")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "content server URL")
	rootCmd.Flags().StringVar(&serverToken, "token", "", "content server bearer token")
	rootCmd.Flags().StringVarP(&setlistArg, "setlist", "s", "", "start performing the named setlist immediately")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("server.url", rootCmd.Flags().Lookup("server"))
	_ = viper.BindPFlag("server.token", rootCmd.Flags().Lookup("token"))
	_ = viper.BindPFlag("logging.level", rootCmd.Flags().Lookup("log-level"))

	rootCmd.AddCommand(configCmd, cacheCmd, manCmd)

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		} else {
			Version = "unknown (built from source)"
		}
	}
	rootCmd.Version = Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("attacca is a terminal application; stdout is not a terminal")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if serverToken != "" {
		cfg.Server.Token = serverToken
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if !cfg.IsConfigured() {
		return fmt.Errorf("no content server configured: run 'attacca config' or pass --server and --token")
	}

	logger, closeLog, err := logging.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	appearance, err := config.AppearanceFromEnv()
	if err != nil {
		return fmt.Errorf("reading appearance settings: %w", err)
	}

	st, err := store.New(cfg.CacheDir(), logger)
	if err != nil {
		return fmt.Errorf("opening cache store: %w", err)
	}
	defer st.Close()

	catalog, err := library.NewCatalog(config.DataDir())
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer catalog.Close()

	client := source.NewClient(cfg.Server.URL, cfg.Server.Token, logger)
	libSvc := library.NewService(client, catalog, logger)
	searchSvc := search.NewService(logger)

	session := perform.NewSession(st, client, logger)
	if cfg.Cache.FetchTimeoutMS > 0 {
		session.Populator().SetFetchTimeout(time.Duration(cfg.Cache.FetchTimeoutMS) * time.Millisecond)
	}
	defer session.Teardown()

	opener := tui.NewOpener(cfg.UI.Viewer, logger)

	model := tui.NewModel(libSvc, searchSvc, session, opener, appearance, logger)
	model.StartSetlist = setlistArg

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if appearance.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	logger.Info("starting attacca", "version", Version, "server", cfg.Server.URL)
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
