// Command campaigner is the terminal client for the campaign content
// lifecycle: onboard a brand, generate multi-channel content from a prompt,
// save it as a campaign and publish it to social platforms.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"campaigner/cmd/campaigner/ui"
	"campaigner/internal/config"
	"campaigner/internal/logging"
	"campaigner/internal/store"
	"campaigner/internal/studio"
	"campaigner/internal/usage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootOptions holds the global flags.
type rootOptions struct {
	verbose    bool
	configPath string
	apiURL     string
	timeout    time.Duration
}

// app is what every command runs against, opened lazily per invocation.
type app struct {
	cfg     *config.Config
	store   *store.LocalStore
	tracker *usage.Tracker
	studio  *studio.Studio
	render  *ui.Renderer
	out     io.Writer
	logger  *zap.Logger

	// status receives the spinner while a service call is out; spin is
	// false when it is not a terminal or verbose logs share it.
	status io.Writer
	spin   bool
}

// newRootCmd builds the command tree. The returned func releases whatever
// the invoked command opened and must run after Execute.
func newRootCmd() (*cobra.Command, func()) {
	opts := &rootOptions{}
	var a *app

	rootCmd := &cobra.Command{
		Use:   "campaigner",
		Short: "Generate, save and publish multi-channel marketing campaigns",
		Long: `campaigner drives the campaign content lifecycle from the terminal.

  1. onboard   register your brand profile and start a session
  2. generate  ask the generation service for Twitter, LinkedIn, email and blog copy
  3. save      keep the generated draft as a campaign (or discard it)
  4. publish   post a saved campaign to a platform

Session, draft and publish history are kept in .campaigner/ between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = openApp(cmd, opts)
			return err
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: ./.campaigner/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Service base URL (overrides config and CAMPAIGNER_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Operation timeout")

	getApp := func() *app { return a }
	rootCmd.AddCommand(
		newOnboardCmd(getApp),
		newWhoamiCmd(getApp),
		newLogoutCmd(getApp),
		newGenerateCmd(getApp),
		newDiscardCmd(getApp),
		newSaveCmd(getApp),
		newListCmd(getApp),
		newShowCmd(getApp),
		newPublishCmd(getApp),
		newStatusCmd(getApp),
		newUsageCmd(getApp),
	)
	closeApp := func() {
		if a != nil {
			a.Close()
			a = nil
		}
	}
	return rootCmd, closeApp
}

func main() {
	rootCmd, closeApp := newRootCmd()
	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		r := ui.NewRenderer(!isTerminal(os.Stderr))
		fmt.Fprintln(os.Stderr, r.Error(err))
		os.Exit(1)
	}
}

// openApp loads config, sets up logging and opens local state.
func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, out: cmd.OutOrStdout()}
	if err := a.initLogging(opts.verbose); err != nil {
		return nil, err
	}
	logging.Boot("campaigner %s: config=%s api=%s", cmd.Name(), path, cfg.API.BaseURL)

	a.store, err = store.NewLocalStore(cfg.Store.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.tracker, err = usage.NewTracker(filepath.Dir(cfg.Store.Path))
	if err != nil {
		a.Close()
		return nil, err
	}
	// Saved explicitly on Close; a CLI run is too short for the debounce.
	a.tracker.SetAutoSaveDelay(0)

	a.studio, err = studio.New(cfg, a.store, a.tracker)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.render = ui.NewRenderer(os.Getenv("NO_COLOR") != "" || !isTerminal(a.out))
	a.status = cmd.ErrOrStderr()
	a.spin = !opts.verbose && isTerminal(a.status)
	return a, nil
}

func (a *app) initLogging(verbose bool) error {
	lc := a.cfg.Logging
	if lc.DebugMode {
		return logging.Initialize(logging.Options{
			Dir:        lc.Dir,
			Level:      lc.Level,
			JSONFormat: lc.Format == "json",
			DebugMode:  true,
			Categories: lc.Categories,
		})
	}
	if !verbose {
		return logging.Initialize(logging.Options{})
	}

	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	zc.OutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	logging.Use(logger)
	return nil
}

// Close persists counters and releases local state.
func (a *app) Close() {
	if a.tracker != nil {
		if err := a.tracker.Save(); err != nil {
			logging.Get(logging.CategoryUsage).Warn("Failed to save usage: %v", err)
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	logging.CloseAll()
}

// commandContext bounds a command by --timeout and cancels it on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil || timeout <= 0 {
		timeout = 2 * time.Minute
	}
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// waitOn runs fn behind a spinner labelled label.
func (a *app) waitOn(label string, fn func() error) error {
	return ui.WithSpinner(a.status, a.spin, label, a.render.Styles, fn)
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// joinArgs joins command-line arguments into a single string.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
