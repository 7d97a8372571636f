package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-linkedin-scraper/internal/app"
	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/config"
	"go-linkedin-scraper/internal/logger"
	"go-linkedin-scraper/internal/notify"
	"go-linkedin-scraper/internal/scraper/linkedin"
	"go-linkedin-scraper/internal/session"

	"github.com/spf13/cobra"
)

var errAllFailed = errors.New("every url failed")

// flags holds the command line; values only override config when the flag was set.
type flags struct {
	configPath  string
	batchFile   string
	markdown    bool
	outputDir   string
	mdDir       string
	noHeadless  bool
	noProfile   bool
	concurrency int
	retries     int
	timeout     time.Duration
	logLevel    string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&flags{})
}

func buildRootCmd(f *flags) *cobra.Command {
	root := &cobra.Command{
		Use:   "scraper [url]",
		Short: "Scrape LinkedIn job postings into JSON and Markdown",
		Long: `Scrape one LinkedIn job URL or a batch file of URLs (one per line, # comments allowed).
Records are merged by id into <output>/jobs.json; -m also writes one Markdown file per job.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := f.load(cmd)
			if err != nil {
				return err
			}
			ro := f.runOptions(cfg, args)
			if ro.URL == "" && ro.BatchFile == "" {
				return cmd.Help()
			}
			return scrape(cmd, cfg, ro, log)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", config.DefaultConfigPath, "config file")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	fl := root.Flags()
	fl.StringVar(&f.batchFile, "batch", "", "file with one job URL per line")
	fl.BoolVarP(&f.markdown, "markdown", "m", false, "also write one Markdown file per job")
	fl.StringVarP(&f.outputDir, "output", "o", "", "directory for jobs.json")
	fl.StringVar(&f.mdDir, "md-dir", "", "directory for Markdown files (default: output directory)")
	fl.BoolVar(&f.noHeadless, "no-headless", false, "show the browser window")
	fl.BoolVar(&f.noProfile, "no-profile", false, "scrape anonymously even if a profile exists")
	fl.IntVar(&f.concurrency, "concurrency", 0, "parallel browser contexts")
	fl.IntVar(&f.retries, "retries", 0, "retries per URL for timeouts and navigation errors")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-page timeout")

	root.AddCommand(
		newSetupProfileCmd(f),
		newImportCookiesCmd(f),
		newResetProfileCmd(f),
	)
	return root
}

func newSetupProfileCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-profile",
		Short: "Open a visible browser to log in and save the session profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := f.load(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🔐 Log in to LinkedIn in the opened window, then close it to save the profile.")
			if err := session.New(cfg.ProfilePath, linkedin.LoginURL, browser.Launch, log).SetupProfile(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Profile saved to %s\n", cfg.ProfilePath)
			return nil
		},
	}
}

func newImportCookiesCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "import-cookies FILE",
		Short: "Create the session profile from an exported cookies JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := f.load(cmd)
			if err != nil {
				return err
			}
			return session.New(cfg.ProfilePath, linkedin.LoginURL, browser.Launch, log).ImportCookies(args[0])
		},
	}
}

func newResetProfileCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-profile",
		Short: "Delete the saved session profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := f.load(cmd)
			if err != nil {
				return err
			}
			return session.New(cfg.ProfilePath, linkedin.LoginURL, browser.Launch, log).ResetProfile()
		},
	}
}

// load reads config, applies the flags that were set and builds the logger.
func (f *flags) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	f.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat), nil
}

func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("output") {
		cfg.OutputDir = f.outputDir
	}
	if changed("md-dir") {
		cfg.MarkdownDir = f.mdDir
	}
	if changed("markdown") {
		cfg.WriteMarkdown = f.markdown
	}
	if changed("no-headless") && f.noHeadless {
		cfg.Headless = false
	}
	if changed("no-profile") && f.noProfile {
		cfg.UseProfile = false
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("retries") {
		cfg.Retries = f.retries
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

func (f *flags) runOptions(cfg *config.Config, args []string) config.RunOptions {
	ro := config.RunOptions{
		BatchFile:   f.batchFile,
		Markdown:    cfg.WriteMarkdown,
		OutputDir:   cfg.OutputDir,
		MarkdownDir: cfg.MarkdownDir,
		Headless:    cfg.Headless,
	}
	if len(args) > 0 {
		ro.URL = args[0]
	}
	return ro
}

func scrape(cmd *cobra.Command, cfg *config.Config, ro config.RunOptions, log *slog.Logger) error {
	var opts []app.Option
	if cfg.NotifyEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Warn("⚠️ Telegram disabled", slog.Any("error", err))
		} else {
			opts = append(opts, app.WithNotifier(tg))
		}
	}

	runner := app.NewRunner(cfg, browser.Launch, log, opts...)
	if cfg.UseProfile && !runner.Sessions().ProfileExists() {
		log.Warn("⚠️ No saved profile, scraping anonymously. Run `scraper setup-profile` to log in.")
	}

	out, err := runner.Run(cmd.Context(), ro, nil)
	if out != nil && out.Report != nil {
		out.Report.Summary(cmd.OutOrStdout())
		if out.Merge.Total > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "💾 %s: %d added, %d updated, %d total\n",
				out.JSONPath, out.Merge.Added, out.Merge.Updated, out.Merge.Total)
		}
		for _, name := range out.MarkdownFiles {
			fmt.Fprintf(cmd.OutOrStdout(), "📝 %s\n", name)
		}
	}
	if err != nil {
		return err
	}
	if out.Report.AllFailed() {
		return errAllFailed
	}
	return nil
}
