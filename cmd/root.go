// Package cmd holds the portfolio-digest command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/app"
	"github.com/JakeFAU/vc-portfolio-digest/internal/config"
	"github.com/JakeFAU/vc-portfolio-digest/internal/logging"
)

// runFunc executes one digest run. It is a variable so tests can observe the
// resolved configuration without touching the network.
type runFunc func(ctx context.Context, cfg config.Config, logger *zap.Logger, seed string) error

var runDigest runFunc = func(ctx context.Context, cfg config.Config, logger *zap.Logger, seed string) (err error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("shutdown incomplete", zap.Error(cerr))
		}
	}()
	_, err = a.Run(ctx, seed)
	return err
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "portfolio-digest [flags] <vc_portfolio_url>",
		Short: "Summarize every company in a venture portfolio.",
		Long: `portfolio-digest opens a VC portfolio page, collects the company links,
crawls each company's site within a small page and time budget, and writes a
short and a long AI summary per company to short_summaries.csv and
long_summaries.docx. Progress is saved after every company, so an interrupted
run resumes where it stopped.`,
		SilenceUsage: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				cmd.PrintErrln(cmd.UsageString())
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush
			return runDigest(cmd.Context(), cfg, logger, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.Bool("skip-discovery", false, "reuse company_urls.txt instead of scanning the portfolio page")
	flags.Int("max-pages", 0, "pages with content to collect per company")
	flags.String("api-addr", "", "serve the operator API (status, metrics) on this address")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("output-dir", "", "directory for caches, progress and ledgers")
	return cmd
}

// Execute runs the command line with stdout/stderr and returns the process
// exit code. SIGINT and SIGTERM cancel the run; an interrupted run still
// exits 0 with progress saved.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		return 1
	}
	return 0
}
