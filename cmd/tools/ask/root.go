// cmd/tools/ask/root.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"query-orchestrator/internal/app"
	"query-orchestrator/internal/common/config"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/models"
)

type askOptions struct {
	configPath string
	propertyID string
	jsonOutput bool
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &askOptions{}

	rootCmd := &cobra.Command{
		Use:           "ask <question>",
		Short:         "Answer an analytics or SEO question from the command line",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question must not be empty")
			}

			a, err := buildApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			q := models.NewQuery(question, opts.propertyID)
			start := time.Now()
			resp := a.Orchestrator.Answer(ctx, q)
			if a.Audit != nil {
				a.Audit.Observe(ctx, q, resp, time.Since(start))
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printResponse(out, resp)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	rootCmd.Flags().StringVarP(&opts.propertyID, "property-id", "p", "", "GA4 property ID")
	rootCmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the raw response as JSON")

	rootCmd.AddCommand(newAuditCommand(opts))

	return rootCmd
}

func newAuditCommand(opts *askOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent answered queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Audit == nil {
				return errors.New("query audit is not configured (database.postgres.host)")
			}
			entries, err := a.Audit.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printAudit(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func buildApp(ctx context.Context, opts *askOptions) (*app.App, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.NewNoOpLogger()
	if opts.verbose {
		log = logger.NewZapAdapter(logger.NewWithOptions(logger.Options{
			Level:  cfg.Logging.Level,
			Format: "console",
			Output: "stderr",
		}))
	}
	return app.New(ctx, cfg, log)
}
