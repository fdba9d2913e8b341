package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/app"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/indexer"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ally-index",
		Short: "Contract and policy indexing tool",
		Long: `CLI tool for building the contract and policy indexes used by the legal assistant.

Settings come from an optional YAML file (--config) and are overridden by
environment variables:
  SEARCH_BACKEND  qdrant or memory (default: qdrant)
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  LLM_PROVIDER    openai or azure (default: openai)
  OPENAI_API_KEY  OpenAI API key (required for openai)
  REDIS_ADDR      Redis address for the embedding cache (optional)`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(opts),
		newDocumentsCmd(opts),
		newPoliciesCmd(opts),
		newStatusCmd(opts),
		newReportCmd(opts),
	)
	return root
}

// withApp builds the application for one command and ensures both indexes exist.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app.App) error) error {
	cfg, err := app.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.EnsureIndexes(ctx); err != nil {
		return err
	}
	return fn(a)
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the document and policy indexes if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Indexes ready: %s, %s\n",
					a.Config.Search.DocumentIndex, a.Config.Search.PolicyIndex)
				return nil
			})
		},
	}
}

func newDocumentsCmd(opts *rootOptions) *cobra.Command {
	var (
		mode  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Index every contract in the document folder",
		Long: `Extracts clauses from every contract in the document folder, embeds them and
uploads them to the document index.

Files that already have records are skipped unless --force is given.
Interrupting the run stops it after the file in flight.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "" && mode != config.ModeChunk && mode != config.ModeParagraph {
				return fmt.Errorf("--mode must be %s or %s", config.ModeChunk, config.ModeParagraph)
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Indexing documents from %s...\n", a.Config.Indexing.DocumentFolder)
				res, err := a.Job.IndexDocuments(cmd.Context(), indexer.JobOptions{Force: force, Mode: mode})
				if err != nil {
					return fmt.Errorf("indexing failed: %w", err)
				}
				printResult(out, "Records", res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "indexing mode: chunk or paragraph (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "re-index files that are already indexed")
	return cmd
}

func newPoliciesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "Index every policy in the policy folder",
		Long: `Extracts one policy from every file in the policy folder and uploads it to the
policy index. Policies are not de-duplicated: running twice stores every
policy twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Indexing policies from %s...\n", a.Config.Indexing.PolicyFolder)
				res, err := a.Job.IndexPolicies(cmd.Context())
				if err != nil {
					return fmt.Errorf("indexing failed: %w", err)
				}
				printResult(out, "Policies", res)
				return nil
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <filename>",
		Short: "Show whether a contract is indexed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				n, err := a.Documents.IndexedCount(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if n == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not indexed\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: indexed (%d records)\n", args[0], n)
				return nil
			})
		},
	}
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <filename>",
		Short: "Print the compliance report of a contract as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				report, err := a.Compliance.Report(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
}

func printResult(out io.Writer, label string, res *indexer.IndexResult) {
	fmt.Fprintln(out)
	if res.Cancelled {
		fmt.Fprintln(out, "Indexing cancelled!")
	} else {
		fmt.Fprintln(out, "Indexing complete!")
	}
	fmt.Fprintf(out, "  Documents: %d/%d\n", res.Indexed, res.TotalDocs)
	fmt.Fprintf(out, "  %s: %d\n", label, res.Records)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, "  Skipped (already indexed): %d\n", len(res.Skipped))
	}
	fmt.Fprintf(out, "  Duration: %s\n", res.Duration.Round(time.Second))

	if len(res.FailedDocs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed documents:")
		for _, failed := range res.FailedDocs {
			fmt.Fprintf(out, "  - %s: %s\n", failed.Filename, failed.Reason)
		}
	}
}
