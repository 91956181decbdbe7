// SentimentVision gathers news about tracked companies, scores its sentiment
// from each company's perspective and tags it by topic.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"SentimentVision/internal/app"
	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/logging"
	"SentimentVision/internal/usecase"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sentimentvision",
	Short:         "News gathering, client-perspective sentiment scoring and topic tagging",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("config-dir")
		loaded, err := config.Load(dir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logger = logging.New(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config-dir", "", "configuration directory (default: ./config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(gatherCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(retagCmd)
	rootCmd.AddCommand(refetchCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(daemonCmd)
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts app.Options, fn func(context.Context, *app.Application) error) error {
	ctx := cmd.Context()
	application, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	logger.Info("run started", "command", cmd.CommandPath(), "run_id", application.RunID())
	return fn(ctx, application)
}

// --- Gather Command ---

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Fetch global and client sources and store new articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := cmd.Flags().GetString("client")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		analyze, _ := cmd.Flags().GetBool("analyze")

		return withApp(cmd, app.Options{Offline: dryRun}, func(ctx context.Context, a *app.Application) error {
			return a.Gather(ctx, app.GatherOptions{Client: client, DryRun: dryRun, Analyze: analyze})
		})
	},
}

func init() {
	gatherCmd.Flags().String("client", "", "only gather for this client")
	gatherCmd.Flags().Bool("dry-run", false, "fetch without storing anything")
	gatherCmd.Flags().Bool("analyze", false, "score new articles after gathering")
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score sentiment for articles that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.Application) error {
			return a.Analyze(ctx)
		})
	},
}

// --- Tag Commands ---

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Tag articles that have no tags yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := cmd.Flags().GetString("client")
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.Application) error {
			return a.Tag(ctx, client)
		})
	},
}

var retagCmd = &cobra.Command{
	Use:   "retag",
	Short: "Clear and recompute tags after the catalog changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := cmd.Flags().GetString("client")
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.Application) error {
			return a.Retag(ctx, client)
		})
	},
}

func init() {
	tagCmd.Flags().String("client", "", "only tag this client's articles")
	retagCmd.Flags().String("client", "", "only retag this client's articles")
}

// --- Refetch Command ---

var refetchCmd = &cobra.Command{
	Use:   "refetch",
	Short: "Download content for articles stored without text",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.Application) error {
			return a.Refetch(ctx)
		})
	},
}

// --- Daemon Command ---

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Gather and score on a fixed interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.Application) error {
			return a.RunDaemon(ctx, interval)
		})
	},
}

func init() {
	daemonCmd.Flags().Duration("interval", 0, "time between runs (default: schedule.interval)")
}

// --- Tags Commands ---

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage the tag catalog",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := cmd.Flags().GetString("client")
		return withCatalog(cmd, func(ctx context.Context, c *usecase.Catalog) error {
			tags, err := c.List(ctx, client)
			if err != nil {
				return err
			}
			printTags(cmd, tags)
			return nil
		})
	},
}

var tagsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keywords, _ := cmd.Flags().GetStringSlice("keywords")
		tagType, _ := cmd.Flags().GetString("type")
		client, _ := cmd.Flags().GetString("client")
		method, _ := cmd.Flags().GetString("method")
		color, _ := cmd.Flags().GetString("color")

		return withCatalog(cmd, func(ctx context.Context, c *usecase.Catalog) error {
			id, err := c.Add(ctx, usecase.TagInput{
				Name:        args[0],
				Type:        domain.TagType(strings.ToLower(tagType)),
				Client:      client,
				Keywords:    keywords,
				MatchMethod: domain.MatchMethod(strings.ToLower(method)),
				Color:       color,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created tag %d\n", id)
			return nil
		})
	},
}

var tagsEnableCmd = &cobra.Command{
	Use:   "enable ID",
	Short: "Enable a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var tagsDisableCmd = &cobra.Command{
	Use:   "disable ID",
	Short: "Disable a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a tag and its assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCatalog(cmd, func(ctx context.Context, c *usecase.Catalog) error {
			return c.Delete(ctx, id)
		})
	},
}

var tagsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create catalog entries from the seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.Application) error {
			n, err := a.SeedTags(ctx, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d tags\n", n)
			return nil
		})
	},
}

func init() {
	tagsListCmd.Flags().String("client", "", "only list this client's tags")

	tagsAddCmd.Flags().StringSlice("keywords", nil, "comma-separated keywords")
	tagsAddCmd.Flags().String("type", string(domain.TagCustom), "tag type (esg, custom)")
	tagsAddCmd.Flags().String("client", "", "scope the tag to this client")
	tagsAddCmd.Flags().String("method", string(domain.MatchKeyword), "match method (keyword, ai)")
	tagsAddCmd.Flags().String("color", "", "display color")
	_ = tagsAddCmd.MarkFlagRequired("keywords")

	tagsSeedCmd.Flags().String("file", "", "seed file (default: tagging.seed_file)")

	tagsCmd.AddCommand(tagsListCmd, tagsAddCmd, tagsEnableCmd, tagsDisableCmd, tagsDeleteCmd, tagsSeedCmd)
}

func withCatalog(cmd *cobra.Command, fn func(context.Context, *usecase.Catalog) error) error {
	return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.Application) error {
		c, err := a.Catalog()
		if err != nil {
			return err
		}
		return fn(ctx, c)
	})
}

func setEnabled(cmd *cobra.Command, raw string, enabled bool) error {
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	return withCatalog(cmd, func(ctx context.Context, c *usecase.Catalog) error {
		return c.SetEnabled(ctx, id, enabled)
	})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tag id %q", raw)
	}
	return id, nil
}

func printTags(cmd *cobra.Command, tags []domain.Tag) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSCOPE\tMETHOD\tENABLED\tKEYWORDS")
	for _, t := range tags {
		scope := string(t.Scope)
		if t.ClientID != nil {
			scope = fmt.Sprintf("%s:%d", t.Scope, *t.ClientID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
			t.ID, t.Name, t.Type, scope, t.MatchMethod, t.Enabled, strings.Join(t.Keywords, ", "))
	}
	_ = w.Flush()
}
