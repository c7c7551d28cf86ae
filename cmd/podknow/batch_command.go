package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"podknow/internal/seencache"
	"podknow/internal/workflow"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var maxPerFeed int
	var skipAnalysis bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process new episodes from every configured subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Subscriptions) == 0 {
				return fmt.Errorf("no subscriptions configured; add them under `subscriptions:` in the config file")
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}

			seen, err := seencache.Open(filepath.Join(cfg.Paths.CacheDir, "seen_episodes.json"), logger)
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			batch := workflow.NewBatch(
				buildProcessor(cfg, logger),
				seen,
				filepath.Join(cfg.Paths.CacheDir, "batch.lock"),
				cfg.Download.Concurrency,
				logger,
			)
			summary, err := batch.Run(runCtx, cfg.Subscriptions, workflow.BatchOptions{
				MaxPerFeed: maxPerFeed,
				Workflow: workflow.Options{
					SkipAnalysis: skipAnalysis,
					// Interleaved progress bars are unreadable; batch is
					// always quiet per download.
					Quiet: true,
				},
			})
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(summary.Outcomes))
			for _, outcome := range summary.Outcomes {
				status := "ok"
				detail := outcome.OutputPath
				if outcome.Err != nil {
					status = "failed"
					detail = outcome.Err.Error()
				}
				rows = append(rows, []string{outcome.Subscription, outcome.Episode.Title, status, detail})
			}
			if len(rows) > 0 {
				printf(cmd, "%s", renderTable(
					[]string{"Subscription", "Episode", "Status", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			}
			printf(cmd, "processed %d, failed %d, already seen %d", summary.Processed, summary.Failed, summary.Skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPerFeed, "max-per-feed", 1, "Maximum new episodes to process per subscription")
	cmd.Flags().BoolVar(&skipAnalysis, "skip-analysis", false, "Render transcription-only documents")
	return cmd
}
