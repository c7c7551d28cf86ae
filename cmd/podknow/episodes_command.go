package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"podknow/internal/feed"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "episodes <feed-url>",
		Short: "List a feed's episodes, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			episodes, err := feed.NewReader(logger).Fetch(runCtx, args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(episodes) > limit {
				episodes = episodes[:limit]
			}

			rows := make([][]string, 0, len(episodes))
			for i, episode := range episodes {
				published := ""
				if !episode.Published.IsZero() {
					published = episode.Published.Format("2006-01-02")
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					episode.EpisodeNumber,
					episode.Title,
					published,
					episode.Duration,
				})
			}
			printf(cmd, "%s", renderTable(
				[]string{"#", "Episode", "Title", "Published", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum episodes to list (0 for all)")
	return cmd
}
