package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podknow/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var skipAnalysis bool
	var skipLanguageDetection bool

	cmd := &cobra.Command{
		Use:   "process <feed-url> [episode]",
		Short: "Process one episode end to end: download, transcribe, analyze, render",
		Long: `Process one episode from an RSS feed. The optional episode argument is
tried as an iTunes episode number first, then as a 1-based feed position,
then as a title substring. Without it the newest episode is processed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}

			identifier := ""
			if len(args) > 1 {
				identifier = args[1]
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			processor := buildProcessor(cfg, logger)
			result, err := processor.ProcessFeed(runCtx, args[0], identifier, workflow.Options{
				SkipAnalysis:          skipAnalysis,
				SkipLanguageDetection: skipLanguageDetection,
				Quiet:                 ctx.quiet() || !stderrIsTerminal(),
			})
			if err != nil {
				// A failure past the milestone steps is worth a breakdown;
				// an early one is just the error.
				if result != nil && result.State != nil && result.State.Recoverable() {
					for _, step := range result.State.Completed {
						fmt.Fprintf(cmd.ErrOrStderr(), "completed before failure: %s\n", step)
					}
				}
				return err
			}

			printf(cmd, "Processed %q", result.Episode.Title)
			printf(cmd, "  output:   %s", result.OutputPath)
			printf(cmd, "  language: %s", result.Transcript.Language)
			if result.AnalysisMeta != nil {
				printf(cmd, "  analysis: %s (fallback used: %s)",
					result.AnalysisMeta["provider_used"], result.AnalysisMeta["fallback_used"])
			}
			for _, warning := range result.State.Warnings {
				printf(cmd, "  warning [%s]: %s", warning.Step, warning.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipAnalysis, "skip-analysis", false, "Render a transcription-only document")
	cmd.Flags().BoolVar(&skipLanguageDetection, "skip-language-detection", false, "Bypass the language gate")
	return cmd
}
