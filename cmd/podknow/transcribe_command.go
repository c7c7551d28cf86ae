package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"podknow/internal/transcription"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var skipLanguageDetection bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a local audio file and print the transcript",
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

			audioPath := args[0]
			if _, err := os.Stat(audioPath); err != nil {
				return fmt.Errorf("audio file %s: %w", audioPath, err)
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			transcriber := transcription.NewService(transcription.Config{
				Binary:            cfg.Transcription.Binary,
				Model:             cfg.Transcription.Model,
				AcceptedLanguages: cfg.Transcription.AcceptedLanguages,
				EnforceLanguage:   cfg.Transcription.EnforceLanguage,
			}, logger)

			if !skipLanguageDetection && !cfg.Transcription.SkipDetection {
				detected, err := transcriber.DetectLanguage(runCtx, audioPath)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "language detection failed, continuing: %v\n", err)
				} else if err := transcriber.Gate(detected); err != nil {
					return err
				}
			}

			transcript, err := transcriber.Transcribe(runCtx, audioPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "language: %s, confidence: %.2f, segments: %d\n",
				transcript.Language, transcript.Confidence, len(transcript.Segments))
			printf(cmd, "%s", strings.Join(transcript.Paragraphs(), "\n\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipLanguageDetection, "skip-language-detection", false, "Bypass the language gate")
	return cmd
}
