package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sttbench/internal/logging"
	"sttbench/internal/preflight"
	"sttbench/internal/provider"
	"sttbench/internal/results"
	"sttbench/internal/testset"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool
	var saveRaw bool

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Send every test-set recording to the STT endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.prepare(cmd, preflight.StageTranscribe)
			if err != nil {
				return err
			}
			cfg := env.cfg
			items, failures, err := testset.Scan(cfg.Paths.TestsetDir, testsetLayout(cfg.Evaluation.ReferenceExt, cfg.Evaluation.HypothesisExt))
			if err != nil {
				return err
			}
			for _, f := range failures {
				logging.FileFailure(env.logger, "test-set entry skipped", f.File, f.Reason)
			}

			client := provider.NewHTTPProvider(provider.HTTPConfig{
				Name:               cfg.Provider.Name,
				Endpoint:           cfg.Provider.Endpoint,
				APIKey:             cfg.Provider.APIKey,
				TimeoutSeconds:     cfg.Provider.TimeoutSeconds,
				InsecureSkipVerify: cfg.Provider.InsecureSkipVerify,
			})
			transcriber := &provider.Transcriber{
				Provider:      client,
				Language:      cfg.ProviderLanguage,
				HypothesisExt: cfg.Evaluation.HypothesisExt,
				Concurrency:   cfg.Provider.Concurrency,
				Overwrite:     overwrite,
				SaveRaw:       saveRaw,
				Logger:        env.logger,
			}

			return env.withStore(func(store *results.Store) error {
				run, err := store.BeginRun(env.ctx, results.KindTranscribe, client.Name())
				if err != nil {
					return err
				}
				runCtx := logging.WithRunID(env.ctx, run.ID)
				transcriber.Logger = env.runLogger(runCtx)

				summary, latencies := transcriber.Run(runCtx, items)
				summary.Failures = append(failures, summary.Failures...)

				samples := make([]results.LatencySample, 0, len(latencies))
				for _, l := range latencies {
					samples = append(samples, results.LatencySample{Provider: l.Provider, File: l.File, Duration: l.Duration})
				}
				saveCtx := context.WithoutCancel(runCtx)
				if err := store.SaveLatencies(saveCtx, run.ID, samples); err != nil {
					return err
				}
				if err := store.FinishRun(saveCtx, run.ID, summary.Processed, summary.Skipped, summary.Failed()); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				printSummary(out, "Transcription", summary)
				fmt.Fprintf(out, "%sRun: %s\n", statusIndent, run.ID)
				return env.ctx.Err()
			})
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Re-transcribe recordings that already have a hypothesis")
	cmd.Flags().BoolVar(&saveRaw, "save-raw", false, "Keep the raw provider response next to each hypothesis")
	return cmd
}
