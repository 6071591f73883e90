package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sttbench/internal/logging"
	"sttbench/internal/preflight"
	"sttbench/internal/provider"
	"sttbench/internal/report"
	"sttbench/internal/results"
	"sttbench/internal/stress"
	"sttbench/internal/testset"
)

func newStressCommand(ctx *commandContext) *cobra.Command {
	var stages []int
	var durationSeconds int

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Load-test the STT endpoint at increasing concurrency",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.prepare(cmd, preflight.StageStress)
			if err != nil {
				return err
			}
			cfg := env.cfg
			stressCfg := cfg.Stress
			if cmd.Flags().Changed("stages") {
				stressCfg.Stages = stages
			}
			if cmd.Flags().Changed("duration") {
				stressCfg.StageDurationSeconds = durationSeconds
			}
			for _, c := range stressCfg.Stages {
				if c <= 0 {
					return fmt.Errorf("stage concurrency %d must be positive", c)
				}
			}

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
			}, provider.WithRetryMaxAttempts(1))
			method := provider.MethodName(client.Name())
			tester := &stress.Tester{
				Transcriber: &provider.Transcriber{Provider: client, Language: cfg.ProviderLanguage},
				Stages:      stress.Stages(stressCfg),
			}

			return env.withStore(func(store *results.Store) error {
				run, err := store.BeginRun(env.ctx, results.KindStress, client.Name())
				if err != nil {
					return err
				}
				runCtx := logging.WithRunID(env.ctx, run.ID)
				tester.Logger = env.runLogger(runCtx)

				calls, runErr := tester.Run(runCtx, items)
				samples := stress.Samples(method, calls)
				failed := 0
				for _, s := range samples {
					if s.Err != "" {
						failed++
					}
				}
				saveCtx := context.WithoutCancel(runCtx)
				if err := store.SaveLatencies(saveCtx, run.ID, samples); err != nil {
					return err
				}
				if err := store.FinishRun(saveCtx, run.ID, len(samples)-failed, 0, failed); err != nil {
					return err
				}
				if runErr != nil {
					return runErr
				}

				out := cmd.OutOrStdout()
				summaries := stress.Summaries(samples)
				if err := report.Write(out, report.FormatText, report.StressTable(method, summaries[method])); err != nil {
					return err
				}
				fmt.Fprintf(out, "%sRun: %s\n", statusIndent, run.ID)
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVar(&stages, "stages", nil, "Concurrency per stage (overrides stress.stages)")
	cmd.Flags().IntVar(&durationSeconds, "duration", 0, "Seconds per stage (overrides stress.stage_duration_seconds)")
	return cmd
}
