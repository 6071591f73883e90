package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sttbench/internal/evaluation"
	"sttbench/internal/logging"
	"sttbench/internal/preflight"
	"sttbench/internal/report"
	"sttbench/internal/results"
	"sttbench/internal/testset"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var methods []string
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score hypotheses against reference transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			env, err := ctx.prepare(cmd, preflight.StageEvaluate)
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

			runner, err := evaluation.NewRunner(cfg, env.base)
			if err != nil {
				return err
			}
			runner.Methods = methods

			return env.withStore(func(store *results.Store) error {
				run, err := store.BeginRun(env.ctx, results.KindEvaluate, cfg.Paths.TestsetDir)
				if err != nil {
					return err
				}
				runCtx := logging.WithRunID(env.ctx, run.ID)
				runner.Logger = logging.NewComponentLogger(env.runLogger(runCtx), "evaluation")

				records, summary := runner.Run(runCtx, items)
				summary.Failures = append(failures, summary.Failures...)

				saveCtx := context.WithoutCancel(runCtx)
				if err := store.SaveRecords(saveCtx, run.ID, records); err != nil {
					return err
				}
				if err := store.FinishRun(saveCtx, run.ID, summary.Processed, summary.Skipped, summary.Failed()); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				printSummary(out, "Evaluation", summary)
				fmt.Fprintf(out, "%sRun: %s\n\n", statusIndent, run.ID)
				if err := report.Write(out, format, report.MethodTables(records)...); err != nil {
					return err
				}
				return env.ctx.Err()
			})
		},
	}

	cmd.Flags().StringSliceVar(&methods, "method", nil, "Only score the named methods (repeatable)")
	cmd.Flags().StringVar(&formatFlag, "format", "text", "Table format: text, markdown or csv")
	return cmd
}

func testsetLayout(referenceExt, hypothesisExt string) testset.Layout {
	return testset.Layout{ReferenceExt: referenceExt, HypothesisExt: hypothesisExt}
}
