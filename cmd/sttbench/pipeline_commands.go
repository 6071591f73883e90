package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sttbench/internal/chunking"
	"sttbench/internal/curation"
	"sttbench/internal/logging"
	"sttbench/internal/noise"
	"sttbench/internal/preflight"
	"sttbench/internal/sampling"
)

func newNoiseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "noise",
		Short: "Mix the master noise track into every dataset recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.prepare(cmd, preflight.StageNoise)
			if err != nil {
				return err
			}
			jobs, failures, err := noise.Plan(env.cfg.Paths.DatasetDir, env.cfg.Paths.NoisyDir, env.cfg.Noise.LevelsPercent)
			if err != nil {
				return err
			}
			for _, f := range failures {
				logging.FileFailure(env.logger, "dataset entry skipped", f.File, f.Reason)
			}
			env.logger.Info("noise mixing started", logging.Int("jobs", len(jobs)))

			summary := noise.NewRunner(env.cfg, env.logger).Run(env.ctx, jobs)
			summary.Failures = append(failures, summary.Failures...)
			printSummary(cmd.OutOrStdout(), "Noise", summary)
			return env.ctx.Err()
		},
	}
}

func newChunkCommand(ctx *commandContext) *cobra.Command {
	var sizes []float64

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Cut noisy audio and transcripts into fixed-length chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.prepare(cmd, preflight.StageChunk)
			if err != nil {
				return err
			}
			sources, failures, err := chunking.Discover(env.cfg.Paths.NoisyDir, env.cfg.Paths.DatasetDir, env.cfg.Chunking.TranscriptSuffixes)
			if err != nil {
				return err
			}
			for _, f := range failures {
				logging.FileFailure(env.logger, "source skipped", f.File, f.Reason)
			}

			runner := chunking.NewRunner(env.cfg, env.logger)
			if len(sizes) > 0 {
				runner.Sizes = sizes
			}
			env.logger.Info("chunking started",
				logging.Int("sources", len(sources)),
				logging.Any("sizes_seconds", runner.Sizes),
			)

			summary := runner.Run(env.ctx, sources)
			summary.Failures = append(failures, summary.Failures...)
			printSummary(cmd.OutOrStdout(), "Chunking", summary)
			return env.ctx.Err()
		},
	}

	cmd.Flags().Float64SliceVar(&sizes, "size", nil, "Chunk size in seconds (repeatable; overrides chunking.chunk_sizes_seconds)")
	return cmd
}

func newSampleCommand(ctx *commandContext) *cobra.Command {
	var perCategory int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw a stratified sample of chunks per chunk size",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.prepare(cmd, preflight.StageSample)
			if err != nil {
				return err
			}
			sampler := sampling.NewSampler(env.cfg, env.logger)
			if cmd.Flags().Changed("per-category") {
				if perCategory <= 0 {
					return fmt.Errorf("--per-category must be positive")
				}
				sampler.PerCategory = perCategory
			}
			if cmd.Flags().Changed("seed") {
				sampler.Seed = seed
			}

			manifest, summary, err := sampler.Run(env.ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSummary(out, "Sampling", summary)
			fmt.Fprintf(out, "%sSeed: %d\n", statusIndent, manifest.Seed)
			for _, category := range manifest.Categories {
				fmt.Fprintf(out, "%s%s: %d of %d\n", statusIndent, category.Name, len(category.Samples), category.Available)
			}
			return env.ctx.Err()
		},
	}

	cmd.Flags().IntVar(&perCategory, "per-category", 0, "Samples per category (overrides sampling.per_category)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 seeds from the clock)")
	return cmd
}

func newTestsetCommand(ctx *commandContext) *cobra.Command {
	var perCategory int
	var seed uint64
	var suite string
	var redraw bool

	cmd := &cobra.Command{
		Use:   "testset",
		Short: "Sort transcribed chunks into language and condition categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.prepare(cmd, preflight.StageTestset)
			if err != nil {
				return err
			}
			metadata, dropped, err := curation.LoadMetadata(env.cfg.Testset.MetadataFile)
			if err != nil {
				return err
			}
			if dropped > 0 {
				env.logger.Warn("metadata entries without a video ID skipped", logging.Int("count", dropped))
			}
			builder := curation.NewBuilder(env.cfg, metadata, env.logger)
			if cmd.Flags().Changed("per-category") {
				if perCategory < 0 {
					return fmt.Errorf("--per-category must not be negative")
				}
				builder.PerCategory = perCategory
			}
			if cmd.Flags().Changed("seed") {
				builder.Seed = seed
			}
			if cmd.Flags().Changed("suite") {
				suite = strings.TrimSpace(suite)
				if suite == "" || strings.ContainsAny(suite, `/\`) {
					return fmt.Errorf("--suite must be a plain folder name")
				}
				builder.Suite = suite
			}
			builder.Redraw = redraw

			selection, reused, summary, err := builder.Run(env.ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSummary(out, "Test set", summary)
			if reused {
				fmt.Fprintf(out, "%sSelection: reused %s\n", statusIndent, builder.SelectionPath())
			} else {
				fmt.Fprintf(out, "%sSeed: %d\n", statusIndent, selection.Seed)
			}
			for _, category := range selection.Categories {
				fmt.Fprintf(out, "%s%s: %d of %d\n", statusIndent, category.Name, len(category.Entries), category.Available)
			}
			return env.ctx.Err()
		},
	}

	cmd.Flags().IntVar(&perCategory, "per-category", 0, "Chunks per category, 0 for all (overrides testset.per_category)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 seeds from the clock)")
	cmd.Flags().StringVar(&suite, "suite", "", "Suite folder (overrides testset.suite)")
	cmd.Flags().BoolVar(&redraw, "redraw", false, "Ignore the stored selection and draw again")
	return cmd
}
