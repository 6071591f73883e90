package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sttbench/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, directories and the STT endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var results []preflight.Result
			if stage == "" {
				results = preflight.RunAll(cmd.Context(), cfg)
			} else {
				results = preflight.RunFor(cmd.Context(), cfg, preflight.Stage(stage))
			}

			out := cmd.OutOrStdout()
			colorize := colorEnabled(out)
			for _, line := range sectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			failed := 0
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, statusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "Only run the checks for one stage (noise, chunk, sample, testset, transcribe, stress, evaluate)")
	return cmd
}
