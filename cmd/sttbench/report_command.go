package main

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"sttbench/internal/fileutil"
	"sttbench/internal/report"
	"sttbench/internal/results"
	"sttbench/internal/stress"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var formatFlag string
	var save bool
	var list bool
	var samples bool
	var stressRun bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render aggregate tables for a stored evaluation or stress run",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := results.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if list {
				runs, err := store.Runs(cmd.Context(), "")
				if err != nil {
					return err
				}
				return report.Write(out, format, runsTable(runs))
			}

			var run *results.Run
			switch {
			case runID != "":
				run, err = store.GetRun(cmd.Context(), runID)
			case stressRun:
				run, err = store.LatestRun(cmd.Context(), results.KindStress)
			default:
				run, err = store.LatestRun(cmd.Context(), results.KindEvaluate)
			}
			if err != nil {
				return err
			}
			if run == nil {
				switch {
				case runID != "":
					return fmt.Errorf("run %s not found", runID)
				case stressRun:
					return errors.New("no finished stress run; run `sttbench stress` first")
				}
				return errors.New("no finished evaluation run; run `sttbench evaluate` first")
			}

			var tables []report.Table
			switch run.Kind {
			case results.KindEvaluate:
				records, err := store.Records(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				latencies, err := store.LatestLatencies(cmd.Context())
				if err != nil {
					return err
				}
				tables = report.MethodTables(records)
				if samples {
					tables = append(tables, report.SampleTable(records))
				}
				if len(latencies) > 0 {
					tables = append(tables, report.LatencyTable(latencies))
				}
			case results.KindStress:
				if samples {
					return fmt.Errorf("run %s is a stress run; --samples needs an evaluation run", run.ID)
				}
				calls, err := store.Calls(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				summaries := stress.Summaries(calls)
				for _, name := range slices.Sorted(maps.Keys(summaries)) {
					tables = append(tables, report.StressTable(name, summaries[name]))
				}
			default:
				return fmt.Errorf("run %s is a %s run; only evaluate and stress runs have reports", run.ID, run.Kind)
			}

			var buf bytes.Buffer
			if err := report.Write(&buf, format, tables...); err != nil {
				return err
			}
			if !save {
				_, err := out.Write(buf.Bytes())
				return err
			}
			target := filepath.Join(cfg.Paths.ReportDir, "report_"+shortID(run.ID)+format.Extension())
			if err := fileutil.WriteFileAtomic(target, buf.Bytes()); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(out, "Wrote report for run %s to %s\n", run.ID, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (defaults to the latest finished evaluation run)")
	cmd.Flags().StringVar(&formatFlag, "format", "text", "Table format: text, markdown or csv")
	cmd.Flags().BoolVar(&save, "save", false, "Write the report into paths.report_dir instead of stdout")
	cmd.Flags().BoolVar(&list, "list", false, "List stored runs")
	cmd.Flags().BoolVar(&samples, "samples", false, "Add a per-sample table with ground truth and hypothesis")
	cmd.Flags().BoolVar(&stressRun, "stress", false, "Report the latest stress run")
	return cmd
}

func runsTable(runs []results.Run) report.Table {
	t := report.Table{
		Title:   "Runs",
		Headers: []string{"ID", "Kind", "Source", "Started", "Finished", "Processed", "Skipped", "Failed"},
		Aligns: []report.Alignment{
			report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignLeft,
			report.AlignRight, report.AlignRight, report.AlignRight,
		},
	}
	for _, r := range runs {
		finished := "running"
		if r.Finished() {
			finished = r.FinishedAt.Local().Format("2006-01-02 15:04:05")
		}
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.Kind,
			r.Source,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			finished,
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
		})
	}
	return t
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
