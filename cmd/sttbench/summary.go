package main

import (
	"fmt"
	"io"
	"strconv"

	"sttbench/internal/batch"
)

// maxListedFailures caps the failure lines printed after a batch summary; the
// full list is in the log file.
const maxListedFailures = 20

func printSummary(out io.Writer, title string, summary batch.Summary) {
	colorize := colorEnabled(out)
	for _, line := range sectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, statusLine("Processed", statusOK, strconv.Itoa(summary.Processed), colorize))
	fmt.Fprintln(out, statusLine("Skipped", statusInfo, strconv.Itoa(summary.Skipped), colorize))
	failedKind := statusOK
	if summary.Failed() > 0 {
		failedKind = statusError
	}
	fmt.Fprintln(out, statusLine("Failed", failedKind, strconv.Itoa(summary.Failed()), colorize))

	for i, failure := range summary.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(out, "%s... %d more\n", statusIndent, len(summary.Failures)-i)
			break
		}
		fmt.Fprintf(out, "%s%s: %s\n", statusIndent, failure.File, failure.Reason)
	}
}
