// Package preflight provides readiness checks for the binaries, directories
// and STT endpoint sttbench depends on.
//
// `sttbench check` runs every check and prints the results; the batch
// commands run RunFor with only the checks their stage needs and refuse to
// start when one fails.
package preflight
