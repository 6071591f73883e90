// Package main hosts the sttbench CLI.
//
// Each pipeline stage is a subcommand: noise mixes the dataset with the master
// noise track, chunk cuts noisy audio and its transcript into fixed windows,
// sample draws a stratified subset, testset sorts chunks into language and
// condition folders, transcribe sends a test set to the STT endpoint, stress
// load-tests that endpoint, evaluate scores hypotheses against references and
// report renders stored results. Batch commands keep going past per-file failures and exit
// non-zero only when setup fails.
package main
