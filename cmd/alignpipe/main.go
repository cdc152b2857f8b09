// Package main provides the entry point for the alignpipe CLI.
//
// alignpipe runs the model alignment workflow as a fixed sequence of external
// scripts: data preparation, baseline evaluation, QLoRA training and
// evaluation, optional DPO training and evaluation, and result comparison.
// The first failing stage stops the run.
//
// Usage:
//
//	alignpipe [--include_dpo] [--skip_<stage> ...]
//	alignpipe history
//
// See --help for all available options.
package main

// main is the entry point for alignpipe.
func main() {
	Execute()
}
