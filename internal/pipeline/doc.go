// Package pipeline runs the alignment stages in their fixed order.
//
// Plan turns a configuration into the seven planned stages (data
// preparation, baseline evaluation, QLoRA training and evaluation, optional
// DPO training and evaluation, comparison), each marked enabled or skipped.
// DefaultPipeline wraps every planned stage in a StageStep and the Pipeline
// executes them one after another, stopping at the first failure.
//
// The pipeline is strictly sequential: one stage process is outstanding at a
// time, and stages coordinate only through the files they leave on disk.
package pipeline
