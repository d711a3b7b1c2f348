// Package executor runs analyses.
//
// A Runner answers one question. Local runs the pipeline in the calling
// process. TemporalProxy starts the Analyze workflow on a Temporal cluster and
// waits for its result; the three pipeline stages execute as activities on
// whichever worker picks them up, see NewWorker.
//
// Traced decorates any Runner with the run level progress events: the
// received question before the run and a failure summary after a failed one.
//
// Stage failures cross the Temporal boundary as non-retryable application
// errors whose type is the stage name. TemporalProxy maps them back into
// *pipeline.StageError so callers can match them with errors.Is regardless of
// where the run executed.
package executor
