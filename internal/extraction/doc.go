// Package extraction defines the contract with the out-of-process frame
// extraction worker and provides the FFmpeg implementation.
//
// The Backend interface models the worker as a black box: submit a batch of
// sheet commands, receive a job id, then observe completion through either a
// per-job event channel or progress polling. FFmpegBackend implements it by
// running one ffmpeg invocation per sheet (select/scale/tile filters)
// through a bounded worker pool.
//
// FFprobeProber obtains authoritative duration and frame rate; callers fall
// back to their own estimates when probing fails.
//
// FFmpeg and FFprobe must be installed and available in the system PATH.
package extraction
