// Package ffmpeg wraps the ffmpeg invocations the caption pipeline needs:
// audio extraction for transcription, frame extraction into a numbered image
// sequence, and re-encoding that sequence with the original audio.
//
// Commands run through a Runner so tests can capture arguments without an
// ffmpeg binary. Failures are classified with services markers: a non-zero
// exit becomes ErrExternalTool carrying the stderr tail, an expired deadline
// becomes ErrTimeout.
package ffmpeg
