// Package transcribe selects and decorates the word timestamp source.
//
// Source is the boundary between the pipeline and whichever speech
// recognizer is configured (local WhisperX or a Whisper-compatible HTTP API).
// Cached wraps any Source with the SQLite transcript cache.
package transcribe
