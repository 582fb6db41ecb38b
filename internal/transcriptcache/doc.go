// Package transcriptcache persists word timings in SQLite so re-running a job
// on the same audio skips transcription.
//
// Entries are keyed by the SHA-256 of the extracted audio plus provider,
// model, and language, so changing any of them forces a fresh transcript.
package transcriptcache
