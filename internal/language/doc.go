// Package language normalizes the language hints handed to transcription
// providers.
//
// Inputs arrive as ISO 639-1 codes, ISO 639-2 codes, BCP 47 tags pulled from
// container metadata, or plain English words ("english"). Everything is
// reduced to the two-letter base code WhisperX and Whisper-compatible APIs
// expect.
package language
