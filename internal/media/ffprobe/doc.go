// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no visiogen-specific dependencies.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties, including frame rates
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Parse: decodes captured ffprobe JSON
//
// Helper methods on Result provide stream lookup, frame-rate parsing of
// rational strings such as "30000/1001", and duration/bitrate extraction.
package ffprobe
