// Package whisperapi calls an OpenAI-compatible /v1/audio/transcriptions
// endpoint and returns word-level timings.
//
// Requests use multipart/form-data with response_format=verbose_json and
// timestamp_granularities[]=word. Servers that only nest words under segments
// are handled as well.
package whisperapi
