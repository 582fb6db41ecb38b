// Package whisperx runs WhisperX through uvx and converts its aligned JSON
// output into word timings.
//
// Configuration options (model, CUDA, VAD method, language hint) are passed
// via Config. Commands go through an injectable runner so tests can stand in
// for uvx and write canned JSON.
package whisperx
