// Command visiogen burns word-timed captions into a video.
//
// The run subcommand probes the source, obtains word timestamps from the
// configured transcription provider, aligns the display text to frames,
// draws each word onto its frames, and re-encodes the result with the audio
// track. Helper subcommands preview alignment, list fonts, inspect
// configuration, report dependency status, and manage scratch and cache
// state.
package main
