// Package pipeline sequences one captioning run: probe the source, extract
// audio, obtain word timestamps, align captions, extract and render frames,
// then assemble the output.
//
// The Controller owns the scratch workspace for the whole run. Every exit
// path, including cancellation, removes the extracted audio and frame files
// before the error is returned, because the next run reuses the same paths.
package pipeline
