// Package deps reports whether the external binaries a run shells out to
// (ffmpeg, ffprobe, and uvx for WhisperX) are installed.
package deps
