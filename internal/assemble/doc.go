// Package assemble turns a rendered frame sequence plus the source audio
// track into the final video.
//
// The encode writes to a partial file beside the destination and only moves
// it into place after ffmpeg exits cleanly, so a failed or cancelled run
// never leaves a truncated output behind. The finished file is probed to
// confirm it carries a video stream.
package assemble
