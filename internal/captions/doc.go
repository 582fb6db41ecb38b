// Package captions maps display-text words onto video frame ranges.
//
// Align pairs the i-th whitespace-separated word of the display text with the
// i-th recognised word timing and converts its seconds into frame indices at
// the run's frame rate. The resulting Table keeps display order; Lookup and
// Cursor answer "which word is visible on frame N" with first-match-wins
// semantics when ranges overlap. A word-count mismatch between display text
// and timings is reported as a Mismatch value, never as an error.
package captions
