// Package render burns caption words into video frames.
//
// A Registry resolves font ids to faces (built-in Go fonts plus configured
// font files). Layout centres a word horizontally at a fixed distance above
// the bottom edge, and DrawCaption paints an outline by stamping the glyphs at
// every offset in {-T,0,+T}² before drawing the fill on top. Renderer walks a
// FrameSource in order, consults the caption table through a cursor, and
// writes only the frames that actually change when editing in place.
package render
