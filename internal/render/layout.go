package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Style controls how a caption word is painted.
type Style struct {
	Face             font.Face
	Fill             color.Color
	Outline          color.Color
	OutlineThickness int
	BottomOffset     int
}

// DefaultStyle returns white text with a 4px black outline, 200px above the
// bottom edge.
func DefaultStyle(face font.Face) Style {
	return Style{
		Face:             face,
		Fill:             color.White,
		Outline:          color.Black,
		OutlineThickness: 4,
		BottomOffset:     200,
	}
}

// Placement is where a word is drawn on a frame.
type Placement struct {
	// Dot is the baseline origin handed to the font drawer.
	Dot image.Point
	// Width is the measured ink width of the text.
	Width int
	// Bounds covers the glyph ink at Dot, padded by one pixel for antialiasing.
	Bounds image.Rectangle
}

// Layout centres text horizontally and puts its baseline bottomOffset pixels
// above the bottom edge.
func Layout(face font.Face, text string, frameWidth, frameHeight, bottomOffset int) Placement {
	bounds, _ := font.BoundString(face, text)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()

	x := (frameWidth-textWidth)/2 - bounds.Min.X.Floor()
	y := frameHeight - bottomOffset

	ink := image.Rect(
		x+bounds.Min.X.Floor(), y+bounds.Min.Y.Floor(),
		x+bounds.Max.X.Ceil(), y+bounds.Max.Y.Ceil(),
	)
	return Placement{
		Dot:    image.Pt(x, y),
		Width:  textWidth,
		Bounds: ink.Inset(-1),
	}
}

// TouchedRegion is the area DrawCaption may modify for this placement.
func (p Placement) TouchedRegion(thickness int) image.Rectangle {
	return p.Bounds.Inset(-max(thickness, 0))
}

// DrawCaption paints text onto dst: outline passes at every offset in
// {-T,0,+T}×{-T,0,+T}, then the fill at offset zero.
func DrawCaption(dst draw.Image, text string, style Style) Placement {
	size := dst.Bounds().Size()
	placement := Layout(style.Face, text, size.X, size.Y, style.BottomOffset)
	placement.Dot = placement.Dot.Add(dst.Bounds().Min)
	placement.Bounds = placement.Bounds.Add(dst.Bounds().Min)

	drawer := &font.Drawer{Dst: dst, Face: style.Face}
	if t := style.OutlineThickness; t > 0 && style.Outline != nil {
		drawer.Src = image.NewUniform(style.Outline)
		for _, dx := range []int{-t, 0, t} {
			for _, dy := range []int{-t, 0, t} {
				drawer.Dot = fixed.P(placement.Dot.X+dx, placement.Dot.Y+dy)
				drawer.DrawString(text)
			}
		}
	}

	fill := style.Fill
	if fill == nil {
		fill = color.White
	}
	drawer.Src = image.NewUniform(fill)
	drawer.Dot = fixed.P(placement.Dot.X, placement.Dot.Y)
	drawer.DrawString(text)
	return placement
}
