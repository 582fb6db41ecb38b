package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor parses "#rgb", "#rrggbb", or "#rrggbbaa" into an opaque or
// alpha-carrying RGBA colour.
func ParseHexColor(value string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]}) + "ff"
	case 6:
		s += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("colour %q: expected #rgb, #rrggbb or #rrggbbaa", value)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q: %w", value, err)
	}
	return color.RGBA{
		R: uint8(n >> 24),
		G: uint8(n >> 16),
		B: uint8(n >> 8),
		A: uint8(n),
	}, nil
}

// FillRGBA returns the parsed caption fill colour.
func (c *Config) FillRGBA() color.RGBA {
	rgba, err := ParseHexColor(c.Render.FillColor)
	if err != nil {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return rgba
}

// OutlineRGBA returns the parsed caption outline colour.
func (c *Config) OutlineRGBA() color.RGBA {
	rgba, err := ParseHexColor(c.Render.OutlineColor)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return rgba
}
