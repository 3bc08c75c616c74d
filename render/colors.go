package render

import "image/color"

var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Pink  = color.RGBA{R: 255, G: 0, B: 255, A: 255}

	// transparent clears the canvas overlay
	transparent = color.RGBA{}
)

// labelAlpha is the opacity of the box behind label text
const labelAlpha = 160

// withAlpha returns c as a non premultiplied color with alpha a
func withAlpha(c color.RGBA, a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}
