package render

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Font renders label text from a TTF font at any pixel size
type Font struct {
	ttf *sfnt.Font
	// BorderPx is the width of the black outline drawn around the text
	BorderPx int

	mu    sync.Mutex
	faces map[float32]font.Face
}

// NewFont parses TTF font data
func NewFont(ttf []byte) (*Font, error) {

	f, err := opentype.Parse(ttf)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	return &Font{
		ttf:      f,
		BorderPx: 1,
		faces:    make(map[float32]font.Face),
	}, nil
}

// DefaultFont returns the Go monospace font
func DefaultFont() *Font {

	f, err := NewFont(gomono.TTF)

	if err != nil {
		// the embedded font always parses
		panic(err)
	}

	return f
}

// Face returns the face for a pixel size, faces are created once per size
func (f *Font) Face(sizePx float32) (font.Face, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	if face, ok := f.faces[sizePx]; ok {
		return face, nil
	}

	// at 72 DPI a point is a pixel
	face, err := opentype.NewFace(f.ttf, &opentype.FaceOptions{
		Size:    float64(sizePx),
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("error initializing font face: %w", err)
	}

	f.faces[sizePx] = face

	return face, nil
}

// Close releases the faces
func (f *Font) Close() error {

	f.mu.Lock()
	defer f.mu.Unlock()

	var err error

	for size, face := range f.faces {
		if cerr := face.Close(); cerr != nil && err == nil {
			err = cerr
		}
		delete(f.faces, size)
	}

	return err
}
