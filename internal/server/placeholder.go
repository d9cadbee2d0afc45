package server

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"

	"picstore/internal/sniff"
)

const placeholderSize = 128

// Placeholder is the asset served when no stored image matches a request.
type Placeholder struct {
	Content   []byte
	MediaType string
}

var (
	builtinPlaceholderOnce sync.Once
	builtinPlaceholder     Placeholder
	builtinPlaceholderErr  error
)

// LoadPlaceholder reads the asset at path, or returns the built-in PNG when path is empty.
func LoadPlaceholder(path string) (Placeholder, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultPlaceholder()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Placeholder{}, fmt.Errorf("read placeholder: %w", err)
	}
	detected, err := sniff.Detect(content)
	if err != nil {
		return Placeholder{}, fmt.Errorf("placeholder %s: %w", path, err)
	}
	return Placeholder{Content: content, MediaType: detected.MediaType}, nil
}

func defaultPlaceholder() (Placeholder, error) {
	builtinPlaceholderOnce.Do(func() {
		img := image.NewNRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
		background := color.NRGBA{R: 0xd9, G: 0xdd, B: 0xe3, A: 0xff}
		figure := color.NRGBA{R: 0x9a, G: 0xa3, B: 0xae, A: 0xff}
		center := placeholderSize / 2
		for y := 0; y < placeholderSize; y++ {
			for x := 0; x < placeholderSize; x++ {
				c := background
				dx, dy := x-center, y-center*3/4
				if dx*dx+dy*dy <= 22*22 {
					c = figure
				}
				bx, by := x-center, y-placeholderSize
				if bx*bx+by*by <= 48*48 {
					c = figure
				}
				img.SetNRGBA(x, y, c)
			}
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			builtinPlaceholderErr = err
			return
		}
		builtinPlaceholder = Placeholder{Content: buf.Bytes(), MediaType: "image/png"}
	})
	return builtinPlaceholder, builtinPlaceholderErr
}
