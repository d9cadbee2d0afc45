// Package sniff identifies image payloads by their leading bytes.
package sniff

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnknownFormat is returned when no registered decoder recognises the payload.
var ErrUnknownFormat = errors.New("unrecognised image format")

// DefaultAccepted is the media type set accepted for storage.
var DefaultAccepted = []string{"image/jpeg", "image/jpg", "image/png"}

var mediaTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// Result describes a recognised image.
type Result struct {
	Format    string
	MediaType string
	Width     int
	Height    int
}

// Detect reads only the image header; the client-declared content type is never consulted.
func Detect(content []byte) (Result, error) {
	if len(content) == 0 {
		return Result{}, ErrUnknownFormat
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Result{}, ErrUnknownFormat
		}
		return Result{}, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	mediaType, ok := mediaTypes[format]
	if !ok {
		mediaType = "image/" + format
	}
	return Result{
		Format:    format,
		MediaType: mediaType,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}

// AcceptedSet is a subset of DefaultAccepted.
type AcceptedSet map[string]struct{}

// NewAcceptedSet keeps the configured media types that belong to
// DefaultAccepted and falls back to DefaultAccepted when none remain.
func NewAcceptedSet(mediaTypes []string) AcceptedSet {
	set := make(AcceptedSet)
	for _, value := range mediaTypes {
		value = strings.ToLower(strings.TrimSpace(value))
		if !slices.Contains(DefaultAccepted, value) {
			continue
		}
		set[value] = struct{}{}
	}
	if len(set) == 0 {
		for _, value := range DefaultAccepted {
			set[value] = struct{}{}
		}
	}
	return set
}

// Contains reports whether mediaType belongs to the set.
func (s AcceptedSet) Contains(mediaType string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(mediaType))]
	return ok
}
