package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/mattn/go-sixel"
	"github.com/muesli/termenv"

	"github.com/robert-malhotra/h5view/internal/config"
)

// Protocol is how rasters reach the terminal.
type Protocol uint8

const (
	// ProtocolNone draws no rasters.
	ProtocolNone Protocol = iota
	// ProtocolCells draws two pixels per cell with the upper half block.
	ProtocolCells
	ProtocolKitty
	ProtocolITerm
	ProtocolSixel
)

func (p Protocol) String() string {
	switch p {
	case ProtocolCells:
		return "cells"
	case ProtocolKitty:
		return "kitty"
	case ProtocolITerm:
		return "iterm"
	case ProtocolSixel:
		return "sixel"
	default:
		return "none"
	}
}

// Graphics reports whether p sends PNG or sixel data instead of cells.
func (p Protocol) Graphics() bool {
	return p >= ProtocolKitty
}

// DetectProtocol picks the raster protocol for mode ("auto", "on" or "off").
// "on" always uses cells; "auto" looks for a graphics capable terminal.
func DetectProtocol(mode string, getenv func(string) string) Protocol {
	switch mode {
	case config.ImagesOff:
		return ProtocolNone
	case config.ImagesOn:
		return ProtocolCells
	}
	switch {
	case getenv("KITTY_WINDOW_ID") != "":
		return ProtocolKitty
	case getenv("TERM_PROGRAM") == "iTerm.app":
		return ProtocolITerm
	case strings.Contains(getenv("TERM"), "sixel"):
		return ProtocolSixel
	}
	return ProtocolCells
}

const asciiRamp = " .:-=+*#%@"

// halfBlocks renders img as rows of "▀" cells, the upper pixel in the
// foreground and the lower one in the background. Without colour support
// it falls back to a luminance ramp.
func halfBlocks(img *image.RGBA, profile termenv.Profile) []string {
	b := img.Bounds()
	lines := make([]string, 0, (b.Dy()+1)/2)
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var line strings.Builder
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)
			if profile == termenv.Ascii {
				line.WriteByte(asciiRamp[luma(top)*(len(asciiRamp)-1)/255])
				continue
			}
			cell := termenv.String("▀").Foreground(profile.FromColor(top))
			if y+1 < b.Max.Y {
				cell = cell.Background(profile.FromColor(img.RGBAAt(x, y+1)))
			}
			line.WriteString(cell.String())
		}
		lines = append(lines, line.String())
	}
	return lines
}

func luma(c color.RGBA) int {
	return (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
}

const kittyChunk = 4096

// kittyImage transmits and places a PNG over cols x rows cells using the
// kitty graphics protocol.
func kittyImage(png []byte, cols, rows int) string {
	data := base64.StdEncoding.EncodeToString(png)
	var b strings.Builder
	for first := true; first || data != ""; first = false {
		chunk := data[:min(kittyChunk, len(data))]
		data = data[len(chunk):]
		more := 0
		if data != "" {
			more = 1
		}
		if first {
			fmt.Fprintf(&b, "\x1b_Gf=100,a=T,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, chunk)
			continue
		}
		fmt.Fprintf(&b, "\x1b_Gm=%d;%s\x1b\\", more, chunk)
	}
	return b.String()
}

// itermImage is the iTerm2 inline image escape for a PNG.
func itermImage(png []byte, cols, rows int) string {
	return fmt.Sprintf("\x1b]1337;File=inline=1;size=%d;width=%d;height=%d;preserveAspectRatio=1:%s\a",
		len(png), cols, rows, base64.StdEncoding.EncodeToString(png))
}

// sixelImage encodes img as a DCS sixel sequence.
func sixelImage(img *image.RGBA) (string, error) {
	var out bytes.Buffer
	if err := sixel.NewEncoder(&out).Encode(img); err != nil {
		return "", fmt.Errorf("sixel: %w", err)
	}
	return out.String(), nil
}
