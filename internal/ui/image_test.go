package ui

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/config"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDetectProtocol(t *testing.T) {
	tests := []struct {
		name string
		mode string
		vars map[string]string
		want Protocol
	}{
		{"off", config.ImagesOff, map[string]string{"KITTY_WINDOW_ID": "1"}, ProtocolNone},
		{"forced cells", config.ImagesOn, map[string]string{"KITTY_WINDOW_ID": "1"}, ProtocolCells},
		{"kitty", config.ImagesAuto, map[string]string{"KITTY_WINDOW_ID": "1"}, ProtocolKitty},
		{"iterm", config.ImagesAuto, map[string]string{"TERM_PROGRAM": "iTerm.app"}, ProtocolITerm},
		{"sixel", config.ImagesAuto, map[string]string{"TERM": "xterm-sixel"}, ProtocolSixel},
		{"plain", config.ImagesAuto, map[string]string{"TERM": "xterm-256color"}, ProtocolCells},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProtocol(tt.mode, env(tt.vars)))
		})
	}
	assert.True(t, ProtocolSixel.Graphics())
	assert.False(t, ProtocolCells.Graphics())
}

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func TestHalfBlocks(t *testing.T) {
	lines := halfBlocks(checker(3, 3), termenv.TrueColor)
	require.Len(t, lines, 2)
	assert.Equal(t, 3, strings.Count(lines[0], "▀"))
	assert.Contains(t, lines[0], "\x1b[")

	ascii := halfBlocks(checker(3, 2), termenv.Ascii)
	assert.Equal(t, []string{"@ @"}, ascii)
}

func TestKittyChunks(t *testing.T) {
	png := bytes.Repeat([]byte{0xAB}, 4000) // 5336 base64 bytes
	out := kittyImage(png, 20, 10)

	assert.True(t, strings.HasPrefix(out, "\x1b_Gf=100,a=T,c=20,r=10,m=1;"))
	assert.Equal(t, 2, strings.Count(out, "\x1b_G"))
	assert.Contains(t, out, "\x1b_Gm=0;")

	single := kittyImage([]byte{1, 2, 3}, 1, 1)
	assert.Equal(t, "\x1b_Gf=100,a=T,c=1,r=1,m=0;AQID\x1b\\", single)
}

func TestITermImage(t *testing.T) {
	out := itermImage([]byte{1, 2, 3}, 4, 2)
	assert.Equal(t, "\x1b]1337;File=inline=1;size=3;width=4;height=2;preserveAspectRatio=1:AQID\a", out)
}

func TestSixel(t *testing.T) {
	out, err := sixelImage(checker(8, 7))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\x1bP"))
	assert.True(t, strings.HasSuffix(out, "\x1b\\"))
	// seven rows take two six-pixel bands
	assert.Contains(t, out, "-")
}
