package board

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Board geometry in cells and pixels.
const (
	Columns    = 22
	MinRows    = 6
	cellWidth  = 16
	cellHeight = 24
	cellGap    = 2
	margin     = 12
)

var codePattern = regexp.MustCompile(`^\{(\d{1,2})\}`)

var tileColors = map[int]color.RGBA{
	63: {0xd6, 0x2d, 0x20, 0xff},
	64: {0xf2, 0x87, 0x1c, 0xff},
	65: {0xf5, 0xd0, 0x20, 0xff},
	66: {0x2f, 0xa8, 0x4f, 0xff},
	67: {0x1f, 0x6f, 0xd1, 0xff},
	68: {0x8e, 0x3c, 0xc8, 0xff},
	69: {0xf4, 0xf4, 0xf4, 0xff},
	70: {0x00, 0x00, 0x00, 0xff},
	71: {0xf4, 0xf4, 0xf4, 0xff},
}

var (
	boardBackground = color.RGBA{0x16, 0x16, 0x18, 0xff}
	cellBackground  = color.RGBA{0x24, 0x24, 0x27, 0xff}
	glyphColor      = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
)

// cell is one board position: either a colour tile or a character.
type cell struct {
	tile  bool
	color color.RGBA
	char  rune
}

// layout splits board text into rows of at most Columns cells. Newlines
// start a new row; long rows wrap.
func layout(text string) [][]cell {
	var rows [][]cell
	for _, line := range strings.Split(text, "\n") {
		start := len(rows)
		var row []cell
		for len(line) > 0 {
			if m := codePattern.FindStringSubmatch(line); m != nil {
				code, _ := strconv.Atoi(m[1])
				c, ok := tileColors[code]
				if !ok {
					c = cellBackground
				}
				row = append(row, cell{tile: true, color: c})
				line = line[len(m[0]):]
			} else {
				r, size := utf8.DecodeRuneInString(line)
				row = append(row, cell{char: r})
				line = line[size:]
			}
			if len(row) == Columns {
				rows = append(rows, row)
				row = nil
			}
		}
		if row != nil || len(rows) == start {
			rows = append(rows, row)
		}
	}
	for len(rows) < MinRows {
		rows = append(rows, nil)
	}
	return rows
}

// RenderPreview draws board text as a PNG of coloured tiles and glyphs.
func RenderPreview(text string) ([]byte, error) {
	rows := layout(text)

	width := 2*margin + Columns*(cellWidth+cellGap) - cellGap
	height := 2*margin + len(rows)*(cellHeight+cellGap) - cellGap
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(boardBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for y, row := range rows {
		for x := 0; x < Columns; x++ {
			x0 := margin + x*(cellWidth+cellGap)
			y0 := margin + y*(cellHeight+cellGap)
			rect := image.Rect(x0, y0, x0+cellWidth, y0+cellHeight)

			bg := cellBackground
			var c cell
			if x < len(row) {
				c = row[x]
				if c.tile {
					bg = c.color
				}
			}
			draw.Draw(img, rect, image.NewUniform(bg), image.Point{}, draw.Src)

			if !c.tile && c.char != 0 && c.char != ' ' {
				drawGlyph(img, c.char, x0+(cellWidth-face.Advance)/2, y0+(cellHeight+face.Ascent)/2, face)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode board preview: %w", err)
	}
	return buf.Bytes(), nil
}

func drawGlyph(img *image.RGBA, r rune, x, y int, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(glyphColor),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(string(r))
}

// PreviewCache keeps the PNG of the most recent board text.
type PreviewCache struct {
	mu   sync.RWMutex
	text string
	data []byte
}

func NewPreviewCache() *PreviewCache {
	return &PreviewCache{}
}

// Get returns the preview for text, rendering it when the cached image is
// for different text.
func (c *PreviewCache) Get(text string) ([]byte, error) {
	c.mu.RLock()
	if c.data != nil && c.text == text {
		data := c.data
		c.mu.RUnlock()
		return data, nil
	}
	c.mu.RUnlock()

	data, err := RenderPreview(text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.text = text
	c.data = data
	c.mu.Unlock()
	return data, nil
}
