package loaders

import (
	"fmt"
	"sort"

	"github.com/fzipp/bmfont"
)

type FontType int

const (
	FONT_TYPE_BITMAP FontType = iota
	FONT_TYPE_SYSTEM
)

type FontGlyph struct {
	Codepoint int32
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 int32
	Codepoint1 int32
	Amount     int16
}

type BitmapFontPage struct {
	ID   int8
	File string
}

// FontData is a bitmap font: metrics, glyphs sorted by codepoint, kernings
// sorted by pair and the atlas pages the glyphs point into.
type FontData struct {
	FontType   FontType
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     []*FontGlyph
	Kernings   []*FontKerning
	Pages      []*BitmapFontPage
}

// Glyph returns the glyph for codepoint, nil when the font lacks it.
func (fd *FontData) Glyph(codepoint int32) *FontGlyph {
	i := sort.Search(len(fd.Glyphs), func(i int) bool { return fd.Glyphs[i].Codepoint >= codepoint })
	if i < len(fd.Glyphs) && fd.Glyphs[i].Codepoint == codepoint {
		return fd.Glyphs[i]
	}
	return nil
}

// BitmapFontLoader imports AngelCode .fnt descriptors. The page images named
// by the descriptor must sit next to it.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) LoadAsset(path string) (*FontData, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("import bitmap font %s: %w", path, err)
	}
	d := font.Descriptor

	outData := &FontData{
		FontType:   FONT_TYPE_BITMAP,
		Face:       d.Info.Face,
		Size:       uint32(d.Info.Size),
		LineHeight: int32(d.Common.LineHeight),
		Baseline:   int32(d.Common.Base),
		AtlasSizeX: int32(d.Common.ScaleW),
		AtlasSizeY: int32(d.Common.ScaleH),
		Glyphs:     make([]*FontGlyph, 0, len(d.Chars)),
		Kernings:   make([]*FontKerning, 0, len(d.Kerning)),
		Pages:      make([]*BitmapFontPage, 0, len(d.Pages)),
	}

	for _, p := range d.Pages {
		outData.Pages = append(outData.Pages, &BitmapFontPage{
			ID:   int8(p.ID),
			File: p.File,
		})
	}
	sort.Slice(outData.Pages, func(i, j int) bool { return outData.Pages[i].ID < outData.Pages[j].ID })

	for _, g := range d.Chars {
		outData.Glyphs = append(outData.Glyphs, &FontGlyph{
			Codepoint: int32(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	sort.Slice(outData.Glyphs, func(i, j int) bool { return outData.Glyphs[i].Codepoint < outData.Glyphs[j].Codepoint })

	for p, k := range d.Kerning {
		outData.Kernings = append(outData.Kernings, &FontKerning{
			Codepoint0: int32(p.First),
			Codepoint1: int32(p.Second),
			Amount:     int16(k.Amount),
		})
	}
	sort.Slice(outData.Kernings, func(i, j int) bool {
		a, b := outData.Kernings[i], outData.Kernings[j]
		if a.Codepoint0 != b.Codepoint0 {
			return a.Codepoint0 < b.Codepoint0
		}
		return a.Codepoint1 < b.Codepoint1
	})

	return outData, nil
}
