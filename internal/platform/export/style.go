package export

import (
	"fmt"

	"github.com/bhis/bhis/internal/platform/document"
)

// Color is a literal sRGB colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette maps every semantic token to a literal colour.
type Palette map[document.StyleToken]Color

// DefaultPalette is the printed form's colour scheme.
var DefaultPalette = Palette{
	document.StylePrimaryAccent:           {R: 0x1d, G: 0x4e, B: 0x89},
	document.StyleSectionHeaderBackground: {R: 0x1d, G: 0x4e, B: 0x89},
	document.StyleSectionHeaderForeground: {R: 0xff, G: 0xff, B: 0xff},
	document.StyleLabelCellBackground:     {R: 0xe8, G: 0xee, B: 0xf6},
	document.StyleWarningBackground:       {R: 0xfd, G: 0xe2, B: 0xe1},
	document.StyleWarningForeground:       {R: 0x9b, G: 0x1c, B: 0x1c},
	document.StyleBodyText:                {R: 0x1f, G: 0x29, B: 0x37},
	document.StyleBodyBackground:          {R: 0xff, G: 0xff, B: 0xff},
}

// Resolve looks up a single token.
func (p Palette) Resolve(t document.StyleToken) (Color, error) {
	c, ok := p[t]
	if !ok {
		return Color{}, &ExportError{Stage: StageStyle, Err: fmt.Errorf("unknown style token %q", t)}
	}
	return c, nil
}

// ResolvedStyles is the literal colour for every token a document uses.
type ResolvedStyles map[document.StyleToken]Color

// ResolveStyles resolves every token referenced by doc up front so that
// later stages never see a semantic token.
func (p Palette) ResolveStyles(doc document.Document) (ResolvedStyles, error) {
	out := make(ResolvedStyles)
	for _, t := range doc.Tokens() {
		c, err := p.Resolve(t)
		if err != nil {
			return nil, err
		}
		out[t] = c
	}
	return out, nil
}

// colorOf returns the colour for t, or fallback when t is empty.
func (s ResolvedStyles) colorOf(t document.StyleToken, fallback Color) Color {
	if c, ok := s[t]; ok {
		return c
	}
	return fallback
}
