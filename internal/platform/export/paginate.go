package export

import (
	"fmt"

	"github.com/bhis/bhis/internal/platform/document"
)

// BlockKind identifies a layout unit.
type BlockKind string

const (
	BlockTitle         BlockKind = "title"
	BlockSectionHeader BlockKind = "section_header"
	BlockField         BlockKind = "field"
	BlockSpacer        BlockKind = "spacer"
	BlockPageBreak     BlockKind = "page_break"
)

// DefaultSpacerHeight is the gap, in millimetres, inserted ahead of the
// sections listed in SpacerBefore.
const DefaultSpacerHeight = 6.0

// SpacerBefore lists section keys that get a spacer so their header is not
// left alone at the bottom of a page.
var SpacerBefore = map[string]bool{
	"past_medical_history": true,
	"risk_screening":       true,
}

// Block is one item of the flat layout stream handed to the PDF writer.
// Colours are literal by the time a Block exists.
type Block struct {
	Kind BlockKind

	// Title and section header.
	Text     string
	Subtitle string
	Fill     Color
	Ink      Color

	// Field rows.
	Label     string
	Value     string
	LabelFill Color

	// Spacer height in millimetres.
	Height float64

	// KeepWithNext asks the writer to move the block to a new page rather
	// than separate it from the block that follows.
	KeepWithNext bool
}

// Paginate lays out a flattened document as a block stream, applying the
// renderer's page-break markers and the fixed spacers.
func Paginate(doc document.Document, styles ResolvedStyles) ([]Block, error) {
	accent, ok := styles[doc.Accent]
	if !ok && doc.Accent != "" {
		return nil, &ExportError{Stage: StagePaginate, Err: fmt.Errorf("unresolved style token %q", doc.Accent)}
	}
	white := Color{R: 0xff, G: 0xff, B: 0xff}
	black := Color{}

	blocks := []Block{{
		Kind:     BlockTitle,
		Text:     doc.Title,
		Subtitle: doc.Subject,
		Fill:     accent,
		Ink:      white,
	}}

	for i, s := range doc.Sections {
		if s.PageBreakBefore && i > 0 {
			blocks = append(blocks, Block{Kind: BlockPageBreak})
		}
		if SpacerBefore[s.Key] {
			blocks = append(blocks, Block{Kind: BlockSpacer, Height: DefaultSpacerHeight})
		}
		blocks = append(blocks, Block{
			Kind:         BlockSectionHeader,
			Text:         s.Title,
			Fill:         styles.colorOf(s.HeaderBackground, accent),
			Ink:          styles.colorOf(s.HeaderForeground, white),
			KeepWithNext: len(s.Fields) > 0,
		})
		for _, f := range s.Fields {
			if f.Control != nil {
				return nil, &ExportError{Stage: StagePaginate, Err: fmt.Errorf("field %q was not flattened", f.Label)}
			}
			blocks = append(blocks, Block{
				Kind:      BlockField,
				Label:     f.Label,
				Value:     f.Value,
				LabelFill: styles.colorOf(f.LabelBackground, white),
				Fill:      styles.colorOf(f.Background, white),
				Ink:       styles.colorOf(f.Foreground, black),
			})
		}
	}
	return blocks, nil
}
