package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageSize    = "Legal"
	orientation = "P"
	unit        = "mm"

	margin      = 12.0
	labelWidth  = 70.0
	lineHeight  = 5.0
	cellPadding = 1.5
	headerH     = 8.0
	titleH      = 14.0
	footerY     = -10.0

	bodyFamily = "body"
	coreFamily = "Helvetica"
)

// fixedTimestamp keeps output byte-identical across runs.
var fixedTimestamp = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PDFOptions configures the writer.
type PDFOptions struct {
	// FontPath is an optional TrueType font with check-box glyphs. Without
	// it the core Helvetica font is used and the boxes are drawn as vector
	// shapes.
	FontPath string
	Creator  string
}

// Core fonts cannot encode the ballot-box glyphs. They are swapped for
// placeholder runs of equal length, which reserve the box width during line
// wrapping, and drawn as shapes when the line is written.
const (
	checkedMark   = "\x01\x01\x01\x01"
	uncheckedMark = "\x02\x02\x02\x02"
)

var coreGlyphs = strings.NewReplacer(GlyphChecked, checkedMark, GlyphUnchecked, uncheckedMark)

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	utf8   bool
	pageW  float64
	pageH  float64

	// boxes counts check boxes drawn as shapes, checked ones separately.
	boxes, checked int
}

// WritePDF renders blocks as a legal-size portrait document and returns the
// encoded bytes together with the page count.
func WritePDF(blocks []Block, title, subject string, opts PDFOptions) ([]byte, int, error) {
	w := newPDFWriter(title, subject, opts)
	pdf := w.pdf

	pdf.AddPage()
	for i, b := range blocks {
		if pdf.Err() {
			break
		}
		var next *Block
		if i+1 < len(blocks) {
			next = &blocks[i+1]
		}
		w.block(b, next)
	}
	if pdf.Err() {
		return nil, 0, &ExportError{Stage: StageRender, Err: pdf.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, &ExportError{Stage: StageRender, Err: err}
	}
	if buf.Len() == 0 {
		return nil, 0, &ExportError{Stage: StageRender, Err: errors.New("empty output")}
	}
	return buf.Bytes(), pdf.PageNo(), nil
}

func newPDFWriter(title, subject string, opts PDFOptions) *pdfWriter {
	pdf := fpdf.New(orientation, unit, pageSize, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCreationDate(fixedTimestamp)
	pdf.SetModificationDate(fixedTimestamp)
	pdf.SetCatalogSort(true)

	w := &pdfWriter{pdf: pdf}
	w.pageW, w.pageH = pdf.GetPageSize()

	if opts.FontPath != "" {
		pdf.AddUTF8Font(bodyFamily, "", opts.FontPath)
		pdf.AddUTF8Font(bodyFamily, "B", opts.FontPath)
		w.family = bodyFamily
		w.utf8 = true
		w.tr = func(s string) string { return s }
	} else {
		w.family = coreFamily
		enc := pdf.UnicodeTranslatorFromDescriptor("")
		w.tr = func(s string) string { return enc(coreGlyphs.Replace(s)) }
	}

	pdf.SetTitle(title, true)
	pdf.SetSubject(subject, true)
	if opts.Creator != "" {
		pdf.SetCreator(opts.Creator, true)
	}
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(footerY)
		pdf.SetFont(w.family, "", 8)
		pdf.SetTextColor(0x6b, 0x72, 0x80)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return w
}

func (w *pdfWriter) contentWidth() float64 { return w.pageW - 2*margin }

func (w *pdfWriter) bottom() float64 { return w.pageH - margin - lineHeight }

func (w *pdfWriter) atTop() bool { return w.pdf.GetY() <= margin+0.01 }

func (w *pdfWriter) ensure(h float64) {
	if w.pdf.GetY()+h > w.bottom() && !w.atTop() {
		w.pdf.AddPage()
	}
}

func (w *pdfWriter) block(b Block, next *Block) {
	switch b.Kind {
	case BlockTitle:
		w.title(b)
	case BlockPageBreak:
		if !w.atTop() {
			w.pdf.AddPage()
		}
	case BlockSpacer:
		if w.atTop() {
			return
		}
		if w.pdf.GetY()+b.Height > w.bottom() {
			w.pdf.AddPage()
			return
		}
		w.pdf.Ln(b.Height)
	case BlockSectionHeader:
		need := headerH
		if b.KeepWithNext && next != nil && next.Kind == BlockField {
			need += w.rowHeight(*next)
		}
		w.ensure(need)
		w.header(b)
	case BlockField:
		w.ensure(w.rowHeight(b))
		w.field(b)
	}
}

func (w *pdfWriter) title(b Block) {
	p := w.pdf
	x, y := margin, p.GetY()
	setFill(p, b.Fill)
	p.Rect(x, y, w.contentWidth(), titleH, "F")
	setText(p, b.Ink)
	p.SetFont(w.family, "B", 15)
	p.SetXY(x+3, y+2)
	p.CellFormat(w.contentWidth()-6, 6, w.tr(b.Text), "", 0, "L", false, 0, "")
	if b.Subtitle != "" {
		p.SetFont(w.family, "", 10)
		p.SetXY(x+3, y+8)
		p.CellFormat(w.contentWidth()-6, 5, w.tr("Patient: "+b.Subtitle), "", 0, "L", false, 0, "")
	}
	p.SetXY(margin, y+titleH+4)
}

func (w *pdfWriter) header(b Block) {
	p := w.pdf
	p.SetX(margin)
	setFill(p, b.Fill)
	setText(p, b.Ink)
	p.SetFont(w.family, "B", 11)
	p.CellFormat(w.contentWidth(), headerH, w.tr(b.Text), "", 1, "L", true, 0, "")
}

// lines word-wraps text to width using the current font. Measurement works
// on the encoded string so it is safe for both core and UTF-8 fonts.
func (w *pdfWriter) lines(text string, width float64) []string {
	limit := width - 2*cellPadding
	var out []string
	for _, para := range strings.Split(w.tr(text), "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			cand := word
			if line != "" {
				cand = line + " " + word
			}
			if w.pdf.GetStringWidth(cand) <= limit {
				line = cand
				continue
			}
			if line != "" {
				out = append(out, line)
			}
			line = word
			for w.pdf.GetStringWidth(line) > limit {
				head, tail := w.cut(line, limit)
				if tail == "" {
					break
				}
				out = append(out, head)
				line = tail
			}
		}
		out = append(out, line)
	}
	return out
}

// cut splits an over-long word at the last unit that still fits. Units are
// bytes for core fonts and runes for UTF-8 fonts.
func (w *pdfWriter) cut(s string, limit float64) (string, string) {
	var idx []int
	if w.utf8 {
		for i := range s {
			idx = append(idx, i)
		}
	} else {
		for i := 0; i < len(s); i++ {
			idx = append(idx, i)
		}
	}
	idx = append(idx, len(s))
	n := 1
	for n+1 < len(idx) && w.pdf.GetStringWidth(s[:idx[n+1]]) <= limit {
		n++
	}
	return s[:idx[n]], s[idx[n]:]
}

func (w *pdfWriter) rowHeight(b Block) float64 {
	p := w.pdf
	p.SetFont(w.family, "B", 9)
	ln := len(w.lines(b.Label, labelWidth))
	p.SetFont(w.family, "", 9)
	if v := len(w.lines(b.Value, w.contentWidth()-labelWidth)); v > ln {
		ln = v
	}
	return float64(ln)*lineHeight + 2*cellPadding
}

func (w *pdfWriter) field(b Block) {
	p := w.pdf
	h := w.rowHeight(b)
	x, y := margin, p.GetY()
	valueW := w.contentWidth() - labelWidth

	p.SetDrawColor(0xd1, 0xd5, 0xdb)
	setFill(p, b.LabelFill)
	p.Rect(x, y, labelWidth, h, "FD")
	setFill(p, b.Fill)
	p.Rect(x+labelWidth, y, valueW, h, "FD")

	p.SetTextColor(0x1f, 0x29, 0x37)
	p.SetFont(w.family, "B", 9)
	w.text(x, y, labelWidth, b.Label)

	setText(p, b.Ink)
	p.SetFont(w.family, "", 9)
	w.text(x+labelWidth, y, valueW, b.Value)

	p.SetXY(margin, y+h)
}

func (w *pdfWriter) text(x, y, width float64, s string) {
	for i, line := range w.lines(s, width) {
		ly := y + cellPadding + float64(i)*lineHeight
		if !w.utf8 && strings.ContainsAny(line, "\x01\x02") {
			w.markedLine(x+cellPadding, ly, line)
			continue
		}
		w.pdf.SetXY(x+cellPadding, ly)
		w.pdf.CellFormat(width-2*cellPadding, lineHeight, line, "", 0, "L", false, 0, "")
	}
}

// markedLine writes a core-font line containing box placeholders, placing
// text the way CellFormat does for a left-aligned, vertically centred cell.
func (w *pdfWriter) markedLine(x, y float64, line string) {
	p := w.pdf
	_, size := p.GetFontSize()
	cx := x + p.GetCellMargin()
	baseline := y + 0.5*lineHeight + 0.3*size

	for line != "" {
		i := strings.IndexAny(line, "\x01\x02")
		if i != 0 {
			seg := line
			if i > 0 {
				seg = line[:i]
			}
			p.Text(cx, baseline, seg)
			cx += p.GetStringWidth(seg)
			line = line[len(seg):]
			continue
		}
		mark := line[:len(checkedMark)]
		mw := p.GetStringWidth(mark)
		w.checkBox(cx, baseline, mw, size, mark == checkedMark)
		cx += mw
		line = line[len(mark):]
	}
}

// checkBox draws a square box, ticked when checked, centred in a slot of
// width slot whose text baseline is at baseline.
func (w *pdfWriter) checkBox(x, baseline, slot, fontSize float64, checked bool) {
	p := w.pdf
	side := fontSize * 0.75
	if side > slot {
		side = slot
	}
	left := x + (slot-side)/2
	top := baseline - side

	dr, dg, db := p.GetDrawColor()
	lw := p.GetLineWidth()
	r, g, b := p.GetTextColor()
	p.SetDrawColor(r, g, b)
	p.SetLineWidth(0.25)
	p.Rect(left, top, side, side, "D")
	if checked {
		p.Line(left+0.2*side, top+0.55*side, left+0.42*side, top+0.8*side)
		p.Line(left+0.42*side, top+0.8*side, left+0.85*side, top+0.2*side)
		w.checked++
	}
	w.boxes++
	p.SetLineWidth(lw)
	p.SetDrawColor(dr, dg, db)
}

func setFill(p *fpdf.Fpdf, c Color) { p.SetFillColor(int(c.R), int(c.G), int(c.B)) }

func setText(p *fpdf.Fpdf, c Color) { p.SetTextColor(int(c.R), int(c.G), int(c.B)) }
