package export

import (
	"strings"

	"github.com/bhis/bhis/internal/platform/document"
)

const (
	GlyphChecked   = "☑"
	GlyphUnchecked = "☐"

	// EmptyTextArea replaces a blank free-text box.
	EmptyTextArea = "N/A"

	checkSeparator = "   "
)

// Flatten returns a copy of doc in which every interactive control has been
// replaced by its textual state. The input is not modified.
func Flatten(doc document.Document) document.Document {
	out := doc.Clone()
	for i := range out.Sections {
		for j := range out.Sections[i].Fields {
			f := &out.Sections[i].Fields[j]
			if f.Control == nil {
				continue
			}
			f.Value = flattenControl(*f.Control, f.Value)
			f.Control = nil
		}
	}
	return out
}

func flattenControl(c document.Control, rendered string) string {
	switch c.Kind {
	case document.ControlSelect:
		if c.Selected == "" {
			return rendered
		}
		for _, o := range c.Options {
			if o.Value == c.Selected {
				return o.Label
			}
		}
		return c.Selected

	case document.ControlCheckbox:
		parts := make([]string, 0, len(c.Items))
		for _, it := range c.Items {
			g := GlyphUnchecked
			if it.Checked {
				g = GlyphChecked
			}
			parts = append(parts, g+" "+it.Label)
		}
		return strings.Join(parts, checkSeparator)

	case document.ControlRadio:
		// Unchosen options are dropped; with nothing chosen the group is empty.
		for _, o := range c.Options {
			if o.Value == c.Selected && c.Selected != "" {
				return GlyphChecked + " " + o.Label
			}
		}
		return ""

	case document.ControlTextArea:
		if strings.TrimSpace(c.Text) == "" {
			return EmptyTextArea
		}
		return c.Text
	}
	return rendered
}
