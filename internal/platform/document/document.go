// Package document defines the presentation tree shared by the form renderers
// and the export pipeline. A Document is an ordered list of sections, each an
// ordered list of labelled fields whose values are already resolved to display
// strings. Fields may additionally describe the interactive control they were
// captured with so that exporters can flatten them into static text.
package document

// StyleToken names a semantic colour in the closed export palette.
type StyleToken string

const (
	StylePrimaryAccent           StyleToken = "primary-accent"
	StyleSectionHeaderBackground StyleToken = "section-header-background"
	StyleSectionHeaderForeground StyleToken = "section-header-foreground"
	StyleLabelCellBackground     StyleToken = "label-cell-background"
	StyleWarningBackground       StyleToken = "warning-background"
	StyleWarningForeground       StyleToken = "warning-foreground"
	StyleBodyText                StyleToken = "body-text"
	StyleBodyBackground          StyleToken = "body-background"
)

// ControlKind identifies the intake control a field was captured with.
type ControlKind string

const (
	ControlSelect   ControlKind = "select"
	ControlCheckbox ControlKind = "checkbox"
	ControlRadio    ControlKind = "radio"
	ControlTextArea ControlKind = "textarea"
)

// Option is one choice of a select or radio control.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CheckItem is one box of a checkbox control.
type CheckItem struct {
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// Control describes the interactive state of a field. Only the members
// relevant to Kind are populated.
type Control struct {
	Kind     ControlKind `json:"kind"`
	Options  []Option    `json:"options,omitempty"`
	Selected string      `json:"selected,omitempty"`
	Items    []CheckItem `json:"items,omitempty"`
	Text     string      `json:"text,omitempty"`
}

// Field is a single label/value row.
type Field struct {
	Label           string     `json:"label"`
	Value           string     `json:"value"`
	LabelBackground StyleToken `json:"label_background"`
	Background      StyleToken `json:"background"`
	Foreground      StyleToken `json:"foreground"`
	Control         *Control   `json:"control,omitempty"`
}

// Section is a titled group of fields. PageBreakBefore marks that the section
// must start on a fresh page.
type Section struct {
	Key              string     `json:"key"`
	Title            string     `json:"title"`
	PageBreakBefore  bool       `json:"page_break_before"`
	HeaderBackground StyleToken `json:"header_background"`
	HeaderForeground StyleToken `json:"header_foreground"`
	Fields           []Field    `json:"fields"`
}

// Document is the rendered, format-independent form of a clinical document.
type Document struct {
	Type     string     `json:"type"`
	Title    string     `json:"title"`
	Subject  string     `json:"subject"`
	Accent   StyleToken `json:"accent"`
	Sections []Section  `json:"sections"`
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	out.Sections = make([]Section, len(d.Sections))
	for i, s := range d.Sections {
		cs := s
		cs.Fields = make([]Field, len(s.Fields))
		for j, f := range s.Fields {
			cf := f
			if f.Control != nil {
				ctl := *f.Control
				ctl.Options = append([]Option(nil), f.Control.Options...)
				ctl.Items = append([]CheckItem(nil), f.Control.Items...)
				cf.Control = &ctl
			}
			cs.Fields[j] = cf
		}
		out.Sections[i] = cs
	}
	return out
}

// Tokens returns every style token referenced by the document, in order of
// first appearance and without duplicates.
func (d Document) Tokens() []StyleToken {
	seen := make(map[StyleToken]bool)
	var out []StyleToken
	add := func(t StyleToken) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	add(d.Accent)
	for _, s := range d.Sections {
		add(s.HeaderBackground)
		add(s.HeaderForeground)
		for _, f := range s.Fields {
			add(f.LabelBackground)
			add(f.Background)
			add(f.Foreground)
		}
	}
	return out
}

// FieldCount returns the total number of fields across all sections.
func (d Document) FieldCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Fields)
	}
	return n
}
