package document

import "testing"

func sampleDocument() Document {
	return Document{
		Type:   "PhilPEN",
		Title:  "Risk Assessment",
		Accent: StylePrimaryAccent,
		Sections: []Section{
			{
				Key:              "patient",
				Title:            "Patient",
				HeaderBackground: StyleSectionHeaderBackground,
				HeaderForeground: StyleSectionHeaderForeground,
				Fields: []Field{
					{Label: "Name", Value: "Juan", LabelBackground: StyleLabelCellBackground, Foreground: StyleBodyText},
					{
						Label: "Sex", Value: "Male", LabelBackground: StyleLabelCellBackground, Foreground: StyleBodyText,
						Control: &Control{Kind: ControlRadio, Options: []Option{{Value: "M", Label: "Male"}}, Selected: "M"},
					},
				},
			},
			{
				Key:              "risk",
				Title:            "Risk",
				PageBreakBefore:  true,
				HeaderBackground: StyleWarningBackground,
				HeaderForeground: StyleWarningForeground,
				Fields: []Field{
					{
						Label: "Smoker", Background: StyleWarningBackground,
						Control: &Control{Kind: ControlCheckbox, Items: []CheckItem{{Label: "Yes", Checked: true}}},
					},
				},
			},
		},
	}
}

func TestClone_IsDeep(t *testing.T) {
	d := sampleDocument()
	c := d.Clone()

	c.Sections[0].Title = "changed"
	c.Sections[0].Fields[0].Value = "changed"
	c.Sections[0].Fields[1].Control.Options[0].Label = "changed"
	c.Sections[1].Fields[0].Control.Items[0].Checked = false

	if d.Sections[0].Title != "Patient" || d.Sections[0].Fields[0].Value != "Juan" {
		t.Error("section or field shared with clone")
	}
	if d.Sections[0].Fields[1].Control.Options[0].Label != "Male" {
		t.Error("radio options shared with clone")
	}
	if !d.Sections[1].Fields[0].Control.Items[0].Checked {
		t.Error("checkbox items shared with clone")
	}
}

func TestTokens_OrderedAndUnique(t *testing.T) {
	got := sampleDocument().Tokens()
	want := []StyleToken{
		StylePrimaryAccent,
		StyleSectionHeaderBackground,
		StyleSectionHeaderForeground,
		StyleLabelCellBackground,
		StyleBodyText,
		StyleWarningBackground,
		StyleWarningForeground,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestFieldCount(t *testing.T) {
	if n := sampleDocument().FieldCount(); n != 3 {
		t.Errorf("expected 3 fields, got %d", n)
	}
	if n := (Document{}).FieldCount(); n != 0 {
		t.Errorf("expected 0 fields, got %d", n)
	}
}
