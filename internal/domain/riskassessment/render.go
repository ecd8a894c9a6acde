package riskassessment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bhis/bhis/internal/platform/document"
)

const (
	DefaultDocumentType = "PhilPEN"
	DefaultDateLayout   = "January 2, 2006"
	DefaultNotSpecified = "Not specified"
	DefaultNotAvailable = "N/A"
	DefaultNone         = "None"

	documentTitle = "PhilPEN Risk Assessment Form"

	// Sections before this index share the first page.
	firstPageSections = 2
)

// Section keys, in document order.
const (
	SectionAssessmentInfo     = "assessment_info"
	SectionPatientInfo        = "patient_info"
	SectionRedFlags           = "red_flags"
	SectionPastMedicalHistory = "past_medical_history"
	SectionFamilyHistory      = "family_history"
	SectionRiskFactors        = "ncd_risk_factors"
	SectionRiskScreening      = "risk_screening"
	SectionManagement         = "management"
)

// RenderOptions controls how absent values and dates are printed. Zero
// fields take the package defaults.
type RenderOptions struct {
	DocumentType string
	DateLayout   string
	NotSpecified string
	NotAvailable string
	None         string
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		DocumentType: DefaultDocumentType,
		DateLayout:   DefaultDateLayout,
		NotSpecified: DefaultNotSpecified,
		NotAvailable: DefaultNotAvailable,
		None:         DefaultNone,
	}
}

func (o RenderOptions) withDefaults() RenderOptions {
	d := DefaultRenderOptions()
	if o.DocumentType == "" {
		o.DocumentType = d.DocumentType
	}
	if o.DateLayout == "" {
		o.DateLayout = d.DateLayout
	}
	if o.NotSpecified == "" {
		o.NotSpecified = d.NotSpecified
	}
	if o.NotAvailable == "" {
		o.NotAvailable = d.NotAvailable
	}
	if o.None == "" {
		o.None = d.None
	}
	return o
}

// Render projects f into a presentation tree. f is passed by value and never
// modified; the same input always yields an identical tree.
func Render(f Form, opts RenderOptions) document.Document {
	r := renderer{opts: opts.withDefaults()}

	sections := []document.Section{
		r.assessmentInfo(f.Assessment),
		r.patientInfo(f.Patient, f.Assessment.Date),
		r.answers(SectionRedFlags, "Red Flags", f.RedFlags.items(), true),
		r.answers(SectionPastMedicalHistory, "Past Medical History", f.PastMedicalHistory.items(), false),
		r.answers(SectionFamilyHistory, "Family History", f.FamilyHistory.items(), false),
		r.riskFactors(f.RiskFactors),
		r.screening(f.Screening),
		r.management(f.Management),
	}
	for i := range sections {
		sections[i].PageBreakBefore = i >= firstPageSections
		sections[i].HeaderBackground = document.StyleSectionHeaderBackground
		sections[i].HeaderForeground = document.StyleSectionHeaderForeground
	}

	return document.Document{
		Type:     r.opts.DocumentType,
		Title:    documentTitle,
		Subject:  strings.TrimSpace(f.Patient.Name),
		Accent:   document.StylePrimaryAccent,
		Sections: sections,
	}
}

type renderer struct {
	opts RenderOptions
}

func (r renderer) assessmentInfo(a AssessmentInfo) document.Section {
	return document.Section{
		Key:   SectionAssessmentInfo,
		Title: "Assessment Information",
		Fields: []document.Field{
			r.text("Date of assessment", r.date(a.Date)),
			r.text("Health facility", r.scalar(a.HealthFacility)),
			r.text("Assessed by", r.scalar(a.AssessedBy)),
			r.selectField("Encounter type", encounterTypeOptions, a.EncounterType),
		},
	}
}

func (r renderer) patientInfo(p PatientInfo, assessedOn string) document.Section {
	return document.Section{
		Key:   SectionPatientInfo,
		Title: "Patient Information",
		Fields: []document.Field{
			r.text("Name", r.scalar(p.Name)),
			r.text("Date of birth", r.date(p.BirthDate)),
			r.text("Age", r.age(p, assessedOn)),
			r.selectField("Sex", sexOptions, p.Sex),
			r.selectField("Civil status", civilStatusOptions, p.CivilStatus),
			r.text("Address", r.scalar(p.Address)),
			r.text("Contact number", r.scalar(p.ContactNumber)),
			r.text("PhilHealth number", r.scalar(p.PhilHealthNumber)),
			r.text("Occupation", r.scalar(p.Occupation)),
			r.text("Educational attainment", r.scalar(p.EducationalAttainment)),
			r.text("Religion", r.scalar(p.Religion)),
			r.text("Ethnicity", r.scalar(p.Ethnicity)),
		},
	}
}

// answers renders a tri-state checklist. With warnOnYes set, rows answered
// yes are highlighted.
func (r renderer) answers(key, title string, items []answerItem, warnOnYes bool) document.Section {
	fields := make([]document.Field, 0, len(items))
	for _, it := range items {
		f := r.answer(it.label, it.answer)
		if warnOnYes && it.answer == AnswerYes {
			f.Background = document.StyleWarningBackground
			f.Foreground = document.StyleWarningForeground
		}
		fields = append(fields, f)
	}
	return document.Section{Key: key, Title: title, Fields: fields}
}

func (r renderer) riskFactors(rf RiskFactors) document.Section {
	bmi := r.opts.NotSpecified
	if v, ok := rf.BMI(); ok {
		bmi = fmt.Sprintf("%.1f (%s)", v, ClassifyBMI(v))
	}
	return document.Section{
		Key:   SectionRiskFactors,
		Title: "NCD Risk Factors",
		Fields: []document.Field{
			r.selectField("Tobacco use", tobaccoOptions, rf.TobaccoUse),
			r.selectField("Alcohol intake", alcoholOptions, rf.AlcoholIntake),
			r.answer("Binge drinker", rf.BingeDrinker),
			r.answer("Insufficient physical activity", rf.InsufficientActivity),
			r.answer("High fat, high salt food intake", rf.UnhealthyDiet),
			r.text("Height", r.measure(rf.HeightCM, "cm")),
			r.text("Weight", r.measure(rf.WeightKG, "kg")),
			r.text("BMI", bmi),
			r.text("Waist circumference", r.measure(rf.WaistCM, "cm")),
			r.text("Blood pressure (1st reading)", r.bloodPressure(rf.FirstBP)),
			r.text("Blood pressure (2nd reading)", r.bloodPressure(rf.SecondBP)),
		},
	}
}

func (r renderer) screening(s RiskScreening) document.Section {
	return document.Section{
		Key:   SectionRiskScreening,
		Title: "Risk Screening",
		Fields: []document.Field{
			r.answer("Presence of diabetes", s.DiabetesPresent),
			r.checklist("Diabetes symptoms", s.DMSymptoms.items()),
			r.text("Fasting blood sugar", r.lab(s.FastingBloodSugar)),
			r.text("Random blood sugar", r.lab(s.RandomBloodSugar)),
			r.text("HbA1c", r.lab(s.HbA1c)),
			r.text("Total cholesterol", r.lab(s.TotalCholesterol)),
			r.text("HDL", r.lab(s.HDL)),
			r.text("LDL", r.lab(s.LDL)),
			r.text("Triglycerides", r.lab(s.Triglycerides)),
			r.text("Urine protein", r.lab(s.UrineProtein)),
			r.text("Urine ketones", r.lab(s.UrineKetones)),
			r.text("Urine glucose", r.lab(s.UrineGlucose)),
			r.checklist("Angina questionnaire", s.Angina.items()),
			r.answer("Stroke or TIA", s.StrokeTIA),
			r.checklist("Respiratory symptoms", s.RespiratorySymptoms.items()),
			r.selectField("CVD risk level", cvdRiskOptions, s.CVDRiskLevel),
		},
	}
}

func (r renderer) management(m Management) document.Section {
	return document.Section{
		Key:   SectionManagement,
		Title: "Management",
		Fields: []document.Field{
			r.checklist("Lifestyle modification", m.Lifestyle.items()),
			r.textArea("Medications", m.Medications),
			r.text("Follow-up date", r.date(m.FollowUpDate)),
			r.text("Referral facility", r.scalar(m.ReferralFacility)),
			r.textArea("Remarks", m.Remarks),
		},
	}
}

func (r renderer) text(label, value string) document.Field {
	return document.Field{
		Label:           label,
		Value:           value,
		LabelBackground: document.StyleLabelCellBackground,
		Background:      document.StyleBodyBackground,
		Foreground:      document.StyleBodyText,
	}
}

func (r renderer) selectField(label string, opts []option, selected string) document.Field {
	value := r.opts.NotSpecified
	sel := strings.TrimSpace(selected)
	if sel != "" {
		value = sel
	}
	ctl := &document.Control{Kind: document.ControlSelect, Selected: sel}
	for _, o := range opts {
		ctl.Options = append(ctl.Options, document.Option{Value: o.value, Label: o.label})
		if o.value == sel {
			value = o.label
		}
	}
	f := r.text(label, value)
	f.Control = ctl
	return f
}

// answer renders the stored tri-state value verbatim.
func (r renderer) answer(label string, a Answer) document.Field {
	value := r.opts.NotSpecified
	if a != AnswerUnset {
		value = string(a)
	}
	ctl := &document.Control{Kind: document.ControlRadio, Selected: string(a)}
	for _, o := range answerOptions {
		ctl.Options = append(ctl.Options, document.Option{Value: o.value, Label: o.label})
	}
	f := r.text(label, value)
	f.Control = ctl
	return f
}

func (r renderer) checklist(label string, items []checkItem) document.Field {
	ctl := &document.Control{Kind: document.ControlCheckbox}
	var selected []string
	for _, it := range items {
		ctl.Items = append(ctl.Items, document.CheckItem{Label: it.label, Checked: it.checked})
		if it.checked {
			selected = append(selected, it.label)
		}
	}
	value := r.opts.None
	if len(selected) > 0 {
		value = strings.Join(selected, ", ")
	}
	f := r.text(label, value)
	f.Control = ctl
	return f
}

func (r renderer) textArea(label, text string) document.Field {
	t := strings.TrimSpace(text)
	value := r.opts.NotAvailable
	if t != "" {
		value = t
	}
	f := r.text(label, value)
	f.Control = &document.Control{Kind: document.ControlTextArea, Text: t}
	return f
}

func (r renderer) scalar(s string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return r.opts.NotSpecified
}

func (r renderer) lab(s string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return r.opts.NotAvailable
}

func (r renderer) date(s string) string {
	t, ok := parseDate(s)
	if !ok {
		return r.opts.NotSpecified
	}
	return t.Format(r.opts.DateLayout)
}

func (r renderer) age(p PatientInfo, assessedOn string) string {
	if p.Age != nil && *p.Age >= 0 {
		return strconv.Itoa(*p.Age)
	}
	born, ok := parseDate(p.BirthDate)
	if !ok {
		return r.opts.NotSpecified
	}
	on, ok := parseDate(assessedOn)
	if !ok || on.Before(born) {
		return r.opts.NotSpecified
	}
	return strconv.Itoa(yearsBetween(born, on))
}

func (r renderer) measure(v *float64, unit string) string {
	if v == nil || *v <= 0 {
		return r.opts.NotSpecified
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + " " + unit
}

func (r renderer) bloodPressure(bp BloodPressure) string {
	if bp.Systolic == nil || bp.Diastolic == nil {
		return r.opts.NotSpecified
	}
	return fmt.Sprintf("%d/%d mmHg", *bp.Systolic, *bp.Diastolic)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}
