package riskassessment

import (
	"time"

	"github.com/google/uuid"
)

// Assessment is a saved form, optionally linked to a registered patient.
type Assessment struct {
	ID        uuid.UUID  `json:"id"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Form      Form       `json:"form"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// mergePatient fills blank demographic fields of dst from src. Values the
// assessor typed in are kept.
func mergePatient(dst *PatientInfo, src PatientInfo) {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.Name, src.Name)
	fill(&dst.BirthDate, src.BirthDate)
	fill(&dst.Sex, src.Sex)
	fill(&dst.CivilStatus, src.CivilStatus)
	fill(&dst.Address, src.Address)
	fill(&dst.ContactNumber, src.ContactNumber)
	fill(&dst.PhilHealthNumber, src.PhilHealthNumber)
	fill(&dst.Occupation, src.Occupation)
	fill(&dst.EducationalAttainment, src.EducationalAttainment)
	fill(&dst.Religion, src.Religion)
	fill(&dst.Ethnicity, src.Ethnicity)
	if dst.Age == nil && src.Age != nil {
		age := *src.Age
		dst.Age = &age
	}
}

// MergePrefill fills the blanks of f from a server pre-filled form: the
// patient demographics and the assessment date.
func MergePrefill(f, pre Form) Form {
	mergePatient(&f.Patient, pre.Patient)
	if f.Assessment.Date == "" {
		f.Assessment.Date = pre.Assessment.Date
	}
	return f
}
