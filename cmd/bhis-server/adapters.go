package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bhis/bhis/internal/domain/patient"
	"github.com/bhis/bhis/internal/domain/riskassessment"
)

type patientGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// patientProfiles adapts the patient registry to riskassessment.PatientProfiles
// so neither domain package imports the other.
type patientProfiles struct {
	patients patientGetter
	now      func() time.Time
}

func newPatientProfiles(p patientGetter) *patientProfiles {
	return &patientProfiles{patients: p, now: time.Now}
}

func (a *patientProfiles) Profile(ctx context.Context, id uuid.UUID) (riskassessment.PatientInfo, error) {
	p, err := a.patients.Get(ctx, id)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return riskassessment.PatientInfo{}, riskassessment.ErrPatientNotFound
		}
		return riskassessment.PatientInfo{}, err
	}

	info := riskassessment.PatientInfo{
		Name:          p.FullName,
		Sex:           p.Gender,
		CivilStatus:   p.CivilStatus,
		Address:       p.Address,
		ContactNumber: p.ContactNumber,
		Occupation:    p.Occupation,
	}
	if !p.DateOfBirth.IsZero() {
		info.BirthDate = p.DateOfBirth.String()
		age := p.AgeOn(a.now())
		info.Age = &age
	}
	return info, nil
}
