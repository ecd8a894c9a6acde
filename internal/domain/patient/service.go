package patient

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var validGenders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	normalize(p)
	if err := s.validate(p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return nil
}

// Get returns the patient together with their visit history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	visits, err := s.repo.ListVisits(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	p.Visits = visits
	return p, nil
}

func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(query), limit, offset)
}

// Update applies a partial change and re-validates the merged record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, u Update) (*Patient, error) {
	if u.Empty() {
		return nil, &ValidationError{Field: "body", Message: "no fields to update"}
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Apply(p)
	normalize(p)
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", id.String()).Msg("patient deleted")
	return nil
}

func (s *Service) Visits(ctx context.Context, id uuid.UUID) ([]Visit, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListVisits(ctx, id)
}

// Lookup returns the display name and current age of a registered patient.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (string, int, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", 0, err
	}
	return p.FullName, p.AgeOn(s.now()), nil
}

// RecordVisit appends a visit to the patient's history.
func (s *Service) RecordVisit(ctx context.Context, patientID uuid.UUID, purpose string) error {
	v := &Visit{PatientID: patientID, Purpose: strings.TrimSpace(purpose)}
	if err := s.repo.AddVisit(ctx, v); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

func normalize(p *Patient) {
	p.FullName = strings.Join(strings.Fields(p.FullName), " ")
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	p.CivilStatus = strings.ToLower(strings.TrimSpace(p.CivilStatus))
	p.ContactNumber = strings.TrimSpace(p.ContactNumber)
	p.Address = strings.TrimSpace(p.Address)
	p.EmergencyContactName = strings.Join(strings.Fields(p.EmergencyContactName), " ")
	p.EmergencyContactNumber = strings.TrimSpace(p.EmergencyContactNumber)
	p.EmergencyContactRelationship = strings.TrimSpace(p.EmergencyContactRelationship)
	p.BloodType = strings.ToUpper(strings.TrimSpace(p.BloodType))
	if p.Email != nil {
		p.Email = optional(*p.Email)
	}
	if p.FamilyID != nil {
		p.FamilyID = optional(*p.FamilyID)
	}
}

func (s *Service) validate(p *Patient) error {
	if p.FullName == "" {
		return &ValidationError{Field: "full_name", Message: "is required"}
	}
	if p.DateOfBirth.IsZero() {
		return &ValidationError{Field: "date_of_birth", Message: "is required"}
	}
	if p.DateOfBirth.After(s.now()) {
		return &ValidationError{Field: "date_of_birth", Message: "must not be in the future"}
	}
	if p.Gender == "" {
		return &ValidationError{Field: "gender", Message: "is required"}
	}
	if !validGenders[p.Gender] {
		return &ValidationError{Field: "gender", Message: fmt.Sprintf("invalid value %q", p.Gender)}
	}
	required := []struct{ field, value string }{
		{"civil_status", p.CivilStatus},
		{"contact_number", p.ContactNumber},
		{"address", p.Address},
		{"emergency_contact_name", p.EmergencyContactName},
		{"emergency_contact_number", p.EmergencyContactNumber},
		{"emergency_contact_relationship", p.EmergencyContactRelationship},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return &ValidationError{Field: "email", Message: "invalid email address"}
		}
	}
	if p.BloodType != "" && !validBloodTypes[p.BloodType] {
		return &ValidationError{Field: "blood_type", Message: fmt.Sprintf("invalid value %q", p.BloodType)}
	}
	return nil
}
