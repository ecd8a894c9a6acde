package riskassessment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bhis/bhis/internal/platform/document"
	"github.com/bhis/bhis/internal/platform/export"
)

// Exporter turns a rendered document into a printable artifact.
type Exporter interface {
	Export(ctx context.Context, doc document.Document) (*export.Artifact, error)
}

// PatientProfiles supplies registry demographics for pre-filling forms.
type PatientProfiles interface {
	Profile(ctx context.Context, id uuid.UUID) (PatientInfo, error)
}

type Service struct {
	repo     Repository
	exporter Exporter
	profiles PatientProfiles
	opts     RenderOptions
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, exporter Exporter, opts RenderOptions, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		exporter: exporter,
		opts:     opts.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetPatientProfiles attaches the optional patient registry.
func (s *Service) SetPatientProfiles(p PatientProfiles) {
	s.profiles = p
}

// Preview validates f and returns the rendered tree without exporting it.
func (s *Service) Preview(f Form) (document.Document, error) {
	if err := f.Validate(); err != nil {
		return document.Document{}, err
	}
	return Render(f, s.opts), nil
}

// Prefill returns an empty form dated today with the patient's registry
// demographics filled in.
func (s *Service) Prefill(ctx context.Context, patientID uuid.UUID) (Form, error) {
	var f Form
	f.Assessment.Date = s.now().Format("2006-01-02")
	if err := s.fillPatient(ctx, patientID, &f); err != nil {
		return Form{}, err
	}
	return f, nil
}

func (s *Service) Create(ctx context.Context, a *Assessment) error {
	if err := a.Form.Validate(); err != nil {
		return err
	}
	if a.PatientID != nil {
		if err := s.fillPatient(ctx, *a.PatientID, &a.Form); err != nil {
			return err
		}
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return fmt.Errorf("create risk assessment: %w", err)
	}
	s.logger.Info().Str("assessment_id", a.ID.String()).Msg("risk assessment saved")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces the stored form. The patient link is kept unless
// patientID is non-nil.
func (s *Service) Update(ctx context.Context, id uuid.UUID, f Form, patientID *uuid.UUID) (*Assessment, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Form = f
	if patientID != nil {
		a.PatientID = patientID
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update risk assessment: %w", err)
	}
	return a, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Export renders f and runs it through the export pipeline.
func (s *Service) Export(ctx context.Context, f Form) (*export.Artifact, error) {
	doc, err := s.Preview(f)
	if err != nil {
		return nil, err
	}
	a, err := s.exporter.Export(ctx, doc)
	if err != nil {
		s.logger.Error().Err(err).Str("subject", doc.Subject).Msg("risk assessment export failed")
		return nil, err
	}
	return a, nil
}

// ExportByID exports a saved assessment.
func (s *Service) ExportByID(ctx context.Context, id uuid.UUID) (*export.Artifact, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Export(ctx, a.Form)
}

func (s *Service) fillPatient(ctx context.Context, patientID uuid.UUID, f *Form) error {
	if s.profiles == nil {
		return nil
	}
	info, err := s.profiles.Profile(ctx, patientID)
	if err != nil {
		return fmt.Errorf("load patient %s: %w", patientID, err)
	}
	mergePatient(&f.Patient, info)
	return nil
}
