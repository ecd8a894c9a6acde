package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, time.May, 14, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestCreate(t *testing.T) {
	svc, repo := newTestService()
	p := samplePatient()
	p.FullName = "  Maria   Santos "
	p.Gender = "Female"

	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	stored := repo.store[p.ID]
	if stored.FullName != "Maria Santos" {
		t.Errorf("expected normalized name, got %q", stored.FullName)
	}
	if stored.Gender != "female" {
		t.Errorf("expected lowercase gender, got %q", stored.Gender)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Patient)
		field  string
	}{
		{"missing name", func(p *Patient) { p.FullName = "   " }, "full_name"},
		{"missing dob", func(p *Patient) { p.DateOfBirth = Date{} }, "date_of_birth"},
		{"future dob", func(p *Patient) { p.DateOfBirth = NewDate(2030, time.January, 1) }, "date_of_birth"},
		{"missing gender", func(p *Patient) { p.Gender = "" }, "gender"},
		{"missing civil status", func(p *Patient) { p.CivilStatus = " " }, "civil_status"},
		{"missing contact number", func(p *Patient) { p.ContactNumber = "" }, "contact_number"},
		{"missing address", func(p *Patient) { p.Address = "" }, "address"},
		{"missing emergency contact name", func(p *Patient) { p.EmergencyContactName = "" }, "emergency_contact_name"},
		{"missing emergency contact number", func(p *Patient) { p.EmergencyContactNumber = "" }, "emergency_contact_number"},
		{"missing emergency contact relationship", func(p *Patient) { p.EmergencyContactRelationship = "" }, "emergency_contact_relationship"},
		{"bad gender", func(p *Patient) { p.Gender = "unknown" }, "gender"},
		{"bad email", func(p *Patient) { p.Email = strPtr("not-an-email") }, "email"},
		{"bad blood type", func(p *Patient) { p.BloodType = "C+" }, "blood_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			p := samplePatient()
			tt.modify(p)
			err := svc.Create(context.Background(), p)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
			if len(repo.store) != 0 {
				t.Error("invalid patient must not be persisted")
			}
		})
	}
}

func TestCreate_BlankEmailDropped(t *testing.T) {
	svc, _ := newTestService()
	p := samplePatient()
	p.Email = strPtr("  ")
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Email != nil {
		t.Error("expected blank email to be stored as absent")
	}
}

func TestCreate_RepoError(t *testing.T) {
	svc, repo := newTestService()
	repo.fail = errDB
	err := svc.Create(context.Background(), samplePatient())
	if !errors.Is(err, errDB) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}

func TestGet_IncludesVisits(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p := samplePatient()
	_ = svc.Create(ctx, p)
	if err := svc.RecordVisit(ctx, p.ID, " Prenatal check-up "); err != nil {
		t.Fatalf("RecordVisit: %v", err)
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Visits) != 1 || got.Visits[0].Purpose != "Prenatal check-up" {
		t.Errorf("expected one trimmed visit, got %+v", got.Visits)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_Partial(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	p := samplePatient()
	_ = svc.Create(ctx, p)

	updated, err := svc.Update(ctx, p.ID, Update{ContactNumber: strPtr("09998887777")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ContactNumber != "09998887777" {
		t.Errorf("expected new contact number, got %s", updated.ContactNumber)
	}
	if repo.store[p.ID].FullName != "Maria Santos" {
		t.Error("partial update must keep other fields")
	}
}

func TestUpdate_Errors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p := samplePatient()
	_ = svc.Create(ctx, p)

	var verr *ValidationError
	if _, err := svc.Update(ctx, p.ID, Update{}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for empty update, got %v", err)
	}
	if _, err := svc.Update(ctx, p.ID, Update{FullName: strPtr("")}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError when clearing name, got %v", err)
	}
	if _, err := svc.Update(ctx, uuid.New(), Update{Gender: strPtr("male")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	p := samplePatient()
	_ = svc.Create(ctx, p)

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.store[p.ID]; ok {
		t.Error("expected patient removed")
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestList_Search(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, name := range []string{"Maria Santos", "Juan Dela Cruz", "Ana Santos"} {
		p := samplePatient()
		p.FullName = name
		_ = svc.Create(ctx, p)
	}

	all, total, err := svc.List(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("expected 3 patients, got %d/%d", len(all), total)
	}

	matched, total, _ := svc.List(ctx, " santos ", 10, 0)
	if total != 2 || len(matched) != 2 {
		t.Errorf("expected 2 Santos patients, got %d/%d", len(matched), total)
	}

	page, total, _ := svc.List(ctx, "", 1, 1)
	if total != 3 || len(page) != 1 || page[0].FullName != "Juan Dela Cruz" {
		t.Errorf("unexpected page: total=%d page=%v", total, page)
	}
}

func TestLookup(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p := samplePatient()
	p.DateOfBirth = NewDate(1960, time.May, 15)
	_ = svc.Create(ctx, p)

	name, age, err := svc.Lookup(ctx, p.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if name != "Maria Santos" {
		t.Errorf("expected name Maria Santos, got %s", name)
	}
	if age != 63 {
		t.Errorf("expected age 63 the day before the 64th birthday, got %d", age)
	}
}

func TestRecordVisit_UnknownPatient(t *testing.T) {
	svc, _ := newTestService()
	err := svc.RecordVisit(context.Background(), uuid.New(), "check-up")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVisits(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p := samplePatient()
	_ = svc.Create(ctx, p)
	_ = svc.RecordVisit(ctx, p.ID, "Immunization")
	_ = svc.RecordVisit(ctx, p.ID, "Follow-up")

	visits, err := svc.Visits(ctx, p.ID)
	if err != nil {
		t.Fatalf("Visits: %v", err)
	}
	if len(visits) != 2 {
		t.Errorf("expected 2 visits, got %d", len(visits))
	}
	if _, err := svc.Visits(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
