package patient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	store  map[uuid.UUID]*Patient
	visits map[uuid.UUID][]Visit
	fail   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		store:  make(map[uuid.UUID]*Patient),
		visits: make(map[uuid.UUID][]Visit),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if m.fail != nil {
		return m.fail
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.store[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	delete(m.visits, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	if m.fail != nil {
		return nil, 0, m.fail
	}
	var matched []*Patient
	for _, p := range m.store {
		if strings.Contains(strings.ToLower(p.FullName), strings.ToLower(query)) {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].FullName < matched[j].FullName })
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *mockRepo) AddVisit(_ context.Context, v *Visit) error {
	if _, ok := m.store[v.PatientID]; !ok {
		return ErrNotFound
	}
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	m.visits[v.PatientID] = append(m.visits[v.PatientID], *v)
	return nil
}

func (m *mockRepo) ListVisits(_ context.Context, patientID uuid.UUID) ([]Visit, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return m.visits[patientID], nil
}

var errDB = errors.New("connection refused")

func strPtr(s string) *string { return &s }

func samplePatient() *Patient {
	return &Patient{
		FullName:      "Maria Santos",
		DateOfBirth:   NewDate(1990, time.May, 14),
		Gender:        "female",
		CivilStatus:   "married",
		ContactNumber: "09171234567",
		Address:       "Purok 3, Barangay San Isidro",

		EmergencyContactName:         "Jose Santos",
		EmergencyContactNumber:       "09181234567",
		EmergencyContactRelationship: "spouse",
	}
}
