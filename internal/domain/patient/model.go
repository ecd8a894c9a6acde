package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of Date.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time of day.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Patient struct {
	ID                           uuid.UUID `json:"id"`
	FullName                     string    `json:"full_name"`
	DateOfBirth                  Date      `json:"date_of_birth"`
	Gender                       string    `json:"gender"`
	CivilStatus                  string    `json:"civil_status"`
	ContactNumber                string    `json:"contact_number"`
	EmergencyContactName         string    `json:"emergency_contact_name"`
	EmergencyContactNumber       string    `json:"emergency_contact_number"`
	EmergencyContactRelationship string    `json:"emergency_contact_relationship"`
	Address                      string    `json:"address"`
	Email                        *string   `json:"email,omitempty"`
	Occupation                   string    `json:"occupation,omitempty"`
	BloodType                    string    `json:"blood_type,omitempty"`
	FamilyID                     *string   `json:"family_id,omitempty"`
	Visits                       []Visit   `json:"visits,omitempty"`
	CreatedAt                    time.Time `json:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at"`
}

// AgeOn returns the patient's age in completed years on the given day.
func (p *Patient) AgeOn(on time.Time) int {
	return AgeOn(p.DateOfBirth, on)
}

// AgeOn returns completed years between birth and on. It never goes below zero.
func AgeOn(birth Date, on time.Time) int {
	if birth.IsZero() {
		return 0
	}
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Visit is one service encounter, recorded when a queue entry completes.
type Visit struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"-"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
}

// Update is a partial change set. Nil fields are left untouched.
type Update struct {
	FullName                     *string `json:"full_name"`
	DateOfBirth                  *Date   `json:"date_of_birth"`
	Gender                       *string `json:"gender"`
	CivilStatus                  *string `json:"civil_status"`
	ContactNumber                *string `json:"contact_number"`
	EmergencyContactName         *string `json:"emergency_contact_name"`
	EmergencyContactNumber       *string `json:"emergency_contact_number"`
	EmergencyContactRelationship *string `json:"emergency_contact_relationship"`
	Address                      *string `json:"address"`
	Email                        *string `json:"email"`
	Occupation                   *string `json:"occupation"`
	BloodType                    *string `json:"blood_type"`
	FamilyID                     *string `json:"family_id"`
}

// Apply copies every non-nil field of u onto p. An empty email or family
// id clears the stored value.
func (u Update) Apply(p *Patient) {
	setString(&p.FullName, u.FullName)
	if u.DateOfBirth != nil {
		p.DateOfBirth = *u.DateOfBirth
	}
	setString(&p.Gender, u.Gender)
	setString(&p.CivilStatus, u.CivilStatus)
	setString(&p.ContactNumber, u.ContactNumber)
	setString(&p.EmergencyContactName, u.EmergencyContactName)
	setString(&p.EmergencyContactNumber, u.EmergencyContactNumber)
	setString(&p.EmergencyContactRelationship, u.EmergencyContactRelationship)
	setString(&p.Address, u.Address)
	setString(&p.Occupation, u.Occupation)
	setString(&p.BloodType, u.BloodType)
	if u.Email != nil {
		p.Email = optional(*u.Email)
	}
	if u.FamilyID != nil {
		p.FamilyID = optional(*u.FamilyID)
	}
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u == Update{}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
