package queue

import "strings"

const (
	DefaultElderlyMinAge = 60
	DefaultChildUnderAge = 12
)

// DefaultPrenatalKeywords are matched case-insensitively against the visit
// purpose. "pregnan" covers pregnant and pregnancy.
var DefaultPrenatalKeywords = []string{"prenatal", "pre-natal", "antenatal", "pregnan", "maternal"}

// Classifier assigns a Priority from the attributes known when a patient
// joins the queue. Rules are evaluated in order: prenatal purpose, elderly
// age, child age, otherwise normal.
type Classifier struct {
	ElderlyMinAge    int
	ChildUnderAge    int
	PrenatalKeywords []string
}

func DefaultClassifier() Classifier {
	return Classifier{
		ElderlyMinAge:    DefaultElderlyMinAge,
		ChildUnderAge:    DefaultChildUnderAge,
		PrenatalKeywords: DefaultPrenatalKeywords,
	}
}

func (c Classifier) Classify(age int, purpose string) Priority {
	p := strings.ToLower(purpose)
	for _, kw := range c.PrenatalKeywords {
		if kw != "" && strings.Contains(p, strings.ToLower(kw)) {
			return PriorityPrenatal
		}
	}
	if age >= c.ElderlyMinAge {
		return PriorityElderly
	}
	if age < c.ChildUnderAge {
		return PriorityChild
	}
	return PriorityNormal
}
