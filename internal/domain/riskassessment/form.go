package riskassessment

import "math"

// Answer is a tri-state questionnaire response. The zero value means the
// question was not answered.
type Answer string

const (
	AnswerUnset Answer = ""
	AnswerYes   Answer = "yes"
	AnswerNo    Answer = "no"
)

// Valid reports whether a is one of the three accepted states.
func (a Answer) Valid() bool {
	return a == AnswerUnset || a == AnswerYes || a == AnswerNo
}

// answerItem pairs a printed question with its stored answer.
type answerItem struct {
	label  string
	answer Answer
}

// checkItem pairs a printed checklist label with its stored flag.
type checkItem struct {
	label   string
	checked bool
}

// Form is the PhilPEN NCD risk-assessment questionnaire captured for a
// single encounter. Dates are stored as entered (YYYY-MM-DD) so a malformed
// value can still be rendered with a fallback instead of failing decode.
type Form struct {
	Assessment         AssessmentInfo     `json:"assessment"`
	Patient            PatientInfo        `json:"patient"`
	RedFlags           RedFlags           `json:"red_flags"`
	PastMedicalHistory PastMedicalHistory `json:"past_medical_history"`
	FamilyHistory      FamilyHistory      `json:"family_history"`
	RiskFactors        RiskFactors        `json:"risk_factors"`
	Screening          RiskScreening      `json:"screening"`
	Management         Management         `json:"management"`
}

type AssessmentInfo struct {
	Date           string `json:"date"`
	HealthFacility string `json:"health_facility"`
	AssessedBy     string `json:"assessed_by"`
	EncounterType  string `json:"encounter_type"`
}

type PatientInfo struct {
	Name                  string `json:"name"`
	BirthDate             string `json:"birth_date"`
	Age                   *int   `json:"age,omitempty"`
	Sex                   string `json:"sex"`
	CivilStatus           string `json:"civil_status"`
	Address               string `json:"address"`
	ContactNumber         string `json:"contact_number"`
	PhilHealthNumber      string `json:"philhealth_number"`
	Occupation            string `json:"occupation"`
	EducationalAttainment string `json:"educational_attainment"`
	Religion              string `json:"religion"`
	Ethnicity             string `json:"ethnicity"`
}

// RedFlags lists the danger signs that require immediate referral.
type RedFlags struct {
	ChestPain           Answer `json:"chest_pain"`
	DifficultyBreathing Answer `json:"difficulty_breathing"`
	LossOfConsciousness Answer `json:"loss_of_consciousness"`
	SlurredSpeech       Answer `json:"slurred_speech"`
	FacialAsymmetry     Answer `json:"facial_asymmetry"`
	WeaknessOneSide     Answer `json:"weakness_one_side"`
	Disoriented         Answer `json:"disoriented"`
	ChestRetractions    Answer `json:"chest_retractions"`
	Seizure             Answer `json:"seizure"`
	SelfHarm            Answer `json:"self_harm"`
	AgitatedBehavior    Answer `json:"agitated_behavior"`
	EyeInjury           Answer `json:"eye_injury"`
	SevereInjuries      Answer `json:"severe_injuries"`
}

func (r RedFlags) items() []answerItem {
	return []answerItem{
		{"Chest pain", r.ChestPain},
		{"Difficulty of breathing", r.DifficultyBreathing},
		{"Loss of consciousness", r.LossOfConsciousness},
		{"Slurred speech", r.SlurredSpeech},
		{"Facial asymmetry", r.FacialAsymmetry},
		{"Weakness or numbness of arm and leg on one side of the body", r.WeaknessOneSide},
		{"Disoriented as to time, place and person", r.Disoriented},
		{"Chest retractions", r.ChestRetractions},
		{"Seizure or convulsion", r.Seizure},
		{"Act of self-harm or suicide", r.SelfHarm},
		{"Agitated or aggressive behavior", r.AgitatedBehavior},
		{"Eye injury or foreign body in the eye", r.EyeInjury},
		{"Severe injuries", r.SevereInjuries},
	}
}

// Any reports whether at least one red flag was answered yes.
func (r RedFlags) Any() bool {
	for _, it := range r.items() {
		if it.answer == AnswerYes {
			return true
		}
	}
	return false
}

type PastMedicalHistory struct {
	Hypertension    Answer `json:"hypertension"`
	HeartDisease    Answer `json:"heart_disease"`
	Diabetes        Answer `json:"diabetes"`
	Cancer          Answer `json:"cancer"`
	COPD            Answer `json:"copd"`
	Asthma          Answer `json:"asthma"`
	Allergies       Answer `json:"allergies"`
	MentalDisorder  Answer `json:"mental_disorder"`
	VisionProblems  Answer `json:"vision_problems"`
	PreviousSurgery Answer `json:"previous_surgery"`
	ThyroidDisorder Answer `json:"thyroid_disorder"`
	KidneyDisorder  Answer `json:"kidney_disorder"`
}

func (p PastMedicalHistory) items() []answerItem {
	return []answerItem{
		{"Hypertension", p.Hypertension},
		{"Heart disease", p.HeartDisease},
		{"Diabetes", p.Diabetes},
		{"Cancer", p.Cancer},
		{"COPD", p.COPD},
		{"Asthma", p.Asthma},
		{"Allergies", p.Allergies},
		{"Mental, neurological or substance use disorder", p.MentalDisorder},
		{"Vision problems", p.VisionProblems},
		{"Previous surgical history", p.PreviousSurgery},
		{"Thyroid disorders", p.ThyroidDisorder},
		{"Kidney disorders", p.KidneyDisorder},
	}
}

type FamilyHistory struct {
	Hypertension   Answer `json:"hypertension"`
	Stroke         Answer `json:"stroke"`
	HeartDisease   Answer `json:"heart_disease"`
	Diabetes       Answer `json:"diabetes"`
	Asthma         Answer `json:"asthma"`
	Cancer         Answer `json:"cancer"`
	KidneyDisease  Answer `json:"kidney_disease"`
	PrematureCAD   Answer `json:"premature_cad"`
	Tuberculosis   Answer `json:"tuberculosis"`
	MentalDisorder Answer `json:"mental_disorder"`
	COPD           Answer `json:"copd"`
}

func (f FamilyHistory) items() []answerItem {
	return []answerItem{
		{"Hypertension", f.Hypertension},
		{"Stroke", f.Stroke},
		{"Heart disease", f.HeartDisease},
		{"Diabetes mellitus", f.Diabetes},
		{"Asthma", f.Asthma},
		{"Cancer", f.Cancer},
		{"Kidney disease", f.KidneyDisease},
		{"First-degree relative with premature coronary artery disease", f.PrematureCAD},
		{"Tuberculosis", f.Tuberculosis},
		{"Mental, neurological or substance use disorder", f.MentalDisorder},
		{"COPD", f.COPD},
	}
}

type RiskFactors struct {
	TobaccoUse           string        `json:"tobacco_use"`
	AlcoholIntake        string        `json:"alcohol_intake"`
	BingeDrinker         Answer        `json:"binge_drinker"`
	InsufficientActivity Answer        `json:"insufficient_activity"`
	UnhealthyDiet        Answer        `json:"unhealthy_diet"`
	HeightCM             *float64      `json:"height_cm,omitempty"`
	WeightKG             *float64      `json:"weight_kg,omitempty"`
	WaistCM              *float64      `json:"waist_cm,omitempty"`
	FirstBP              BloodPressure `json:"first_bp"`
	SecondBP             BloodPressure `json:"second_bp"`
}

// BloodPressure is a single reading in mmHg.
type BloodPressure struct {
	Systolic  *int `json:"systolic,omitempty"`
	Diastolic *int `json:"diastolic,omitempty"`
}

// BMI returns weight / height² in kg/m², or false when either measure is
// missing or not positive.
func (r RiskFactors) BMI() (float64, bool) {
	if r.HeightCM == nil || r.WeightKG == nil || *r.HeightCM <= 0 || *r.WeightKG <= 0 {
		return 0, false
	}
	m := *r.HeightCM / 100
	bmi := *r.WeightKG / (m * m)
	return math.Round(bmi*10) / 10, true
}

// ClassifyBMI applies the Asia-Pacific cut-offs used in the PhilPEN protocol.
func ClassifyBMI(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 23:
		return "Normal"
	case bmi < 25:
		return "Overweight"
	}
	return "Obese"
}

// DMSymptoms are the classic hyperglycaemia symptoms.
type DMSymptoms struct {
	Polyphagia bool `json:"polyphagia"`
	Polydipsia bool `json:"polydipsia"`
	Polyuria   bool `json:"polyuria"`
}

func (d DMSymptoms) items() []checkItem {
	return []checkItem{
		{"Polyphagia", d.Polyphagia},
		{"Polydipsia", d.Polydipsia},
		{"Polyuria", d.Polyuria},
	}
}

// AnginaQuestionnaire is the Rose angina questionnaire.
type AnginaQuestionnaire struct {
	ChestDiscomfort      bool `json:"chest_discomfort"`
	CentralOrLeftArm     bool `json:"central_or_left_arm"`
	OnExertion           bool `json:"on_exertion"`
	SlowsDown            bool `json:"slows_down"`
	RelievedByRest       bool `json:"relieved_by_rest"`
	GoneWithinTenMinutes bool `json:"gone_within_ten_minutes"`
	SevereProlonged      bool `json:"severe_prolonged"`
}

func (a AnginaQuestionnaire) items() []checkItem {
	return []checkItem{
		{"Chest pain, pressure or heaviness", a.ChestDiscomfort},
		{"Pain in center of chest or left arm", a.CentralOrLeftArm},
		{"Pain when walking uphill or hurrying", a.OnExertion},
		{"Slows down when pain occurs", a.SlowsDown},
		{"Relieved by rest or tablet under tongue", a.RelievedByRest},
		{"Pain goes away in less than 10 minutes", a.GoneWithinTenMinutes},
		{"Severe chest pain lasting half an hour or more", a.SevereProlonged},
	}
}

type RespiratorySymptoms struct {
	Breathlessness   bool `json:"breathlessness"`
	SputumProduction bool `json:"sputum_production"`
	ChronicCough     bool `json:"chronic_cough"`
	ChestTightness   bool `json:"chest_tightness"`
	Wheezing         bool `json:"wheezing"`
}

func (r RespiratorySymptoms) items() []checkItem {
	return []checkItem{
		{"Breathlessness", r.Breathlessness},
		{"Sputum production", r.SputumProduction},
		{"Chronic cough", r.ChronicCough},
		{"Chest tightness", r.ChestTightness},
		{"Wheezing", r.Wheezing},
	}
}

// RiskScreening holds laboratory results as entered. Lab values are free
// text because units and qualitative results ("trace", "+2") both occur.
type RiskScreening struct {
	DiabetesPresent     Answer              `json:"diabetes_present"`
	DMSymptoms          DMSymptoms          `json:"dm_symptoms"`
	FastingBloodSugar   string              `json:"fbs"`
	RandomBloodSugar    string              `json:"rbs"`
	HbA1c               string              `json:"hba1c"`
	TotalCholesterol    string              `json:"total_cholesterol"`
	HDL                 string              `json:"hdl"`
	LDL                 string              `json:"ldl"`
	Triglycerides       string              `json:"triglycerides"`
	UrineProtein        string              `json:"urine_protein"`
	UrineKetones        string              `json:"urine_ketones"`
	UrineGlucose        string              `json:"urine_glucose"`
	Angina              AnginaQuestionnaire `json:"angina"`
	StrokeTIA           Answer              `json:"stroke_tia"`
	RespiratorySymptoms RespiratorySymptoms `json:"respiratory_symptoms"`
	CVDRiskLevel        string              `json:"cvd_risk_level"`
}

type LifestyleModification struct {
	SmokingCessation bool `json:"smoking_cessation"`
	LimitAlcohol     bool `json:"limit_alcohol"`
	HealthyDiet      bool `json:"healthy_diet"`
	PhysicalActivity bool `json:"physical_activity"`
	WeightManagement bool `json:"weight_management"`
}

func (l LifestyleModification) items() []checkItem {
	return []checkItem{
		{"Smoking cessation", l.SmokingCessation},
		{"Avoid or limit alcohol", l.LimitAlcohol},
		{"Healthy diet", l.HealthyDiet},
		{"Physical activity", l.PhysicalActivity},
		{"Weight management", l.WeightManagement},
	}
}

type Management struct {
	Lifestyle        LifestyleModification `json:"lifestyle"`
	Medications      string                `json:"medications"`
	FollowUpDate     string                `json:"follow_up_date"`
	ReferralFacility string                `json:"referral_facility"`
	Remarks          string                `json:"remarks"`
}

// option is one entry of a fixed select list.
type option struct {
	value string
	label string
}

var (
	encounterTypeOptions = []option{
		{"new", "New consultation"},
		{"follow_up", "Follow-up"},
		{"home_visit", "Home visit"},
	}
	sexOptions = []option{
		{"male", "Male"},
		{"female", "Female"},
	}
	civilStatusOptions = []option{
		{"single", "Single"},
		{"married", "Married"},
		{"widowed", "Widowed"},
		{"separated", "Separated"},
		{"live_in", "Live-in"},
	}
	tobaccoOptions = []option{
		{"never", "Never used"},
		{"current", "Current user"},
		{"former", "Former user"},
		{"passive", "Exposed to secondhand smoke"},
	}
	alcoholOptions = []option{
		{"never", "Never consumed"},
		{"current", "Current drinker"},
		{"former", "Former drinker"},
	}
	cvdRiskOptions = []option{
		{"lt10", "Less than 10%"},
		{"10to20", "10% to less than 20%"},
		{"20to30", "20% to less than 30%"},
		{"30to40", "30% to less than 40%"},
		{"ge40", "40% and above"},
	}
	answerOptions = []option{
		{string(AnswerYes), "Yes"},
		{string(AnswerNo), "No"},
	}
)

// Validate rejects tri-state answers outside {yes, no, ""}. Every other field
// is optional.
func (f Form) Validate() error {
	groups := []struct {
		section string
		items   []answerItem
	}{
		{"red flags", f.RedFlags.items()},
		{"past medical history", f.PastMedicalHistory.items()},
		{"family history", f.FamilyHistory.items()},
		{"risk factors", []answerItem{
			{"Binge drinker", f.RiskFactors.BingeDrinker},
			{"Insufficient physical activity", f.RiskFactors.InsufficientActivity},
			{"Unhealthy diet", f.RiskFactors.UnhealthyDiet},
		}},
		{"risk screening", []answerItem{
			{"Diabetes", f.Screening.DiabetesPresent},
			{"Stroke or TIA", f.Screening.StrokeTIA},
		}},
	}
	for _, g := range groups {
		for _, it := range g.items {
			if !it.answer.Valid() {
				return &ValidationError{Field: g.section + ": " + it.label, Message: "answer must be yes, no or empty"}
			}
		}
	}
	return nil
}
