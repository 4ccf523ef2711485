package domain

import (
	"fmt"
	"strings"
)

// BudgetRange is the user's spending bracket in KRW
type BudgetRange string

const (
	BudgetUnder50k   BudgetRange = "price_under_50000"
	Budget50kTo100k  BudgetRange = "price_50000_100000"
	Budget100kTo200k BudgetRange = "price_100000_200000"
	BudgetOver200k   BudgetRange = "price_over_200000"

	DefaultBudgetRange = Budget50kTo100k
)

var budgetLabels = map[BudgetRange]string{
	BudgetUnder50k:   "5만원 미만",
	Budget50kTo100k:  "5만원 ~ 10만원",
	Budget100kTo200k: "10만원 ~ 20만원",
	BudgetOver200k:   "20만원 이상",
}

// Label returns the human readable KRW band used in model instructions
func (b BudgetRange) Label() string {
	if label, ok := budgetLabels[b]; ok {
		return label
	}
	return string(b)
}

// Valid reports whether b is one of the known brackets
func (b BudgetRange) Valid() bool {
	_, ok := budgetLabels[b]
	return ok
}

// Gender as submitted by the client
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// AgeGroup as submitted by the client
type AgeGroup string

const (
	AgeTwenties    AgeGroup = "twenties"
	AgeThirties    AgeGroup = "thirties"
	AgeForties     AgeGroup = "forties"
	AgeFifties     AgeGroup = "fifties"
	AgeOverSixties AgeGroup = "overSixties"
)

var ageLabels = map[AgeGroup]string{
	AgeTwenties:    "20대",
	AgeThirties:    "30대",
	AgeForties:     "40대",
	AgeFifties:     "50대",
	AgeOverSixties: "60대 이상",
}

// NotProvided is substituted for optional profile fields left blank
const NotProvided = "없음"

// UserProfile is the immutable input of one recommendation run
type UserProfile struct {
	HealthGoal           string      `json:"health_goal"`
	DiseasesDiagnoses    string      `json:"diseases_diagnoses"`
	MedicationsAllergies string      `json:"medications_allergies"`
	BudgetRange          BudgetRange `json:"budget_range"`
	Gender               Gender      `json:"gender,omitempty"`
	AgeGroup             AgeGroup    `json:"age_group,omitempty"`
}

// Normalize trims every field and applies defaults. It returns ErrInvalidRequest
// when the health goal is blank or an enum field holds an unknown value.
func (p *UserProfile) Normalize() error {
	p.HealthGoal = strings.TrimSpace(p.HealthGoal)
	p.DiseasesDiagnoses = strings.TrimSpace(p.DiseasesDiagnoses)
	p.MedicationsAllergies = strings.TrimSpace(p.MedicationsAllergies)
	p.BudgetRange = BudgetRange(strings.TrimSpace(string(p.BudgetRange)))
	p.Gender = Gender(strings.ToLower(strings.TrimSpace(string(p.Gender))))
	p.AgeGroup = AgeGroup(strings.TrimSpace(string(p.AgeGroup)))

	if p.HealthGoal == "" {
		return fmt.Errorf("%w: health_goal is required", ErrInvalidRequest)
	}
	if p.BudgetRange == "" {
		p.BudgetRange = DefaultBudgetRange
	}
	if !p.BudgetRange.Valid() {
		return fmt.Errorf("%w: unknown budget_range %q", ErrInvalidRequest, p.BudgetRange)
	}
	if p.Gender != "" && p.Gender != GenderMale && p.Gender != GenderFemale {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidRequest, p.Gender)
	}
	if p.AgeGroup != "" {
		if _, ok := ageLabels[p.AgeGroup]; !ok {
			return fmt.Errorf("%w: unknown age_group %q", ErrInvalidRequest, p.AgeGroup)
		}
	}
	return nil
}

// OrNotProvided returns s, or NotProvided when s is blank
func OrNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotProvided
	}
	return s
}

// Demographics renders gender and age group for model instructions
func (p *UserProfile) Demographics() string {
	gender := "미상"
	switch p.Gender {
	case GenderMale:
		gender = "남성"
	case GenderFemale:
		gender = "여성"
	}
	age := "미상"
	if label, ok := ageLabels[p.AgeGroup]; ok {
		age = label
	}
	return fmt.Sprintf("%s, %s", gender, age)
}
