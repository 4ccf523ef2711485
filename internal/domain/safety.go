package domain

import "strings"

// SafetyStatus classifies the selected product against the user's medications and allergies
type SafetyStatus string

const (
	SafetySafe    SafetyStatus = "Safe"
	SafetyCaution SafetyStatus = "Caution"
	SafetyAvoid   SafetyStatus = "Avoid"

	// SafetySkipped is reported when there was no product to verify
	SafetySkipped SafetyStatus = "skipped"
)

// ConsultationDisclaimer closes every model-produced safety message
const ConsultationDisclaimer = "복용 전 의사나 약사 등 전문가와 상담하십시오."

// SkippedSafetyMessage is the message reported with SafetySkipped
const SkippedSafetyMessage = "검증할 제품이 없습니다."

// ParseSafetyStatus maps a model-provided status onto the three-value set, ignoring case
func ParseSafetyStatus(s string) (SafetyStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return SafetySafe, true
	case "caution":
		return SafetyCaution, true
	case "avoid":
		return SafetyAvoid, true
	}
	return "", false
}

// SafetyResult is the output contract of the safety stage
type SafetyResult struct {
	VerificationStatus SafetyStatus `json:"verification_status" validate:"required"`
	DetailedMessage    string       `json:"detailed_message" validate:"required"`
}

// SkippedSafety returns the result used when no product was selected
func SkippedSafety() *SafetyResult {
	return &SafetyResult{
		VerificationStatus: SafetySkipped,
		DetailedMessage:    SkippedSafetyMessage,
	}
}
