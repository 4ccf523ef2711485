package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pillwise/backend/internal/domain"
)

const stageSafety = "safety"

// consultationEndings are accepted as an existing closing disclaimer
var consultationEndings = []string{"상담하십시오", "상담하세요", "상담하시기 바랍니다"}

// safetyReply mirrors SafetyResult with a free-form status so it can be normalized
type safetyReply struct {
	VerificationStatus string `json:"verification_status" validate:"required"`
	DetailedMessage    string `json:"detailed_message" validate:"required"`
}

// SafetyStage checks the selected product against the user's medications and allergies.
// Its classification is the model's opinion and is not verified against any drug database.
type SafetyStage struct {
	reasoning domain.ReasoningClient
	logger    *zap.Logger
}

// NewSafetyStage creates the safety stage
func NewSafetyStage(reasoning domain.ReasoningClient, logger *zap.Logger) *SafetyStage {
	return &SafetyStage{reasoning: reasoning, logger: logger}
}

// Verify classifies the selected product. Without a selected product it returns
// the skipped result and does not call the model.
func (s *SafetyStage) Verify(ctx context.Context, selection *domain.SelectionResult, medicationsAllergies string) (*domain.SafetyResult, error) {
	if selection == nil || selection.SelectedProduct == nil {
		return domain.SkippedSafety(), nil
	}

	instruction, err := buildSafetyPrompt(selection.SelectedProduct, medicationsAllergies)
	if err != nil {
		return nil, err
	}

	reply, err := s.reasoning.Complete(ctx, stageSafety, instruction)
	if err != nil {
		return nil, fmt.Errorf("safety stage: %w", err)
	}

	var raw safetyReply
	if err := decodeContract(stageSafety, reply, &raw); err != nil {
		s.logger.Warn("safety reply rejected", zap.Error(err), zap.Int("reply_bytes", len(reply)))
		return nil, err
	}

	status, ok := domain.ParseSafetyStatus(raw.VerificationStatus)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown verification_status %q",
			domain.ErrReasoningContract, stageSafety, raw.VerificationStatus)
	}

	result := &domain.SafetyResult{
		VerificationStatus: status,
		DetailedMessage:    withDisclaimer(raw.DetailedMessage),
	}
	s.logger.Info("safety check complete", zap.String("status", string(status)))
	return result, nil
}

// withDisclaimer appends the consultation disclaimer unless msg already ends with one
func withDisclaimer(msg string) string {
	msg = strings.TrimSpace(msg)
	tail := strings.TrimRight(msg, ".!。 ")
	for _, ending := range consultationEndings {
		if strings.HasSuffix(tail, ending) {
			return msg
		}
	}
	return msg + " " + domain.ConsultationDisclaimer
}
