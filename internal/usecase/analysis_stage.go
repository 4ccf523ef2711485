package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pillwise/backend/internal/domain"
)

const stageAnalysis = "analysis"

// AnalysisStage derives nutrients, risk factors and search keywords from a profile
type AnalysisStage struct {
	reasoning   domain.ReasoningClient
	maxKeywords int
	logger      *zap.Logger
}

// NewAnalysisStage creates the analysis stage
func NewAnalysisStage(reasoning domain.ReasoningClient, maxKeywords int, logger *zap.Logger) *AnalysisStage {
	if maxKeywords <= 0 {
		maxKeywords = 3
	}
	return &AnalysisStage{reasoning: reasoning, maxKeywords: maxKeywords, logger: logger}
}

// Analyze asks the model for an AnalysisResult. Any reply that does not satisfy
// the contract is returned as a domain.ErrReasoningContract error.
func (s *AnalysisStage) Analyze(ctx context.Context, profile *domain.UserProfile) (*domain.AnalysisResult, error) {
	instruction, err := buildAnalysisPrompt(profile, s.maxKeywords)
	if err != nil {
		return nil, err
	}

	reply, err := s.reasoning.Complete(ctx, stageAnalysis, instruction)
	if err != nil {
		return nil, fmt.Errorf("analysis stage: %w", err)
	}

	var result domain.AnalysisResult
	if err := decodeContract(stageAnalysis, reply, &result); err != nil {
		s.logger.Warn("analysis reply rejected", zap.Error(err), zap.Int("reply_bytes", len(reply)))
		return nil, err
	}

	s.logger.Info("analysis complete",
		zap.Int("nutrients", len(result.RequiredNutrients)),
		zap.Int("risk_factors", len(result.RiskFactors)),
		zap.Strings("keywords", result.SearchKeywords),
	)
	return &result, nil
}
