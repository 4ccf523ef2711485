package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pillwise/backend/internal/domain"
)

const stageSelection = "selection"

// Fast-path values reported when there is nothing to choose from
const (
	NoProductsRationale = "검색된 제품이 없습니다."
	NoProductsWarning   = "No products found."
)

// SelectionStage asks the model to choose one best-value candidate
type SelectionStage struct {
	reasoning domain.ReasoningClient
	matcher   *MatchingService
	logger    *zap.Logger
}

// NewSelectionStage creates the selection stage
func NewSelectionStage(reasoning domain.ReasoningClient, matcher *MatchingService, logger *zap.Logger) *SelectionStage {
	return &SelectionStage{reasoning: reasoning, matcher: matcher, logger: logger}
}

// Select returns the chosen product. With no candidates it returns a null selection
// without calling the model.
func (s *SelectionStage) Select(
	ctx context.Context,
	products []domain.ProductListing,
	profile *domain.UserProfile,
	analysis *domain.AnalysisResult,
) (*domain.SelectionResult, error) {
	if len(products) == 0 {
		return &domain.SelectionResult{
			SelectedProduct:    nil,
			SelectionRationale: NoProductsRationale,
			Warning:            NoProductsWarning,
		}, nil
	}

	instruction, err := buildSelectionPrompt(profile, analysis, products)
	if err != nil {
		return nil, err
	}

	reply, err := s.reasoning.Complete(ctx, stageSelection, instruction)
	if err != nil {
		return nil, fmt.Errorf("selection stage: %w", err)
	}

	var result domain.SelectionResult
	if err := decodeContract(stageSelection, reply, &result); err != nil {
		s.logger.Warn("selection reply rejected", zap.Error(err), zap.Int("reply_bytes", len(reply)))
		return nil, err
	}

	if result.SelectedProduct == nil {
		s.logger.Warn("model declined to select a product", zap.Int("candidates", len(products)))
		return &result, nil
	}

	s.reconcile(ctx, result.SelectedProduct, products)
	return &result, nil
}

// reconcile copies the canonical link and numeric price from the matching candidate
func (s *SelectionStage) reconcile(ctx context.Context, selected *domain.SelectedProduct, products []domain.ProductListing) {
	match, ok := s.matcher.FindBestMatch(ctx, selected, products)
	if !ok {
		selected.NumericPrice = domain.NormalizePrice(selected.Price)
		fields := []zap.Field{zap.String("selected", selected.Name)}
		if match != nil {
			fields = append(fields, zap.String("closest", match.Listing.Name), zap.Float64("score", match.Score))
		}
		s.logger.Warn("selected product does not match any candidate", fields...)
		return
	}

	selected.Link = match.Listing.Link
	selected.NumericPrice = match.Listing.NumericPrice
	if selected.Price == "" {
		selected.Price = match.Listing.Price
	}
	s.logger.Info("selection complete",
		zap.String("selected", selected.Name),
		zap.Float64("match_score", match.Score),
	)
}
