package domain

// RecommendationResponse is the aggregate returned to the client once a run completes
type RecommendationResponse struct {
	RunID string `json:"runId"`

	InitialRecommendation  string       `json:"initialRecommendation"`
	RequiredNutrients      []Nutrient   `json:"requiredNutrients"`
	RiskFactors            []RiskFactor `json:"riskFactors"`
	RecommendedIngredients []string     `json:"recommendedIngredients"`

	FinalRecommendation *SelectedProduct `json:"finalRecommendation"`
	SelectionRationale  string           `json:"selectionRationale"`
	OptimizationWarning string           `json:"optimizationWarning"`

	Verification       string       `json:"verification"`
	VerificationStatus SafetyStatus `json:"verificationStatus"`

	RawProducts []ProductListing `json:"rawProducts"`
}

// NewRecommendationResponse assembles the response from the outputs of every stage
func NewRecommendationResponse(
	runID string,
	analysis *AnalysisResult,
	products []ProductListing,
	selection *SelectionResult,
	safety *SafetyResult,
) *RecommendationResponse {
	if products == nil {
		products = []ProductListing{}
	}
	return &RecommendationResponse{
		RunID:                  runID,
		InitialRecommendation:  analysis.InitialSummary,
		RequiredNutrients:      analysis.RequiredNutrients,
		RiskFactors:            analysis.RiskFactors,
		RecommendedIngredients: analysis.SearchKeywords,
		FinalRecommendation:    selection.SelectedProduct,
		SelectionRationale:     selection.SelectionRationale,
		OptimizationWarning:    selection.Warning,
		Verification:           safety.DetailedMessage,
		VerificationStatus:     safety.VerificationStatus,
		RawProducts:            products,
	}
}
