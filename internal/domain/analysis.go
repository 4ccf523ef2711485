package domain

// Nutrient is one nutrient the analysis stage considers necessary
type Nutrient struct {
	Name      string `json:"name" validate:"required"`
	Rationale string `json:"rationale" validate:"required"`
}

// RiskFactor is an ingredient to avoid given the user's conditions or medications
type RiskFactor struct {
	Type                 string `json:"type" validate:"required"`
	NutrientOrIngredient string `json:"nutrient_or_ingredient" validate:"required"`
	Reason               string `json:"reason" validate:"required"`
}

// AnalysisResult is the output contract of the analysis stage.
// Slices must be present in the model output; an empty list is allowed.
type AnalysisResult struct {
	RequiredNutrients []Nutrient   `json:"required_nutrients" validate:"required,min=1,max=3,dive"`
	RiskFactors       []RiskFactor `json:"risk_factors" validate:"required,dive"`
	SearchKeywords    []string     `json:"search_keywords" validate:"required"`
	InitialSummary    string       `json:"initial_summary" validate:"required"`
}
