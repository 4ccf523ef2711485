package domain

import (
	"strconv"
	"strings"
)

// Sentinels substituted when a listing card is missing a field
const (
	MissingName  = "상품명 없음"
	MissingPrice = "가격 정보 없음"
	MissingLink  = "#"
)

// ProductListing represents one product card scraped from the commerce site.
// Listings are transient and never persisted.
type ProductListing struct {
	Name         string `json:"name"`
	Price        string `json:"price"`
	NumericPrice int64  `json:"numericPrice"`
	Link         string `json:"link"`
}

// SelectedProduct is the single candidate chosen by the selection stage
type SelectedProduct struct {
	Name           string `json:"name" validate:"required"`
	Price          string `json:"price"`
	NumericPrice   int64  `json:"numericPrice"`
	Link           string `json:"link"`
	DetailsSummary string `json:"details_summary" validate:"required"`
}

// SelectionResult is the output contract of the selection stage
type SelectionResult struct {
	SelectedProduct    *SelectedProduct `json:"selected_product"`
	SelectionRationale string           `json:"selection_rationale" validate:"required"`
	Warning            string           `json:"warning"`
}

// NormalizePrice keeps only the ASCII digits of a displayed price and parses them.
// Text without digits, or digits that overflow, yields 0.
func NormalizePrice(text string) int64 {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
