package usecase

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pillwise/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Scoring weights
const (
	productCoverageWeight   = 0.60 // Share of the selected name's tokens found in the candidate
	candidateCoverageWeight = 0.20 // Share of the candidate's tokens found in the selected name
	jaccardWeight           = 0.20
	substringMatchBonus     = 10.0 // One name contains the other
)

// listingStopWords are units and packaging words that appear on almost every card
var listingStopWords = map[string]bool{
	"mg": true, "mcg": true, "iu": true, "g": true, "ml": true, "oz": true, "fl": true,
	"count": true, "ct": true, "capsules": true, "softgels": true, "tablets": true,
	"veggie": true, "vegetarian": true, "caps": true, "gummies": true, "servings": true,
	"the": true, "and": true, "with": true, "for": true, "of": true,
	"정": true, "캡슐": true, "소프트젤": true, "베지": true, "개입": true,
}

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinConfidenceThreshold float64
}

// MatchResult is the best candidate for a selected product
type MatchResult struct {
	Listing       domain.ProductListing
	Score         float64
	MatchedTokens []string
}

// MatchingService maps the product named by the selection stage back onto a scraped listing
type MatchingService struct {
	minConfidenceThreshold float64
	logger                 *zap.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig, logger *zap.Logger) *MatchingService {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 {
		threshold = 40.0 // Default 40% threshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		minConfidenceThreshold: threshold,
		logger:                 logger,
	}
}

// FindBestMatch returns the listing the selected product refers to.
// An identical link wins outright; otherwise the highest name score at or above the
// threshold is returned. ok is false when nothing qualifies.
func (s *MatchingService) FindBestMatch(
	ctx context.Context,
	selected *domain.SelectedProduct,
	listings []domain.ProductListing,
) (*MatchResult, bool) {
	if selected == nil || len(listings) == 0 {
		return nil, false
	}

	if link := strings.TrimSpace(selected.Link); link != "" && link != domain.MissingLink {
		for _, listing := range listings {
			if listing.Link == link {
				return &MatchResult{Listing: listing, Score: 100}, true
			}
		}
	}

	var best *MatchResult
	highestScore := -1.0

	for _, listing := range listings {
		if ctx.Err() != nil {
			return nil, false
		}

		score, matched := calculateMatchScore(selected.Name, listing.Name)

		s.logger.Debug("scored candidate",
			zap.String("candidate", listing.Name),
			zap.Float64("score", score),
			zap.Strings("matched", matched),
		)

		if score > highestScore {
			highestScore = score
			best = &MatchResult{Listing: listing, Score: score, MatchedTokens: matched}
		}
	}

	if best == nil || best.Score < s.minConfidenceThreshold {
		return best, false
	}
	return best, true
}

// calculateMatchScore computes similarity between the selected name and a candidate name.
// Uses a weighted combination of:
//   - Selected token coverage: what % of the selected name's tokens appear in the candidate (most important)
//   - Candidate token coverage: what % of the candidate's tokens appear in the selected name
//   - Jaccard similarity
//   - Substring match bonus
//
// Returns the score (0-100) and the list of matched tokens.
func calculateMatchScore(selectedName, candidateName string) (float64, []string) {
	selectedTokens := tokenize(selectedName)
	candidateTokens := tokenize(candidateName)

	if len(selectedTokens) == 0 || len(candidateTokens) == 0 {
		return 0, nil
	}

	selectedMatched, matchedTokens := findIntersection(selectedTokens, candidateTokens)
	selectedCoverage := float64(selectedMatched) / float64(len(selectedTokens))

	candidateMatched, _ := findIntersection(candidateTokens, selectedTokens)
	candidateCoverage := float64(candidateMatched) / float64(len(candidateTokens))

	jaccard := float64(selectedMatched) / float64(findUnion(selectedTokens, candidateTokens))

	score := (selectedCoverage*productCoverageWeight +
		candidateCoverage*candidateCoverageWeight +
		jaccard*jaccardWeight) * 100

	selectedLower := strings.ToLower(strings.TrimSpace(selectedName))
	candidateLower := strings.ToLower(strings.TrimSpace(candidateName))
	if utf8.RuneCountInString(selectedLower) > 3 &&
		(strings.Contains(candidateLower, selectedLower) || strings.Contains(selectedLower, candidateLower)) {
		score += substringMatchBonus
	}

	if score > 100 {
		score = 100
	}
	return score, matchedTokens
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, unit and packaging words, and pure numeric tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= 1 && !isHangul(word) {
			continue
		}
		if listingStopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func isHangul(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r >= 0xAC00 && r <= 0xD7A3
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}
	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
