package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// maxKeywordRunes bounds a single search term; longer model output is cut at a word boundary
const maxKeywordRunes = 50

// Compiled regex patterns for keyword preprocessing
var (
	// Matches a leading list marker such as "1.", "2)", "-", "*" or "•"
	listMarkerPattern = regexp.MustCompile(`^(\d+[.)]|[-*•·])\s+`)

	// Multiple spaces cleanup
	keywordSpacePattern = regexp.MustCompile(`\s+`)
)

// edgeNoise is trimmed from both ends of a keyword
const edgeNoise = "\"'`“”‘’「」『』,.;:!?"

// bracketPairs are only stripped from the edges when unbalanced or wrapping the whole keyword,
// so "비타민 D3 (5000IU)" keeps its dosage group
var bracketPairs = [][2]string{{"(", ")"}, {"[", "]"}, {"{", "}"}, {"<", ">"}}

// KeywordPreprocessor turns the analysis stage's search keywords into search terms
type KeywordPreprocessor struct {
	maxKeywords int
	logger      *zap.Logger
}

// NewKeywordPreprocessor creates a preprocessor that keeps at most maxKeywords terms
func NewKeywordPreprocessor(maxKeywords int, logger *zap.Logger) *KeywordPreprocessor {
	if maxKeywords <= 0 {
		maxKeywords = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordPreprocessor{maxKeywords: maxKeywords, logger: logger}
}

// Prepare cleans each keyword, drops blanks and case-insensitive duplicates,
// and keeps the first maxKeywords in their original order
func (p *KeywordPreprocessor) Prepare(keywords []string) []string {
	cleaned := lo.FilterMap(keywords, func(kw string, _ int) (string, bool) {
		c := cleanKeyword(kw)
		return c, c != ""
	})
	unique := lo.UniqBy(cleaned, strings.ToLower)

	if len(unique) > p.maxKeywords {
		p.logger.Debug("dropping surplus keywords",
			zap.Strings("dropped", unique[p.maxKeywords:]),
		)
		unique = unique[:p.maxKeywords]
	}

	p.logger.Debug("prepared search keywords",
		zap.Strings("input", keywords),
		zap.Strings("output", unique),
	)
	return unique
}

// cleanKeyword normalizes one keyword
func cleanKeyword(kw string) string {
	s := keywordSpacePattern.ReplaceAllString(kw, " ")
	s = strings.TrimSpace(s)
	s = listMarkerPattern.ReplaceAllString(s, "")
	s = trimEdges(s)

	if utf8.RuneCountInString(s) > maxKeywordRunes {
		s = truncateRunes(s, maxKeywordRunes)
	}
	return s
}

// trimEdges strips edge noise and stray or enclosing brackets until nothing changes
func trimEdges(s string) string {
	for {
		before := s
		s = strings.Trim(s, edgeNoise+" ")
		s = strings.TrimFunc(s, unicode.IsSpace)

		for _, pair := range bracketPairs {
			opener, closer := pair[0], pair[1]
			hasOpen, hasClose := strings.HasPrefix(s, opener), strings.HasSuffix(s, closer)
			switch {
			case hasOpen && hasClose && len(s) >= 2 && balanced(s[1:len(s)-1], opener, closer):
				s = s[1 : len(s)-1]
			case hasOpen && !strings.Contains(s, closer):
				s = s[1:]
			case hasClose && !strings.Contains(s, opener):
				s = s[:len(s)-1]
			}
		}

		if s == before {
			return s
		}
	}
}

// balanced reports whether every closer in s follows a matching opener
func balanced(s, opener, closer string) bool {
	depth := 0
	for _, r := range s {
		switch string(r) {
		case opener:
			depth++
		case closer:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// truncateRunes cuts s to n runes, preferring the last space in the second half
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	cut := string(runes[:n])
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > len(cut)/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut)
}
