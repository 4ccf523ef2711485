package iherb

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pillwise/backend/internal/domain"
)

// Selectors locate the parts of the search results page. They describe one
// site's markup and are expected to change with it.
type Selectors struct {
	Container      string
	Card           string
	PrimaryTitle   string
	SecondaryTitle string
	PrimaryPrice   string
	SecondaryPrice string
}

// DefaultSelectors match the iHerb search results grid
var DefaultSelectors = Selectors{
	Container:      ".products.product-cells",
	Card:           ".product.ga-product",
	PrimaryTitle:   ".product-title",
	SecondaryTitle: ".product-link",
	PrimaryPrice:   ".product-price",
	SecondaryPrice: ".price",
}

// Strategy tries to read one field from a product card
type Strategy func(card *goquery.Selection) (string, bool)

// Field is an ordered list of strategies ending in a sentinel value
type Field struct {
	Strategies []Strategy
	Sentinel   string
}

// Extract returns the first strategy result, or the sentinel if none matched
func (f Field) Extract(card *goquery.Selection) string {
	for _, strategy := range f.Strategies {
		if v, ok := strategy(card); ok {
			return v
		}
	}
	return f.Sentinel
}

// textOf reads the collapsed text of the first element matching selector
func textOf(selector string) Strategy {
	return func(card *goquery.Selection) (string, bool) {
		el := card.Find(selector).First()
		if el.Length() == 0 {
			return "", false
		}
		text := strings.Join(strings.Fields(el.Text()), " ")
		return text, text != ""
	}
}

// hrefOf reads the href of the first element matching selector, or of its closest anchor
func hrefOf(selector string, base *url.URL) Strategy {
	return func(card *goquery.Selection) (string, bool) {
		el := card.Find(selector).First()
		if el.Length() == 0 {
			return "", false
		}
		href, ok := el.Attr("href")
		if !ok {
			href, ok = el.Closest("a[href]").Attr("href")
		}
		if !ok {
			return "", false
		}
		return resolve(base, href)
	}
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base == nil {
		return ref.String(), true
	}
	return base.ResolveReference(ref).String(), true
}

// Extractor turns rendered results HTML into product listings
type Extractor struct {
	selectors  Selectors
	maxResults int
	name       Field
	price      Field
}

// NewExtractor builds the per-field strategy chains from selectors
func NewExtractor(selectors Selectors, maxResults int) *Extractor {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Extractor{
		selectors:  selectors,
		maxResults: maxResults,
		name: Field{
			Strategies: []Strategy{textOf(selectors.PrimaryTitle), textOf(selectors.SecondaryTitle)},
			Sentinel:   domain.MissingName,
		},
		price: Field{
			Strategies: []Strategy{textOf(selectors.PrimaryPrice), textOf(selectors.SecondaryPrice)},
			Sentinel:   domain.MissingPrice,
		},
	}
}

// Extract parses html and returns at most maxResults listings in page order.
// Relative links are resolved against pageURL.
func (e *Extractor) Extract(html, pageURL string) ([]domain.ProductListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	link := Field{
		Strategies: []Strategy{
			hrefOf(e.selectors.PrimaryTitle, base),
			hrefOf(e.selectors.SecondaryTitle, base),
			hrefOf("a[href]", base),
		},
		Sentinel: domain.MissingLink,
	}

	listings := make([]domain.ProductListing, 0, e.maxResults)
	doc.Find(e.selectors.Card).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		price := e.price.Extract(card)
		listings = append(listings, domain.ProductListing{
			Name:         e.name.Extract(card),
			Price:        price,
			NumericPrice: domain.NormalizePrice(price),
			Link:         link.Extract(card),
		})
		return len(listings) < e.maxResults
	})
	return listings, nil
}
