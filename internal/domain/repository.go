package domain

import (
	"context"
)

// ReasoningClient sends one instruction to the language model and returns its raw text.
// Stage names are used for logging and metrics only.
type ReasoningClient interface {
	Complete(ctx context.Context, stage string, instruction string) (string, error)
}

// ListingFetcher retrieves up to a fixed number of listings for a search term.
// It never returns an error: any failure degrades to an empty slice.
type ListingFetcher interface {
	Fetch(ctx context.Context, term string) []ProductListing
}

// RunRepository persists run records for later inspection
type RunRepository interface {
	Save(ctx context.Context, run *RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
}
