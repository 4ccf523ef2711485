package browser

import (
	"context"
)

// Profile describes how a session should present itself to the target site
type Profile struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	// ProxyURL is empty for a direct connection
	ProxyURL string
	// InitScript runs in every new document before page scripts
	InitScript string
}

// Launcher starts isolated browser sessions. Each session owns its own
// browser process and must be closed by the caller.
type Launcher interface {
	NewSession(ctx context.Context, profile Profile) (Session, error)
}

// Session is a single rendered tab
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	Close() error
}
