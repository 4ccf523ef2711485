package iherb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pillwise/backend/internal/domain"
	"github.com/pillwise/backend/internal/infrastructure/browser"
	"github.com/pillwise/backend/internal/metrics"
)

// Fetch outcomes reported to metrics and logs
const (
	outcomeOK         = "ok"
	outcomeSession    = "session_error"
	outcomeNavigation = "navigation_error"
	outcomeTimeout    = "wait_timeout"
	outcomeBlocked    = "blocked"
	outcomeExtract    = "extract_error"
	outcomePanic      = "panic"
)

const blockProbeTimeout = 3 * time.Second

// ProfileSource supplies a browser profile per session and receives its outcome
type ProfileSource interface {
	Next() browser.Profile
	Report(profile browser.Profile, ok bool)
}

// FetcherConfig holds listing fetcher settings
type FetcherConfig struct {
	// SearchURL contains one %s placeholder for the escaped search term
	SearchURL         string
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	MaxResults        int
	Selectors         Selectors
}

var _ domain.ListingFetcher = (*Fetcher)(nil)

// Fetcher implements domain.ListingFetcher against the iHerb search page
type Fetcher struct {
	launcher  browser.Launcher
	profiles  ProfileSource
	extractor *Extractor
	detectors []Detector
	cfg       FetcherConfig
	logger    *zap.Logger
}

// NewFetcher creates a fetcher. Zero config values fall back to defaults.
func NewFetcher(launcher browser.Launcher, profiles ProfileSource, cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if cfg.SearchURL == "" {
		cfg.SearchURL = "https://kr.iherb.com/search?kw=%s"
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.Selectors == (Selectors{}) {
		cfg.Selectors = DefaultSelectors
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		launcher:  launcher,
		profiles:  profiles,
		extractor: NewExtractor(cfg.Selectors, cfg.MaxResults),
		detectors: DefaultDetectors(),
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "listing_fetcher")),
	}
}

type fetchError struct {
	outcome string
	source  string
	err     error
}

func (e *fetchError) Error() string {
	if e.source != "" {
		return fmt.Sprintf("%s (%s): %v", e.outcome, e.source, e.err)
	}
	return fmt.Sprintf("%s: %v", e.outcome, e.err)
}

func (e *fetchError) Unwrap() error { return e.err }

// Fetch returns up to MaxResults listings for term. Every failure, including a
// panic, degrades to an empty slice; the browser session is always closed.
func (f *Fetcher) Fetch(ctx context.Context, term string) (listings []domain.ProductListing) {
	start := time.Now()
	outcome, source := outcomeOK, ""

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("listing fetch panicked", zap.String("term", term), zap.Any("panic", r))
			outcome, source = outcomePanic, ""
			listings = []domain.ProductListing{}
		}
		metrics.RecordFetch(outcome, source, len(listings), time.Since(start))
	}()

	result, err := f.fetch(ctx, term)
	if err != nil {
		outcome = outcomeExtract
		var fe *fetchError
		if errors.As(err, &fe) {
			outcome, source = fe.outcome, fe.source
		}
		f.logger.Warn("listing fetch degraded to empty result",
			zap.String("term", term),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return []domain.ProductListing{}
	}

	f.logger.Info("listings fetched",
		zap.String("term", term),
		zap.Int("count", len(result)),
		zap.Duration("elapsed", time.Since(start)))
	return result
}

func (f *Fetcher) fetch(ctx context.Context, term string) ([]domain.ProductListing, error) {
	target := fmt.Sprintf(f.cfg.SearchURL, url.QueryEscape(term))
	profile := f.profiles.Next()

	session, err := f.launcher.NewSession(ctx, profile)
	if err != nil {
		f.report(profile, false)
		return nil, &fetchError{outcome: outcomeSession, err: err}
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			f.logger.Debug("browser session close failed", zap.Error(cerr))
		}
	}()

	navCtx, cancelNav := context.WithTimeout(ctx, f.cfg.NavigationTimeout)
	defer cancelNav()
	if err := session.Navigate(navCtx, target); err != nil {
		f.report(profile, false)
		return nil, &fetchError{outcome: outcomeNavigation, err: err}
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, f.cfg.WaitTimeout)
	defer cancelWait()
	if err := session.WaitVisible(waitCtx, f.cfg.Selectors.Container); err != nil {
		outcome, source := f.classify(ctx, session)
		f.report(profile, false)
		return nil, &fetchError{outcome: outcome, source: source, err: err}
	}

	readCtx, cancelRead := context.WithTimeout(ctx, f.cfg.WaitTimeout)
	defer cancelRead()
	html, err := session.OuterHTML(readCtx, f.cfg.Selectors.Container)
	if err != nil {
		f.report(profile, false)
		return nil, &fetchError{outcome: outcomeExtract, err: err}
	}

	listings, err := f.extractor.Extract(html, target)
	if err != nil {
		f.report(profile, false)
		return nil, &fetchError{outcome: outcomeExtract, err: err}
	}
	f.report(profile, true)
	return listings, nil
}

// classify looks at the rendered page after the results container failed to appear
func (f *Fetcher) classify(ctx context.Context, session browser.Session) (string, string) {
	probeCtx, cancel := context.WithTimeout(ctx, blockProbeTimeout)
	defer cancel()

	html, err := session.OuterHTML(probeCtx, "html")
	if err != nil {
		return outcomeTimeout, ""
	}
	if detected, source := DetectBlock(html, f.detectors); detected {
		return outcomeBlocked, source
	}
	return outcomeTimeout, ""
}

func (f *Fetcher) report(profile browser.Profile, ok bool) {
	f.profiles.Report(profile, ok)
	if !ok && profile.ProxyURL != "" {
		host := profile.ProxyURL
		if u, err := url.Parse(profile.ProxyURL); err == nil {
			host = u.Host
		}
		metrics.ProxyFailures.WithLabelValues(host).Inc()
	}
}
