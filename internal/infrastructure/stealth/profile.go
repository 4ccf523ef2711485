package stealth

import (
	"github.com/pillwise/backend/internal/infrastructure/browser"
)

// AcceptLanguage matches a Korean desktop visitor
const AcceptLanguage = "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"

// InitScript hides the most common automation fingerprints before any page script runs
const InitScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['ko-KR', 'ko', 'en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`

// Profiles builds a fresh browser.Profile for every session
type Profiles struct {
	agents         *UserAgentPool
	proxies        *ProxyPool
	viewportWidth  int
	viewportHeight int
}

// NewProfiles combines the pools with a fixed viewport. proxies may be nil.
func NewProfiles(agents *UserAgentPool, proxies *ProxyPool, width, height int) *Profiles {
	if agents == nil {
		agents = NewUserAgentPool(nil)
	}
	if width <= 0 || height <= 0 {
		width, height = 1280, 800
	}
	return &Profiles{
		agents:         agents,
		proxies:        proxies,
		viewportWidth:  width,
		viewportHeight: height,
	}
}

// Next returns the profile for a new session
func (p *Profiles) Next() browser.Profile {
	profile := browser.Profile{
		UserAgent:      p.agents.Random(),
		ViewportWidth:  p.viewportWidth,
		ViewportHeight: p.viewportHeight,
		AcceptLanguage: AcceptLanguage,
		InitScript:     InitScript,
	}
	if p.proxies != nil {
		profile.ProxyURL = p.proxies.Next()
	}
	return profile
}

// Report feeds a session outcome back to the proxy pool
func (p *Profiles) Report(profile browser.Profile, ok bool) {
	if p.proxies != nil {
		p.proxies.Report(profile.ProxyURL, ok)
	}
}
