package iherb

import (
	"strings"
)

// Detector inspects a rendered page and reports which bot protection, if any, served it
type Detector func(html string) (detected bool, source string)

// DefaultDetectors covers the vendors commonly seen in front of commerce sites
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// DetectBlock runs detectors in order and returns the first hit
func DetectBlock(html string, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if detected, source := d(html); detected {
			return true, source
		}
	}
	return false, ""
}

func containsAny(html string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(html, n) {
			return true
		}
	}
	return false
}

func detectCloudflare(html string) (bool, string) {
	if containsAny(html,
		"cf-browser-verification",
		"cf-turnstile",
		"challenges.cloudflare.com",
		"Attention Required! | Cloudflare",
		"<title>Just a moment...</title>",
	) {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectAkamai(html string) (bool, string) {
	if strings.Contains(html, "Access Denied") && strings.Contains(html, "Reference #") {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(html string) (bool, string) {
	if containsAny(html, "geo.captcha-delivery.com", "ct.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(html string) (bool, string) {
	if containsAny(html, "client.perimeterx.net", "px-captcha", "_pxBlock", "Press & Hold") {
		return true, "PerimeterX"
	}
	return false, ""
}
