package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores
	"github.com/browserutils/kooky/browser/firefox"
)

// siteDomains maps site names to their cookie domains.
var siteDomains = map[string]string{
	"eci":    "affidavit.eci.gov.in",
	"myneta": "myneta.info",
}

// siteEssentialCookies maps site names to the cookie names worth carrying
// over. Everything else in the browser store is tracking noise.
var siteEssentialCookies = map[string][]string{
	"eci":    {"ci_session", "csrf_cookie_name"},
	"myneta": {"PHPSESSID"},
}

// BrowserSource reads cookies from browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{logger: logger}
}

// Cookies returns cookies for the given site from browser stores.
func (s *BrowserSource) Cookies(ctx context.Context, site string) (map[string]string, error) {
	domain, ok := siteDomains[site]
	if !ok {
		return nil, nil //nolint:nilnil // no cookies for unknown site is not an error
	}

	// Try Firefox profiles first (including Developer Edition)
	cookies := s.tryFirefoxProfiles(ctx, domain, site)
	if len(cookies) > 0 {
		return cookies, nil
	}

	// Fall back to kooky's automatic browser detection
	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(domain))
	if err != nil {
		s.logger.Debug("failed to read browser cookies", "site", site, "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}

	if len(kookies) == 0 {
		return nil, nil //nolint:nilnil // no browser cookies is not an error
	}

	return s.filterEssentialCookies(kookies, site), nil
}

// tryFirefoxProfiles attempts to read cookies from Firefox profiles.
func (s *BrowserSource) tryFirefoxProfiles(ctx context.Context, domain, site string) map[string]string {
	home := os.Getenv("HOME")
	if home == "" {
		return nil
	}

	dir := filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	pattern := filepath.Join(dir, "*", "cookies.sqlite")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}

	for _, f := range matches {
		kookies, err := firefox.ReadCookies(ctx, f, kooky.Valid, kooky.DomainHasSuffix(domain))
		if err == nil && len(kookies) > 0 {
			s.logger.Debug("found Firefox cookies",
				"profile", filepath.Base(filepath.Dir(f)),
				"site", site,
				"count", len(kookies))
			return s.filterEssentialCookies(kookies, site)
		}
	}

	return nil
}

// filterEssentialCookies extracts only the required cookies for a site.
func (s *BrowserSource) filterEssentialCookies(kookies []*kooky.Cookie, site string) map[string]string {
	essential, ok := siteEssentialCookies[site]
	if !ok {
		// No filter defined, return all cookies
		cookies := make(map[string]string, len(kookies))
		for _, k := range kookies {
			cookies[k.Name] = k.Value
		}
		return cookies
	}

	cookies := make(map[string]string)
	for _, k := range kookies {
		for _, name := range essential {
			if k.Name == name {
				cookies[k.Name] = k.Value
			}
		}
	}
	return cookies
}
