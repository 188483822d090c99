package auth

import (
	"context"
	"os"
)

// siteEnvVars maps site names to their environment variable
// configurations. Each entry maps env var name to cookie name. These let
// headless runs (CI, cron) carry a session without a browser profile.
var siteEnvVars = map[string]map[string]string{
	"eci": {
		"ECI_CI_SESSION": "ci_session",
		"ECI_CSRF":       "csrf_cookie_name",
	},
	"myneta": {
		"MYNETA_PHPSESSID": "PHPSESSID",
	},
}

// EnvSource reads cookies from environment variables.
type EnvSource struct{}

// Cookies returns cookies for the given site from environment variables.
func (EnvSource) Cookies(_ context.Context, site string) (map[string]string, error) {
	envMap, ok := siteEnvVars[site]
	if !ok {
		return nil, nil //nolint:nilnil // no cookies for unknown site is not an error
	}

	cookies := make(map[string]string)
	for envVar, cookieName := range envMap {
		if value := os.Getenv(envVar); value != "" {
			cookies[cookieName] = value
		}
	}

	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // unset env vars are not an error
	}
	return cookies, nil
}
