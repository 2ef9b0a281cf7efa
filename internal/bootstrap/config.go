package bootstrap

import (
	"fmt"

	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/store"
	"github.com/ClusterM/google-assistant-smart-home/internal/util"
)

// validateConfiguration validates all configuration settings
func validateConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !store.SupportsDriver(cfg.DatabaseDriver) {
		return fmt.Errorf("%w: DATABASE_DRIVER=%q", store.ErrUnsupportedDriver, cfg.DatabaseDriver)
	}
	return validateRedirectAllowlist(cfg.RedirectURIAllowlist)
}

// validateRedirectAllowlist rejects entries that no request could ever match.
func validateRedirectAllowlist(allowlist []string) error {
	for _, uri := range allowlist {
		if !util.IsRedirectURIAllowed(uri, nil) {
			return fmt.Errorf("invalid REDIRECT_URI_ALLOWLIST entry %q (must be an absolute http(s) URL)", uri)
		}
	}
	return nil
}
