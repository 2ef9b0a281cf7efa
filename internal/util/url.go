package util

import (
	"net/url"
	"strings"
)

// IsRedirectURIAllowed validates the redirect_uri of an authorization
// request. The URI must be an absolute http(s) URL without header-injection
// characters; when allowlist is non-empty it must also match one entry
// exactly.
func IsRedirectURIAllowed(redirectURI string, allowlist []string) bool {
	if redirectURI == "" || strings.ContainsAny(redirectURI, "\r\n") {
		return false
	}

	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	if len(allowlist) == 0 {
		return true
	}
	for _, allowed := range allowlist {
		if allowed == redirectURI {
			return true
		}
	}
	return false
}

// AppendQuery appends params to rawURL, preserving any existing query.
func AppendQuery(rawURL string, params url.Values) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
