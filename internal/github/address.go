package github

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the only address prefix accepted for targets.
	BaseURL = "https://github.com/"

	// DependentsPath is the listing segment appended to a repository address.
	DependentsPath = "/network/dependents"
)

// ErrUnsupportedURL is returned for addresses outside github.com.
var ErrUnsupportedURL = errors.New("unsupported URL")

// URLError reports an address that cannot be turned into a dependents listing.
type URLError struct {
	// URL is the address as given.
	URL string
}

// Error implements error.
func (e *URLError) Error() string {
	return fmt.Sprintf("%s: '%s'", ErrUnsupportedURL, e.URL)
}

// Unwrap allows errors.Is(err, ErrUnsupportedURL).
func (e *URLError) Unwrap() error {
	return ErrUnsupportedURL
}

// NormalizeDependentsURL turns a repository address into its dependents
// listing address. Addresses that already contain the listing segment are
// returned unchanged, so applying it twice gives the same result.
//
//	https://github.com/owner/repo   -> https://github.com/owner/repo/network/dependents
//	https://github.com/owner/repo/  -> https://github.com/owner/repo/network/dependents
func NormalizeDependentsURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, BaseURL) {
		return "", &URLError{URL: raw}
	}
	if strings.Contains(u, DependentsPath) {
		return u, nil
	}
	return strings.TrimSuffix(u, "/") + DependentsPath, nil
}

// ParseRepository extracts the owner and repository name from a repository
// or dependents listing address.
func ParseRepository(raw string) (owner, repo string, err error) {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, BaseURL) {
		return "", "", &URLError{URL: raw}
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", &URLError{URL: raw}, err)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: missing owner or repository", &URLError{URL: raw})
	}
	return parts[0], parts[1], nil
}

// RepositoryName returns "owner/repo" for an address, or the address itself
// when it cannot be parsed.
func RepositoryName(raw string) string {
	owner, repo, err := ParseRepository(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return owner + "/" + repo
}
