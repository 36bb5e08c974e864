// Package log provides secure logging built on top of the standard slog package.
//
// The SecureHandler wraps any slog.Handler and masks values that must not
// end up in logs shared in bug reports or CI output:
//   - HTTP credentials (Authorization, Cookie, Set-Cookie, Proxy-Authorization)
//   - GitHub tokens (ghp_, gho_, ghs_, github_pat_) and bearer/basic auth values
//   - Session cookies such as user_session and _gh_sess
//   - user:password pairs embedded in URLs, such as proxy addresses
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("page rejected", "url", pageURL, "status", 429)
//	slog.SetDefault(logger)
package log
