// Package utils provides small formatting helpers shared by the CLI and the
// web shell.
package utils

import (
	"net/url"
	"strings"
)

// NormalizeTicker upper-cases and trims a ticker as typed by a user.
// A leading "$" (common in chat and notes) is dropped.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")
	return strings.TrimSpace(ticker)
}

// TickerPathSegment escapes a normalized ticker for use as a URL path
// segment. Share-class tickers such as "BRK.B" pass through unchanged.
func TickerPathSegment(ticker string) string {
	return url.PathEscape(ticker)
}
