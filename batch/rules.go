// Package batch — input filtering rules.
// Helpers deciding which files and links are documents worth formatting.
package batch

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// tempPrefixes mark editor lock and temp files, e.g. Word's ~$report.docx.
var tempPrefixes = []string{"~$", ".~lock.", "~WRL"}

// IsTempFile reports whether name is an editor lock/temp file or hidden.
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, p := range tempPrefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, "#")
}

// IsSameDomain checks if the given URL belongs to the specified domain.
func IsSameDomain(rawURL string, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == domain
}

// URLExt returns the lower-cased extension of a URL's path.
func URLExt(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(parsed.Path))
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""

	// Remove trailing slash (but keep root "/").
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}
