// Package batch finds the inputs processed by --all mode.
// Local inputs come from a directory walk; remote inputs are the document
// links published on an index page.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/parapipe/core"
)

// Supports reports whether a file name or URL has a readable format.
type Supports func(name string) bool

// Discover walks root and returns every supported file, sorted. Temp and
// lock files are skipped, as are hidden directories.
func Discover(root string, supports Supports) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsTempFile(path) || !supports(path) {
			return nil
		}
		files = append(files, filepath.Clean(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// DiscoverLinks fetches an index page and returns the same-domain links
// whose extension is supported, in page order. An index URL that is itself
// a document is returned unchanged.
func DiscoverLinks(ctx context.Context, indexURL string, fetcher core.Fetcher, supports Supports) ([]string, error) {
	parsed, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parsing index URL: %w", err)
	}
	if ext := URLExt(indexURL); ext != "" && ext != ".html" && ext != ".htm" && supports(indexURL) {
		return []string{indexURL}, nil
	}

	result, err := fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetching index: %w", err)
	}

	links, err := extractLinks(result.Body, indexURL)
	if err != nil {
		return nil, fmt.Errorf("extracting links: %w", err)
	}

	var docs []string
	seen := make(map[string]bool, len(links))
	for _, link := range links {
		if !IsSameDomain(link, parsed.Host) || URLExt(link) == "" || !supports(link) || IsTempFile(link) {
			continue
		}
		if link = NormalizeURL(link); !seen[link] {
			seen[link] = true
			docs = append(docs, link)
		}
	}
	return docs, nil
}

// skippedSchemes never point at documents.
var skippedSchemes = map[string]bool{
	"mailto":     true,
	"javascript": true,
	"tel":        true,
	"data":       true,
}

// extractLinks returns the absolute http(s) targets of every <a href> in
// page order, fragments removed.
func extractLinks(page []byte, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if link, ok := resolveURL(base, s.AttrOr("href", "")); ok {
			links = append(links, link)
		}
	})
	return links, nil
}

// resolveURL makes href absolute against base. In-page anchors and
// non-web schemes are rejected.
func resolveURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil || skippedSchemes[strings.ToLower(ref.Scheme)] {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}
