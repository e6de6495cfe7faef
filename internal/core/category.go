package core

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	unknownHostCategory  = "unknown_website_host"
	emptyBaseCategory    = "scraped_data"
	fallbackCategory     = "default_scraped_content"
	minCategoryLength    = 3
	maxCategoryLength    = 63
	maxCategoryBase      = 60
	shortCategorySuffix  = "_web"
	categoryPadCharacter = "_"
)

var invalidCategoryChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// DeriveCategory maps a URL to the collection its content is stored under.
// The leading "www." and the last hostname label are dropped, the rest is
// sanitized to [A-Za-z0-9_-] and bounded to 3..63 characters, so
// "https://www.fib.upc.edu" becomes "fib_upc". URLs sharing a hostname
// always share a category. It never fails.
func DeriveCategory(rawURL string) string {
	base := categoryBase(hostnameOf(rawURL))

	base = invalidCategoryChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")

	if len(base) > maxCategoryBase {
		base = base[:maxCategoryBase]
	}
	if len(base) < minCategoryLength {
		if base != "" {
			base += shortCategorySuffix
		} else {
			base = emptyBaseCategory
		}
		for len(base) < minCategoryLength {
			base += categoryPadCharacter
		}
	}
	if len(base) > maxCategoryLength {
		base = base[:maxCategoryLength]
	}
	if base == "" {
		return fallbackCategory
	}
	return base
}

// hostnameOf returns the lower-cased hostname of rawURL, or "" when the URL
// has none (including scheme-less input such as "example.com/page").
func hostnameOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func categoryBase(hostname string) string {
	if hostname == "" {
		return unknownHostCategory
	}
	hostname = strings.TrimPrefix(hostname, "www.")

	labels := strings.Split(hostname, ".")
	if len(labels) > 1 {
		return strings.Join(labels[:len(labels)-1], ".")
	}
	return labels[0]
}
