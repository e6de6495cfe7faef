package core

import (
	"fmt"
	"regexp"
)

// Tool-request grammar the model is instructed to emit verbatim.
const (
	ToolRequestMarker  = "TOOL_REQUEST:"
	ScrapeURLPrefix    = ToolRequestMarker + " scrape_url(url="
	GetFromVDBPrefix   = ToolRequestMarker + " get_from_vdb("
	ToolRequestSuffix  = ")"
	quotedArgumentBody = `[^"\r\n]*`
)

var (
	scrapeURLPattern = regexp.MustCompile(
		`^` + regexp.QuoteMeta(ScrapeURLPrefix) + `"(` + quotedArgumentBody + `)"` + regexp.QuoteMeta(ToolRequestSuffix) + `$`)
	getFromVDBPattern = regexp.MustCompile(
		`^` + regexp.QuoteMeta(GetFromVDBPrefix) + `([^\r\n]*)` + regexp.QuoteMeta(ToolRequestSuffix) + `$`)
	queryArgPattern    = regexp.MustCompile(`query="(` + quotedArgumentBody + `)"`)
	categoryArgPattern = regexp.MustCompile(`category="(` + quotedArgumentBody + `)"`)
)

// ToolRequest is a parsed instruction from the model. The concrete types are
// ScrapeURLRequest and VDBQueryRequest.
type ToolRequest interface {
	toolRequest()
}

type ScrapeURLRequest struct {
	URL string
}

type VDBQueryRequest struct {
	Query    string
	Category string
}

func (ScrapeURLRequest) toolRequest() {}
func (VDBQueryRequest) toolRequest()  {}

func (r ScrapeURLRequest) String() string {
	return fmt.Sprintf(`%s"%s"%s`, ScrapeURLPrefix, r.URL, ToolRequestSuffix)
}

func (r VDBQueryRequest) String() string {
	return fmt.Sprintf(`%squery="%s", category="%s"%s`, GetFromVDBPrefix, r.Query, r.Category, ToolRequestSuffix)
}

// ParseScrapeURLRequest recognizes `TOOL_REQUEST: scrape_url(url="<URL>")`
// spanning the whole output. The URL must be non-empty and free of quotes.
func ParseScrapeURLRequest(output string) (ScrapeURLRequest, bool) {
	m := scrapeURLPattern.FindStringSubmatch(output)
	if m == nil || m[1] == "" {
		return ScrapeURLRequest{}, false
	}
	return ScrapeURLRequest{URL: m[1]}, true
}

// ParseGetFromVDBRequest recognizes
// `TOOL_REQUEST: get_from_vdb(query="<Q>", category="<C>")` spanning the
// whole output. Arguments may appear in either order; both must be present.
func ParseGetFromVDBRequest(output string) (VDBQueryRequest, bool) {
	m := getFromVDBPattern.FindStringSubmatch(output)
	if m == nil {
		return VDBQueryRequest{}, false
	}
	args := m[1]
	query := queryArgPattern.FindStringSubmatch(args)
	category := categoryArgPattern.FindStringSubmatch(args)
	if query == nil || category == nil {
		return VDBQueryRequest{}, false
	}
	return VDBQueryRequest{Query: query[1], Category: category[1]}, true
}

// ParseToolRequest tries the scrape grammar, then the query grammar. It
// returns nil when output is an ordinary answer.
func ParseToolRequest(output string) ToolRequest {
	if req, ok := ParseScrapeURLRequest(output); ok {
		return req
	}
	if req, ok := ParseGetFromVDBRequest(output); ok {
		return req
	}
	return nil
}
