package crawling

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/autoleech/internal/types"
)

// TopicPathMarker identifies forum topic links on the listing page.
const TopicPathMarker = "/forums/topic/"

// UnknownSize is reported when no size can be found in an attachment label.
const UnknownSize = "Unknown"

var (
	sizePattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:GB|MB|KB))`)
	sitePrefix     = regexp.MustCompile(`(?i)^https?://[^/\s]+/`)
	torrentSuffix  = regexp.MustCompile(`(?i)\.torrent$`)
	torrentAnchors = `a[data-fileext="torrent"]`
)

// ExtractTopicLinks returns the absolute URLs of topic links in the listing
// HTML, de-duplicated in first-seen order and capped at limit (limit <= 0
// means no cap).
func ExtractTopicLinks(htmlContent string, baseURL string, limit int) ([]string, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	linkSet := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.Contains(href, TopicPathMarker) {
			return true
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return true
		}
		absoluteURL := base.ResolveReference(linkURL)
		absoluteURL.Fragment = ""
		urlString := absoluteURL.String()

		if !linkSet[urlString] {
			linkSet[urlString] = true
			links = append(links, urlString)
		}
		return limit <= 0 || len(links) < limit
	})

	return links, nil
}

// ExtractFiles returns the torrent attachments of a topic page in document
// order. Anchors without an href are skipped.
func ExtractFiles(htmlContent string, pageURL string) ([]types.File, error) {
	base, err := parseBase(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	files := make([]types.File, 0)
	doc.Find(torrentAnchors).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		link := href
		if u, err := url.Parse(href); err == nil {
			link = base.ResolveReference(u).String()
		}

		raw := strings.TrimSpace(s.Text())
		files = append(files, types.File{
			Kind:  types.FileKindTorrent,
			Title: CleanTitle(raw),
			Link:  link,
			Size:  ExtractSize(raw),
		})
	})

	return files, nil
}

// CleanTitle strips a leading site URL and a trailing ".torrent" from an
// attachment label.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = sitePrefix.ReplaceAllString(title, "")
	title = torrentSuffix.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// ExtractSize returns the first size token (e.g. "1.4GB", "700 MB") in text,
// or UnknownSize.
func ExtractSize(text string) string {
	if m := sizePattern.FindString(text); m != "" {
		return m
	}
	return UnknownSize
}

func parseBase(baseURL string) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse base URL",
			Cause:   err,
		}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &LinkExtractionError{
			Message: fmt.Sprintf("invalid base URL: %s (must have scheme and host)", baseURL),
		}
	}
	return base, nil
}
