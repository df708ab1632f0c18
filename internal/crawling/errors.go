// Package crawling scrapes the forum listing into topics and their torrent
// attachments.
package crawling

import "fmt"

// CrawlError represents a general crawling failure
type CrawlError struct {
	Message string
	Cause   error
}

func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crawl error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("crawl error: %s", e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// LinkExtractionError represents a failure in extracting links from HTML
type LinkExtractionError struct {
	Message string
	Cause   error
}

func (e *LinkExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("link extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("link extraction error: %s", e.Message)
}

func (e *LinkExtractionError) Unwrap() error {
	return e.Cause
}

// TopicParseError represents a topic page that could not be fetched or parsed
type TopicParseError struct {
	TopicURL string
	Message  string
	Cause    error
}

func (e *TopicParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("topic parse error for %s: %s: %v", e.TopicURL, e.Message, e.Cause)
	}
	return fmt.Sprintf("topic parse error for %s: %s", e.TopicURL, e.Message)
}

func (e *TopicParseError) Unwrap() error {
	return e.Cause
}
