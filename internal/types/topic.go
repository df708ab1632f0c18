// Package types provides type definitions for structured data shared across the auto-leech monitor.
package types

// FileKind identifies the payload format of a File.
type FileKind string

const (
	// FileKindTorrent is a .torrent metainfo file
	FileKindTorrent FileKind = "torrent"
)

// Extension returns the filename extension (with leading dot) used when delivering a file of this kind.
func (k FileKind) Extension() string {
	switch k {
	case FileKindTorrent, "":
		return ".torrent"
	default:
		return "." + string(k)
	}
}

// File is one deliverable item discovered inside a topic.
// Link is the identity used for deduplication.
type File struct {
	Kind  FileKind `json:"type"`
	Title string   `json:"title"`
	Link  string   `json:"link"`
	Size  string   `json:"size"`
}

// Topic is a single discoverable unit from the source listing (one forum post).
// TopicURL is its unique key. Topics are produced fresh on every poll.
type Topic struct {
	TopicURL string `json:"topic_url"`
	Title    string `json:"title"`
	Size     string `json:"size"`
	Files    []File `json:"links"`
}
