// Package monitor implements the auto-leech monitor: a singleton poll loop
// that discovers new files on the source, delivers them, and triggers the
// downstream leech action for each delivered file.
package monitor

import (
	"container/list"

	"github.com/jonathan/autoleech/internal/types"
)

// DedupStore records which file links and topic URLs a run has already
// processed. It is owned by a single run's loop and is not safe for
// concurrent use.
//
// A link is recorded only after its payload was delivered; a topic is
// recorded after a cycle evaluated it, whatever the per-file outcome.
type DedupStore struct {
	links  *keySet
	topics *keySet
}

// NewDedupStore creates an empty store. capacity <= 0 keeps every key for the
// lifetime of the run; a positive capacity bounds each set and evicts the
// least recently seen key first.
func NewDedupStore(capacity int) *DedupStore {
	return &DedupStore{
		links:  newKeySet(capacity),
		topics: newKeySet(capacity),
	}
}

// SeenLink reports whether link was delivered before.
func (d *DedupStore) SeenLink(link string) bool { return d.links.has(link) }

// MarkLink records a delivered link.
func (d *DedupStore) MarkLink(link string) { d.links.add(link) }

// SeenTopic reports whether a previous cycle evaluated topicURL.
func (d *DedupStore) SeenTopic(topicURL string) bool { return d.topics.has(topicURL) }

// MarkTopic records an evaluated topic.
func (d *DedupStore) MarkTopic(topicURL string) { d.topics.add(topicURL) }

// NewFiles returns the files whose links have not been delivered, in order.
func (d *DedupStore) NewFiles(files []types.File) []types.File {
	var out []types.File
	for _, f := range files {
		if !d.SeenLink(f.Link) {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of recorded links and topics.
func (d *DedupStore) Len() (links, topics int) {
	return d.links.len(), d.topics.len()
}

// keySet is a string set with optional LRU bound. With cap <= 0 the list is
// unused and the set grows without limit.
type keySet struct {
	cap int
	m   map[string]*list.Element
	ll  *list.List
}

func newKeySet(capacity int) *keySet {
	s := &keySet{cap: capacity, m: make(map[string]*list.Element)}
	if capacity > 0 {
		s.ll = list.New()
	}
	return s
}

func (s *keySet) has(k string) bool {
	e, ok := s.m[k]
	if ok && s.ll != nil {
		s.ll.MoveToFront(e)
	}
	return ok
}

func (s *keySet) add(k string) {
	if s.ll == nil {
		s.m[k] = nil
		return
	}
	if e, ok := s.m[k]; ok {
		s.ll.MoveToFront(e)
		return
	}
	s.m[k] = s.ll.PushFront(k)
	if s.ll.Len() > s.cap {
		tail := s.ll.Back()
		s.ll.Remove(tail)
		delete(s.m, tail.Value.(string))
	}
}

func (s *keySet) len() int { return len(s.m) }
