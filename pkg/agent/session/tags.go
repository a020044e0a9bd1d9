// Package session tracks the active profiling window and turns each
// one into a delivery request at rotation time.
package session

import (
	"fmt"
	"sync"
)

// reservedTagKey is claimed by the server for the metric name and may
// not be set as a tag.
const reservedTagKey = "__name__"

// TagSet is a concurrency-safe set of key=value tags. Mutations apply
// to sessions that close after the change; a session closing earlier
// keeps the snapshot taken at its boundary.
type TagSet struct {
	mu   sync.RWMutex
	tags map[string]string
}

// NewTagSet copies initial into a fresh tag set, dropping the
// reserved metric-name key if present.
func NewTagSet(initial map[string]string) *TagSet {
	tags := make(map[string]string, len(initial))
	for k, v := range initial {
		if k == reservedTagKey || k == "" {
			continue
		}
		tags[k] = v
	}
	return &TagSet{tags: tags}
}

// Set adds or replaces a tag.
func (t *TagSet) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("tag key must not be empty")
	}
	if key == reservedTagKey {
		return fmt.Errorf("tag key %q is reserved", reservedTagKey)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tags[key] = value
	return nil
}

// Delete removes a tag. Deleting an absent key is a no-op.
func (t *TagSet) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tags, key)
}

// Snapshot returns an independent copy of the current tags.
func (t *TagSet) Snapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(t.tags))
	for k, v := range t.tags {
		out[k] = v
	}
	return out
}

// Len returns the number of tags.
func (t *TagSet) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tags)
}
