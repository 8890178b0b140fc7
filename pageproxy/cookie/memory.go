package cookie

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process cookie jar keyed by (name, domain, path).
// Every call is atomic; it is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	seq     uint64
	entries map[Key]*memoryEntry
}

type memoryEntry struct {
	cookie  Cookie
	created uint64
}

// NewMemoryStore returns an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: make(map[Key]*memoryEntry)}
}

// Cookies returns the unexpired cookies sent on a request to target, longer
// paths first and then in creation order.
func (s *MemoryStore) Cookies(_ context.Context, target *url.URL) ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var matched []*memoryEntry
	for _, e := range s.entries {
		if !e.cookie.Expired(now) && e.cookie.Matches(target) {
			matched = append(matched, e)
		}
	}
	sortEntries(matched)

	result := make([]Cookie, len(matched))
	for i, e := range matched {
		result[i] = e.cookie
	}
	return result, nil
}

// SetCookies writes cookies, each replacing any stored cookie with the same
// key. A cookie expired at write time removes the stored one. The creation
// order of a replaced cookie is kept.
func (s *MemoryStore) SetCookies(_ context.Context, cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, c := range cookies {
		key := c.Key()
		if c.Expired(now) {
			delete(s.entries, key)
			continue
		}
		if e, ok := s.entries[key]; ok {
			e.cookie = c
			continue
		}
		s.seq++
		s.entries[key] = &memoryEntry{cookie: c, created: s.seq}
	}
	s.evictLocked(now)
	return nil
}

// All returns every unexpired cookie in creation order.
func (s *MemoryStore) All() []Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entries := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.cookie.Expired(now) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].created < entries[j].created })

	result := make([]Cookie, len(entries))
	for i, e := range entries {
		result[i] = e.cookie
	}
	return result
}

// Len returns the number of stored cookies, expired entries included until
// the next write evicts them.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) evictLocked(now time.Time) {
	for key, e := range s.entries {
		if e.cookie.Expired(now) {
			delete(s.entries, key)
		}
	}
}

func sortEntries(entries []*memoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		pi, pj := len(entries[i].cookie.Path), len(entries[j].cookie.Path)
		if pi != pj {
			return pi > pj
		}
		return entries[i].created < entries[j].created
	})
}
