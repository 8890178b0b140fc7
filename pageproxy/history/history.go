// Package history keeps a log of bridged exchanges for inspection after a
// run. It is never consulted to answer a request.
package history

import (
	"cmp"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-appsec/pageproxy/pageproxy/bridge"
	"github.com/go-appsec/pageproxy/pageproxy/store"
)

const entryKeyPrefix = "ex:"

// Entry is one recorded exchange.
type Entry struct {
	ID              string        `msgpack:"id"`
	Offset          uint32        `msgpack:"o"`
	Started         time.Time     `msgpack:"t"`
	Duration        time.Duration `msgpack:"d"`
	Method          string        `msgpack:"m"`
	URL             string        `msgpack:"u"`
	Proxy           string        `msgpack:"p,omitempty"`
	State           string        `msgpack:"st"`
	Status          int           `msgpack:"s"`
	ResponseBytes   int           `msgpack:"rb"`
	CookiesSent     int           `msgpack:"cs"`
	CookiesReceived int           `msgpack:"cr"`
	CookiesDropped  int           `msgpack:"cd,omitempty"`
	Error           string        `msgpack:"e,omitempty"`
}

// Failed reports whether the exchange ended in an error.
func (e *Entry) Failed() bool {
	return e.Error != ""
}

// Log records exchanges in arrival order. Thread-safe.
type Log struct {
	mu         sync.RWMutex
	storage    store.Storage
	maxEntries int
	ids        []string // ordered by offset
	next       uint32
}

// NewLog creates a Log backed by the given storage, keeping at most
// maxEntries (0 keeps everything). Entries already in storage are picked up
// and offsets continue after the highest one found.
func NewLog(storage store.Storage, maxEntries int) *Log {
	l := &Log{storage: storage, maxEntries: maxEntries}

	var existing []*Entry
	for _, key := range storage.KeySet() {
		id, ok := strings.CutPrefix(key, entryKeyPrefix)
		if !ok {
			continue
		} else if entry, found := l.getLocked(id); found {
			existing = append(existing, entry)
		}
	}
	slices.SortFunc(existing, func(a, b *Entry) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	for _, entry := range existing {
		l.ids = append(l.ids, entry.ID)
		l.next = entry.Offset
	}
	l.evictLocked()
	return l
}

// Record stores ex under a new ID and the next offset. Offsets start at 1.
func (l *Log) Record(ex bridge.Exchange) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &Entry{
		ID:              uuid.NewString(),
		Offset:          l.next + 1,
		Started:         ex.Started,
		Duration:        ex.Duration,
		Method:          ex.Method,
		URL:             ex.URL,
		Proxy:           ex.Proxy,
		State:           string(ex.State),
		Status:          ex.StatusCode,
		ResponseBytes:   ex.ResponseBytes,
		CookiesSent:     ex.CookiesSent,
		CookiesReceived: ex.CookiesReceived,
		CookiesDropped:  ex.CookiesDropped,
		Error:           ex.Error,
	}
	data, err := store.Serialize(entry)
	if err != nil {
		log.Printf("history: serialize error: %v", err)
		return
	} else if err := l.storage.Set(entryKeyPrefix+entry.ID, data); err != nil {
		log.Printf("history: save error: %v", err)
		return
	}
	l.next = entry.Offset
	l.ids = append(l.ids, entry.ID)
	l.evictLocked()
}

// evictLocked deletes the oldest entries beyond maxEntries.
func (l *Log) evictLocked() {
	if l.maxEntries <= 0 || len(l.ids) <= l.maxEntries {
		return
	}
	drop := len(l.ids) - l.maxEntries
	for _, id := range l.ids[:drop] {
		if err := l.storage.Delete(entryKeyPrefix + id); err != nil {
			log.Printf("history: evict error: %v", err)
		}
	}
	l.ids = slices.Clone(l.ids[drop:])
}

// Get retrieves an entry by ID.
func (l *Log) Get(id string) (*Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.getLocked(id)
}

func (l *Log) getLocked(id string) (*Entry, bool) {
	data, found, err := l.storage.Get(entryKeyPrefix + id)
	if err != nil || !found {
		return nil, false
	}
	var entry Entry
	if err := store.Deserialize(data, &entry); err != nil {
		log.Printf("history: deserialize error: %v", err)
		return nil, false
	}
	return &entry, true
}

// List returns up to count entries with an offset greater than since, oldest
// first. A count of 0 returns all of them.
func (l *Log) List(count int, since uint32) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*Entry
	for _, id := range l.ids {
		entry, ok := l.getLocked(id)
		if !ok || entry.Offset <= since {
			continue
		}
		result = append(result, entry)
		if count > 0 && len(result) >= count {
			break
		}
	}
	return result
}

// Count returns the number of recorded entries.
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.ids)
}

// Clear removes all entries. Offsets keep increasing across a clear.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.storage.DeleteAll(); err != nil {
		log.Printf("history: clear error: %v", err)
	}
	l.ids = nil
}

// Close releases storage resources.
func (l *Log) Close() error {
	return l.storage.Close()
}
