package parser

import "sync"

// DefaultInternLimit caps an intern pool. Past it, new strings are returned
// as-is so a log with many distinct values cannot grow the pool unbounded.
const DefaultInternLimit = 100000

// StringIntern deduplicates the small set of values that repeat on almost
// every FIX line (BeginString, MsgType, CompIDs, message names) so an index
// of millions of messages shares one copy of each. Safe for concurrent use.
type StringIntern struct {
	mu    sync.RWMutex
	pool  map[string]string
	limit int
}

// NewStringIntern creates a pool holding at most limit strings; limit <= 0
// means DefaultInternLimit.
func NewStringIntern(limit int) *StringIntern {
	if limit <= 0 {
		limit = DefaultInternLimit
	}
	return &StringIntern{
		pool:  make(map[string]string, 256),
		limit: limit,
	}
}

// Intern returns the pooled copy of s, adding s if there is room.
func (si *StringIntern) Intern(s string) string {
	if s == "" {
		return s
	}

	si.mu.RLock()
	pooled, ok := si.pool[s]
	full := len(si.pool) >= si.limit
	si.mu.RUnlock()
	if ok {
		return pooled
	}
	if full {
		return s
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	// Another goroutine may have added it since the read lock was released.
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= si.limit {
		return s
	}
	si.pool[s] = s
	return s
}

// Len returns the number of pooled strings.
func (si *StringIntern) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.pool)
}

// Reset empties the pool.
func (si *StringIntern) Reset() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.pool = make(map[string]string, 256)
}
