package pool

import (
	"strings"
	"sync"
)

// DefaultInternSize bounds an Interner created with a non-positive size.
const DefaultInternSize = 1 << 16

// Interner returns one shared copy of each distinct string it sees, so
// repeated categorical values do not each hold their own memory. Strings
// handed to Intern are cloned on first sight: CSV fields are slices of the
// whole record and would otherwise keep it alive.
//
// Once maxSize distinct strings are stored, new strings are returned cloned
// but not remembered.
type Interner struct {
	mu      sync.RWMutex
	strings map[string]string
	maxSize int

	hits, misses int64
}

// NewInterner creates an interner holding at most maxSize strings.
func NewInterner(maxSize int) *Interner {
	if maxSize <= 0 {
		maxSize = DefaultInternSize
	}
	return &Interner{strings: make(map[string]string), maxSize: maxSize}
}

// Intern returns the shared copy of s.
func (in *Interner) Intern(s string) string {
	in.mu.RLock()
	interned, ok := in.strings[s]
	in.mu.RUnlock()
	if ok {
		in.mu.Lock()
		in.hits++
		in.mu.Unlock()
		return interned
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if interned, ok := in.strings[s]; ok {
		in.hits++
		return interned
	}
	in.misses++
	c := strings.Clone(s)
	if len(in.strings) < in.maxSize {
		in.strings[c] = c
	}
	return c
}

// Len returns the number of stored strings.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.strings)
}

// Stats reports lookups served from the table (hits) and strings cloned
// (misses). Allocated is the number of stored strings.
func (in *Interner) Stats() Stats {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return Stats{Allocated: int64(len(in.strings)), Hits: in.hits, Misses: in.misses}
}
