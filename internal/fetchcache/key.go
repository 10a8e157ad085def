package fetchcache

import "strings"

// Key identifies a cache entry. Keys are ordered tuples of string segments
// (scope, kind, parameters) and invalidation matches by prefix: invalidating
// ("submissions", "request") also clears ("submissions", "request", "my").
type Key []string

// K builds a Key from its segments.
func K(segments ...string) Key {
	return Key(segments)
}

// String returns the canonical map key. Segments never contain '/' in
// practice (ids, kinds, scopes), so a plain join is unambiguous.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with the given prefix, segment-wise.
// Every key has the empty prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}
