package store

import "sync"

// keyPool provides reusable byte slices for building cache keys.
var keyPool = sync.Pool{
	New: func() any {
		// Prefix + provider + catalog key fit comfortably in 256 bytes.
		return make([]byte, 0, 256)
	},
}

// buildKey joins prefix and parts with ':' using a pooled buffer.
// Callers must call releaseKey when done with the key.
//
// Usage:
//
//	key := buildKey(lookupPrefix, provider, catalogKey)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix string, parts ...string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
