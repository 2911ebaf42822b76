package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// DefaultCacheCapacity bounds how many synthesized clips are kept in memory.
const DefaultCacheCapacity = 50

// AudioCache is a bounded in-memory cache of synthesized audio keyed by the
// (text, language) pair. Eviction is strict FIFO on insertion order: a cache
// hit does not refresh an entry's position.
type AudioCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]byte
	order    []string
}

func NewAudioCache(capacity int) *AudioCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &AudioCache{
		capacity: capacity,
		entries:  make(map[string][]byte, capacity),
	}
}

func cacheKey(text, language string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *AudioCache) Get(text, language string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	audio, ok := c.entries[cacheKey(text, language)]
	return audio, ok
}

func (c *AudioCache) Put(text, language string, audio []byte) {
	key := cacheKey(text, language)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = audio
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = audio
	c.order = append(c.order, key)
}

func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *AudioCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte, c.capacity)
	c.order = nil
}
