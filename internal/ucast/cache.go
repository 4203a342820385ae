// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ucast

import (
	"bytes"
	"sync"

	"github.com/ibfabric/osmd/internal/subnet"
)

// Cache implements use_ucast_cache: it remembers the last payload
// pushed for each (switch, LFT block) pair so a light sweep that didn't
// change the topology can skip re-sending unchanged blocks.
type Cache struct {
	mu    sync.Mutex
	saved map[cacheKey][]byte
}

type cacheKey struct {
	sw    subnet.SwitchID
	block int
}

func NewCache() *Cache {
	return &Cache{saved: make(map[cacheKey][]byte)}
}

// LFTBlockChanged reports whether payload differs from what was last
// committed for (sw, block); an unseen key counts as changed.
func (c *Cache) LFTBlockChanged(sw subnet.SwitchID, block int, payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.saved[cacheKey{sw, block}]
	return !ok || !bytes.Equal(prev, payload)
}

// CommitLFTBlock records payload as the last value pushed for (sw, block).
func (c *Cache) CommitLFTBlock(sw subnet.SwitchID, block int, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	c.saved[cacheKey{sw, block}] = cp
}

// Invalidate drops all cached state, forcing a full re-push (used when
// the topology changes and use_ucast_cache optimizations must not mask
// a stale forwarding entry).
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = make(map[cacheKey][]byte)
}
