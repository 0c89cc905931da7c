// Package cache holds recently read items keyed by kind and id. Entries
// expire after a TTL so writes from other processes become visible.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/manujcode/lose-and-found/internal/model"
)

// Defaults used when the configured values are not positive.
const (
	DefaultSize = 1024
	DefaultTTL  = 30 * time.Second
)

// Items is a bounded expiring cache of lost and found items. Cached values
// are copies; callers may modify what they get back.
type Items struct {
	lost  *expirable.LRU[string, model.LostItem]
	found *expirable.LRU[string, model.FoundItem]
}

// New creates an item cache holding up to size entries per kind.
func New(size int, ttl time.Duration) *Items {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Items{
		lost:  expirable.NewLRU[string, model.LostItem](size, nil, ttl),
		found: expirable.NewLRU[string, model.FoundItem](size, nil, ttl),
	}
}

// Key is the cache key of an item.
func Key(kind model.ItemKind, id string) string {
	return string(kind) + ":" + id
}

// Lost returns a cached lost item.
func (c *Items) Lost(id string) (*model.LostItem, bool) {
	it, ok := c.lost.Get(Key(model.KindLost, id))
	if !ok {
		return nil, false
	}
	return &it, true
}

// PutLost caches a lost item.
func (c *Items) PutLost(it *model.LostItem) {
	c.lost.Add(Key(model.KindLost, it.ID), *it)
}

// Found returns a cached found item.
func (c *Items) Found(id string) (*model.FoundItem, bool) {
	it, ok := c.found.Get(Key(model.KindFound, id))
	if !ok {
		return nil, false
	}
	return &it, true
}

// PutFound caches a found item.
func (c *Items) PutFound(it *model.FoundItem) {
	c.found.Add(Key(model.KindFound, it.ID), *it)
}

// Invalidate drops an item.
func (c *Items) Invalidate(kind model.ItemKind, id string) {
	switch kind {
	case model.KindLost:
		c.lost.Remove(Key(kind, id))
	case model.KindFound:
		c.found.Remove(Key(kind, id))
	}
}

// Len returns the number of cached items of both kinds.
func (c *Items) Len() int {
	return c.lost.Len() + c.found.Len()
}
