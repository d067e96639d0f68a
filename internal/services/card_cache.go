package services

import (
	"context"
	"time"

	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/ports"
)

type cardKey struct {
	ownerID, cardID int64
}

// CachedCardRegistry memoizes card lookups. Writers to the card table must
// call Forget so invoices pick up new names and due days.
type CachedCardRegistry struct {
	next  ports.CardRegistry
	cards *cache.LRUCache[cardKey, core.Card]
}

var _ ports.CardRegistry = (*CachedCardRegistry)(nil)

func NewCachedCardRegistry(next ports.CardRegistry, size int, ttl time.Duration) *CachedCardRegistry {
	return &CachedCardRegistry{
		next:  next,
		cards: cache.NewLRUCache[cardKey, core.Card](size, ttl),
	}
}

// GetCard serves from the cache. Failed lookups are not cached.
func (r *CachedCardRegistry) GetCard(ctx context.Context, ownerID, cardID int64) (core.Card, error) {
	key := cardKey{ownerID, cardID}
	if c, ok := r.cards.Get(key); ok {
		return c, nil
	}
	c, err := r.next.GetCard(ctx, ownerID, cardID)
	if err != nil {
		return core.Card{}, err
	}
	r.cards.Set(key, c)
	return c, nil
}

func (r *CachedCardRegistry) Forget(ownerID, cardID int64) {
	r.cards.Delete(cardKey{ownerID, cardID})
}

// Cleaner exposes the cache for periodic expiry by a cache.Manager.
func (r *CachedCardRegistry) Cleaner() cache.Cleaner {
	return r.cards
}
