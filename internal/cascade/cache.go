package cascade

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/soullab/fieldgate/internal/fingerprint"
	"github.com/soullab/fieldgate/internal/model"
)

// Cache stores finished cascade results keyed by claim hash plus context
// discriminator. TTLs are mode-dependent and passed per Set.
type Cache struct {
	store *gocache.Cache
}

// NewCache creates a result cache. Expired entries are purged every
// cleanupInterval.
func NewCache(cleanupInterval time.Duration) *Cache {
	return &Cache{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns a cached result.
func (c *Cache) Get(key string) (model.CascadeResult, bool) {
	if val, found := c.store.Get(key); found {
		return val.(model.CascadeResult), true
	}
	return model.CascadeResult{}, false
}

// Set stores a result for the given TTL.
func (c *Cache) Set(key string, res model.CascadeResult, ttl time.Duration) {
	c.store.Set(key, res, ttl)
}

// Len reports the number of live entries.
func (c *Cache) Len() int { return c.store.ItemCount() }

// cacheKey builds the lookup key. Personal and sacred results embed the user
// ID so they are never served to another user; everything else is shared per
// risk category, since the category decides the thresholds a result was
// graded against.
func cacheKey(claimHash string, vctx model.Context) string {
	risk := string(vctx.Risk())
	if vctx.Personal() {
		return fingerprint.CacheKey(claimHash, "user:"+vctx.UserID+":"+risk)
	}
	return fingerprint.CacheKey(claimHash, "shared:"+risk)
}
