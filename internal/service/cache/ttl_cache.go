package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   []byte
	exp time.Time
}

// TTLCache is an in-process BytesCache. When full, expired entries are swept
// and, failing that, the entry closest to expiry is evicted.
type TTLCache struct {
	mu    sync.Mutex
	m     map[string]entry
	limit int
	now   func() time.Time
}

func NewTTLCache(limit int) *TTLCache {
	if limit <= 0 {
		limit = 1024
	}
	return &TTLCache{m: make(map[string]entry), limit: limit, now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		delete(c.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && len(c.m) >= c.limit {
		c.evict()
	}
	c.m[key] = entry{v: value, exp: exp}
	return nil
}

func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *TTLCache) evict() {
	now := c.now()
	victim := ""
	var victimExp time.Time
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
			continue
		}
		if victim == "" || (!e.exp.IsZero() && (victimExp.IsZero() || e.exp.Before(victimExp))) {
			victim, victimExp = k, e.exp
		}
	}
	if len(c.m) >= c.limit && victim != "" {
		delete(c.m, victim)
	}
}
