package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const contactKeyPrefix = "contact:"
const contactTTL = 24 * time.Hour

// Directory resolves a participant address to a display name. Names are
// learned when gateway clients authenticate and cached in Redis with a
// TTL; an in-process map keeps lookups working when Redis is down or not
// configured. Unknown addresses fall back to their local part.
type Directory struct {
	redis *redis.Client
	mu    sync.RWMutex
	names map[string]string
}

func NewDirectory(rdb *redis.Client) *Directory {
	return &Directory{
		redis: rdb,
		names: make(map[string]string),
	}
}

func (d *Directory) Remember(addr, name string) {
	if addr == "" || name == "" {
		return
	}

	d.mu.Lock()
	d.names[addr] = name
	d.mu.Unlock()

	if d.redis != nil {
		if err := d.redis.Set(context.Background(), contactKeyPrefix+addr, name, contactTTL).Err(); err != nil {
			log.Printf("Failed to cache contact name for %s: %v", addr, err)
		}
	}
}

func (d *Directory) Resolve(addr string) string {
	if d.redis != nil {
		name, err := d.redis.Get(context.Background(), contactKeyPrefix+addr).Result()
		if err == nil && name != "" {
			return name
		}
		if err != nil && err != redis.Nil {
			log.Printf("Redis error resolving contact %s: %v", addr, err)
		}
	}

	d.mu.RLock()
	name := d.names[addr]
	d.mu.RUnlock()
	if name != "" {
		return name
	}

	if i := strings.IndexByte(addr, '@'); i > 0 {
		return addr[:i]
	}
	return addr
}
