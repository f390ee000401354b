package client

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// queryCache keeps successful GET envelopes by request path and query.
// A nil *queryCache caches nothing.
type queryCache struct {
	store *cache.Cache
}

func newQueryCache(ttl time.Duration) *queryCache {
	if ttl <= 0 {
		return nil
	}
	return &queryCache{store: cache.New(ttl, 2*ttl)}
}

func (qc *queryCache) get(key string) (*envelope, bool) {
	if qc == nil {
		return nil, false
	}
	val, ok := qc.store.Get(key)
	if !ok {
		return nil, false
	}
	env, ok := val.(*envelope)
	return env, ok
}

func (qc *queryCache) set(key string, env *envelope) {
	if qc == nil {
		return
	}
	qc.store.SetDefault(key, env)
}

func (qc *queryCache) invalidate(prefix string) {
	if qc == nil {
		return
	}
	for key := range qc.store.Items() {
		if strings.HasPrefix(key, prefix) {
			qc.store.Delete(key)
		}
	}
}

func (qc *queryCache) flush() {
	if qc == nil {
		return
	}
	qc.store.Flush()
}
