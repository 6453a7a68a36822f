// Package cache provides the keyed payload cache shared by enrichment and
// embedding lookups.
//
// Entries live in a durable Backend (SQLite or Redis) with a per-category TTL.
// When the backend is unavailable or erroring, the Store silently switches to a
// bounded process-local map so callers never block on or observe cache failures.
//
// Keys are namespaced by category with Key:
//
//	key := cache.Key(cache.CategoryBio, fingerprint)
//	if payload, ok := store.Get(ctx, key); ok {
//	    // use cached payload
//	}
//	store.Put(ctx, cache.CategoryBio, key, payload, tokens)
package cache
