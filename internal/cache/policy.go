package cache

import (
	"strings"
	"time"
)

// Category groups cache entries that share a TTL.
type Category string

const (
	CategoryEmbedding      Category = "embedding"
	CategoryBio            Category = "bio"
	CategoryRecommendation Category = "recommendation"
	CategoryChat           Category = "chat"
	CategoryImage          Category = "image"
)

// Indefinite marks entries that never expire.
const Indefinite time.Duration = 0

// Policy maps a category to its TTL. Categories missing from the policy use
// DefaultTTL.
type Policy map[Category]time.Duration

// DefaultTTL applies to categories absent from a Policy.
const DefaultTTL = 24 * time.Hour

// DefaultPolicy returns the standard category TTLs.
func DefaultPolicy() Policy {
	return Policy{
		CategoryEmbedding:      Indefinite,
		CategoryBio:            7 * 24 * time.Hour,
		CategoryRecommendation: time.Hour,
		CategoryChat:           24 * time.Hour,
		CategoryImage:          7 * 24 * time.Hour,
	}
}

// TTL returns the TTL for category.
func (p Policy) TTL(category Category) time.Duration {
	if ttl, ok := p[category]; ok {
		return ttl
	}
	return DefaultTTL
}

// Key namespaces id under category ("bio:<fingerprint>").
func Key(category Category, id string) string {
	return string(category) + ":" + id
}

// categoryOf returns the namespace prefix of key, or "other".
func categoryOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
