package signature

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultKeyTTL bounds how long a fetched key is trusted before re-fetch.
const DefaultKeyTTL = time.Hour

type cachedKey struct {
	key       *rsa.PublicKey
	expiresAt time.Time
}

// KeyCache caches parsed public keys by key id. Reads take a shared lock;
// a miss or expired entry goes through a single-flight group so concurrent
// requests for the same key id trigger exactly one fetch.
type KeyCache struct {
	source KeySource
	ttl    time.Duration

	mu    sync.RWMutex
	keys  map[string]cachedKey
	group singleflight.Group

	now func() time.Time
}

// NewKeyCache builds a cache over the given source. A non-positive ttl falls
// back to DefaultKeyTTL.
func NewKeyCache(source KeySource, ttl time.Duration) *KeyCache {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &KeyCache{
		source: source,
		ttl:    ttl,
		keys:   make(map[string]cachedKey),
		now:    time.Now,
	}
}

// Get returns the public key for a key id, fetching and caching it on miss.
func (c *KeyCache) Get(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	entry, ok := c.keys[keyID]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.key, nil
	}
	return c.fetch(ctx, keyID)
}

// Refresh evicts any cached entry for a key id and fetches it again. Used
// after a verification failure in case the platform rotated the key.
func (c *KeyCache) Refresh(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	delete(c.keys, keyID)
	c.mu.Unlock()
	return c.fetch(ctx, keyID)
}

func (c *KeyCache) fetch(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	result, err, _ := c.group.Do(keyID, func() (any, error) {
		// Another caller may have completed the fetch while we waited on the
		// single-flight slot.
		c.mu.RLock()
		entry, ok := c.keys[keyID]
		c.mu.RUnlock()
		if ok && c.now().Before(entry.expiresAt) {
			return entry.key, nil
		}

		material, err := c.source.FetchKey(ctx, keyID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
		}
		key, err := ParsePublicKey(material)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.keys[keyID] = cachedKey{key: key, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*rsa.PublicKey), nil
}

// ParsePublicKey parses a PEM-encoded RSA public key, accepting both PKIX
// "PUBLIC KEY" and PKCS#1 "RSA PUBLIC KEY" blocks.
func ParsePublicKey(material string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(material))
	if block == nil {
		return nil, fmt.Errorf("%w: key material is not PEM", ErrInvalidSignature)
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return key, nil
	default:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: key is not RSA", ErrInvalidSignature)
		}
		return key, nil
	}
}
