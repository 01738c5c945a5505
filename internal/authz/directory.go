package authz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// maxVerifiedTokens bounds the verified-token cache. The map resets when
// exceeded; directories hold at most a few dozen principals in practice.
const maxVerifiedTokens = 1024

type verifiedToken struct {
	principal string
	expiresAt time.Time
}

type snapshotFunc func(ctx context.Context) ([]Entry, error)

// directory implements the Authorizer methods over whatever snapshot its
// backing source provides. Successful token verifications are cached by
// token hash for the directory TTL so scrypt runs once per token, not once
// per request.
type directory struct {
	snapshot snapshotFunc
	ttl      time.Duration

	mu       sync.Mutex
	verified map[string]verifiedToken
}

func newDirectory(snapshot snapshotFunc, ttl time.Duration) directory {
	return directory{
		snapshot: snapshot,
		ttl:      ttl,
		verified: make(map[string]verifiedToken),
	}
}

func (d *directory) Identify(ctx context.Context, token string) (string, error) {
	entries, err := d.snapshot(ctx)
	if err != nil {
		return "", err
	}

	// Open mode: nothing provisioned, nothing enforced.
	if len(entries) == 0 {
		return "", nil
	}

	if token == "" {
		return "", ErrInvalidToken
	}

	cacheKey := tokenCacheKey(token)
	if principal, ok := d.cachedPrincipal(cacheKey); ok {
		return principal, nil
	}

	principal, ok := splitToken(token)
	if !ok {
		return "", ErrInvalidToken
	}

	entry, ok := findEntry(entries, principal)
	if !ok || entry.Disabled || entry.TokenDigest == "" {
		return "", ErrInvalidToken
	}

	match, err := VerifyToken(entry.TokenDigest, token)
	if err != nil || !match {
		return "", ErrInvalidToken
	}

	d.rememberPrincipal(cacheKey, principal)
	return principal, nil
}

func (d *directory) Allowed(ctx context.Context, principal, role string) (bool, error) {
	entries, err := d.snapshot(ctx)
	if err != nil {
		return false, err
	}

	if len(entries) == 0 {
		return true, nil
	}

	entry, ok := findEntry(entries, principal)
	if !ok {
		return false, ErrUnknownPrincipal
	}
	if entry.Disabled {
		return false, nil
	}
	return entry.HasRole(role), nil
}

func (d *directory) SheetSet(ctx context.Context, principal string) (SheetSet, error) {
	entries, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return NewSheetSet(SheetWildcard), nil
	}

	entry, ok := findEntry(entries, principal)
	if !ok {
		return nil, ErrUnknownPrincipal
	}
	if entry.Disabled {
		return NewSheetSet(), nil
	}
	return ParseSheetSet(entry.Sheets), nil
}

func (d *directory) cachedPrincipal(key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.verified[key]
	if !ok || time.Now().After(v.expiresAt) {
		return "", false
	}
	return v.principal, true
}

func (d *directory) rememberPrincipal(key, principal string) {
	if d.ttl <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.verified) >= maxVerifiedTokens {
		d.verified = make(map[string]verifiedToken)
	}
	d.verified[key] = verifiedToken{
		principal: principal,
		expiresAt: time.Now().Add(d.ttl),
	}
}

func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func findEntry(entries []Entry, principal string) (Entry, bool) {
	if principal == "" {
		return Entry{}, false
	}
	for _, entry := range entries {
		if entry.Principal == principal {
			return entry, true
		}
	}
	return Entry{}, false
}
